package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/berfenger/kwb2mqtt/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsObserveScrape(t *testing.T) {

	assert := assert.New(t)

	m := New()
	m.ObserveScrape(true, 0, true)
	m.ObserveScrape(false, 1, true)
	m.ObserveScrape(false, 2, false)

	assert.Equal(1.0, testutil.ToFloat64(m.scrapes.WithLabelValues("success")))
	assert.Equal(2.0, testutil.ToFloat64(m.scrapes.WithLabelValues("failure")))
	assert.Equal(2.0, testutil.ToFloat64(m.failures))
	assert.Equal(0.0, testutil.ToFloat64(m.available))
}

func TestMetricsInstrument(t *testing.T) {

	assert := assert.New(t)

	m := New()
	inst := m.Instrument()
	inst.RecordEvent("checksum_error")
	inst.RecordEvent("checksum_error")
	inst.RecordTime("Scrape", 150*time.Millisecond)

	assert.Equal(2.0, testutil.ToFloat64(m.events.WithLabelValues("checksum_error")))
	assert.Equal(1, testutil.CollectAndCount(m.operationSeconds))
}

func TestMetricsTotalsAndHandler(t *testing.T) {

	assert := assert.New(t)

	m := New()
	m.ObserveTotals(domain.HeaterTotals{BoilerEnergy: 130, BoilerRunTime: 7200})
	assert.Equal(130.0, testutil.ToFloat64(m.totals.WithLabelValues(domain.SENSOR_ID_BOILER_ENERGY_OUTPUT)))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(200, rec.Code)
	assert.Contains(rec.Body.String(), `kwb_heater_total{sensor="boiler_energy_output"} 130`)
	assert.Contains(rec.Body.String(), "go_goroutines")
}
