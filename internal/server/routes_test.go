package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/berfenger/kwb2mqtt/internal/core/domain"
	"github.com/berfenger/kwb2mqtt/internal/metrics"
	"github.com/berfenger/kwb2mqtt/internal/util"
	"github.com/berfenger/kwb2mqtt/pkg/kwb"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMaster struct {
	healthy   bool
	recovered bool
}

func (f *fakeMaster) Receive(ctx actor.Context) {
	switch ctx.Message().(type) {
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{Id: domain.ACTOR_ID_MASTER, Healthy: f.healthy})
	case domain.GetSnapshotRequest:
		ctx.Respond(domain.GetSnapshotResponse{
			Snapshot:   kwb.Snapshot{"boiler_output": kwb.Number(75), "pellet_auger": kwb.Bool(true)},
			Totals:     domain.HeaterTotals{BoilerEnergy: 130},
			Available:  true,
			Recovered:  f.recovered,
			LastScrape: time.Unix(1700000000, 0),
		})
	}
}

func newTestServer(t *testing.T, master *fakeMaster) *http.Server {
	as := actor.NewActorSystem()
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return master }))
	t.Cleanup(func() {
		as.Root.Stop(pid)
		as.Shutdown()
	})
	return NewServer(util.LoadTestConfig(), as.Root, pid, metrics.New().Handler())
}

func get(srv *http.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthCheckHandler(t *testing.T) {
	rec := get(newTestServer(t, &fakeMaster{healthy: true}), "/healthcheck")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "health_check: OK", rec.Body.String())

	rec = get(newTestServer(t, &fakeMaster{healthy: false}), "/healthcheck")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSnapshotHandler(t *testing.T) {

	assert := assert.New(t)

	rec := get(newTestServer(t, &fakeMaster{healthy: true, recovered: true}), "/api/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(true, body["available"])
	assert.Equal(true, body["recovered"])
	values := body["values"].(map[string]any)
	assert.Equal(75.0, values["boiler_output"])
	assert.Equal(true, values["pellet_auger"])
	assert.Equal(130.0, values[domain.SENSOR_ID_BOILER_ENERGY_OUTPUT])
}

func TestSnapshotHandlerHidesTotalsBeforeRecovery(t *testing.T) {
	rec := get(newTestServer(t, &fakeMaster{healthy: true}), "/api/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)

	var body SnapshotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Recovered)
	assert.NotContains(t, body.Values, domain.SENSOR_ID_BOILER_ENERGY_OUTPUT)
	assert.Contains(t, body.Values, "boiler_output")
}

func TestMetricsRoute(t *testing.T) {
	rec := get(newTestServer(t, &fakeMaster{healthy: true}), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kwb_consecutive_failures")
}
