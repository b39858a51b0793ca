package server

import (
	"net/http"
	"time"

	"github.com/berfenger/kwb2mqtt/internal/core/domain"
	"github.com/berfenger/kwb2mqtt/pkg/kwb"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type SnapshotResponse struct {
	Available           bool                 `json:"available"`
	Recovered           bool                 `json:"recovered"`
	LastScrape          *time.Time           `json:"last_scrape,omitempty"`
	ConsecutiveFailures uint                 `json:"consecutive_failures"`
	Values              map[string]kwb.Value `json:"values"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/api/snapshot", s.SnapshotHandler)
	if s.metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

// SnapshotHandler returns the latest scrape merged with the accumulated values.
// Accumulated values are left out until the stored seed has been restored.
func (s *Server) SnapshotHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetSnapshotRequest{}, 5*time.Second).Result()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	snap, ok := res.(domain.GetSnapshotResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	if snap.HasResponseError() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, snap.GetResponseError().Error())
	}

	values := snap.Snapshot.Clone()
	if values == nil {
		values = kwb.Snapshot{}
	}
	if snap.Recovered {
		values.Merge(snap.Totals.Snapshot())
	}
	resp := SnapshotResponse{
		Available:           snap.Available,
		Recovered:           snap.Recovered,
		ConsecutiveFailures: snap.ConsecutiveFailures,
		Values:              values,
	}
	if !snap.LastScrape.IsZero() {
		resp.LastScrape = &snap.LastScrape
	}
	return c.JSON(http.StatusOK, resp)
}
