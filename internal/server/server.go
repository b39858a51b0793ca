package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/kwb2mqtt/internal/config"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
)

type Server struct {
	port           uint
	httpLog        bool
	rootContext    *actor.RootContext
	masterActor    *actor.PID
	metricsHandler http.Handler
}

// NewServer exposes health, snapshot and metrics endpoints. metricsHandler may be nil.
func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, metricsHandler http.Handler) *http.Server {
	NewServer := &Server{
		port:           cfg.Port,
		rootContext:    rootContext,
		masterActor:    masterActor,
		httpLog:        cfg.HttpLog,
		metricsHandler: metricsHandler,
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
