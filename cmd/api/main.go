package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/berfenger/kwb2mqtt/internal/adapter/actor"
	"github.com/berfenger/kwb2mqtt/internal/adapter/scheduler"
	"github.com/berfenger/kwb2mqtt/internal/adapter/source"
	"github.com/berfenger/kwb2mqtt/internal/adapter/store"
	"github.com/berfenger/kwb2mqtt/internal/config"
	"github.com/berfenger/kwb2mqtt/internal/core/actor"
	"github.com/berfenger/kwb2mqtt/internal/core/port"
	"github.com/berfenger/kwb2mqtt/internal/core/service"
	"github.com/berfenger/kwb2mqtt/internal/metrics"
	"github.com/berfenger/kwb2mqtt/internal/server"
	"github.com/berfenger/kwb2mqtt/internal/util/actorutil"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(zapCfg.Build())

	err = run(cfg, logger, openSeedStore)
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

type seedStoreOpener func(cfg *config.Config, logger *zap.Logger) (port.SeedStore, func(), error)

// run wires the bridge and blocks until shutdown. Startup errors are returned
// after everything opened so far was released.
func run(cfg *config.Config, logger *zap.Logger, openStore seedStoreOpener) error {

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()
	ctx := as.Root

	m := metrics.New()

	seedStore, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("seed store", zap.Error(err))
		return err
	}
	defer closeStore()

	// init KWB actor provider
	kwbProv, err := kwbActorProvider(cfg, m, logger)
	if err != nil {
		logger.Error("kwb appliance", zap.Error(err))
		return err
	}

	heaterDeps := actor.HeaterDeps{
		Engine:   service.NewAccumulatorEngine(cfg.Heater.Params(), logger),
		Store:    seedStore,
		Observer: m,
	}
	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterActor(*cfg, kwbProv, mqttActorProvider(cfg, logger), heaterDeps, logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		logger.Error("could not spawn master", zap.Error(err))
		return err
	}
	defer ctx.Stop(pid)

	var checkpointer *scheduler.Checkpointer
	if cfg.State.Database != "" {
		checkpointer, err = scheduler.NewCheckpointer(
			scheduler.NewCheckpointJob(scheduler.MasterCheckpointSource(ctx, pid, 5*time.Second), seedStore, logger),
			cfg.State.CheckpointInterval(), logger)
		if err != nil {
			logger.Error("checkpointer", zap.Error(err))
			return err
		}
		if err := checkpointer.Start(context.Background()); err != nil {
			logger.Error("checkpointer", zap.Error(err))
			return err
		}
	}

	server := server.NewServer(*cfg, ctx, pid, m.Handler())
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logger.Error("http server error", zap.Error(err))
		return err
	}

	// Wait for the graceful shutdown to complete
	<-done

	// last checkpoint while the heater actor is still alive
	if checkpointer != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := checkpointer.Stop(stopCtx); err != nil {
			logger.Warn("final checkpoint failed", zap.Error(err))
		}
		cancel()
	}

	log.Println("Graceful shutdown complete.")
	return nil
}

func openSeedStore(cfg *config.Config, logger *zap.Logger) (port.SeedStore, func(), error) {
	if cfg.State.Database == "" {
		logger.Warn("state.database is empty, accumulated totals will not survive a restart")
		return store.NewMemorySeedStore(), func() {}, nil
	}
	db, err := store.OpenSQLite(cfg.State.Database)
	if err != nil {
		return nil, nil, err
	}
	return store.NewSQLiteSeedStore(db, logger), func() { db.Close() }, nil
}

func kwbActorProvider(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) (actor.KWBActorProvider, error) {

	appliance, err := source.NewAppliance(cfg.Heater, logger, m.Instrument())
	if err != nil {
		return nil, err
	}

	return func() *adactor.KWBActor {
		return adactor.NewKWBActor(appliance, cfg.Heater.ReadTimeout(), logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
