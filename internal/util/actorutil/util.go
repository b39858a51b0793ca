package actorutil

import (
	"log/slog"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

// NewActorSystemWithZapLogger routes protoactor's slog output through logger.
func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	writer := zap.NewStdLog(logger).Writer()
	level := slogLevel(logger.Level())

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return slog.New(tint.NewHandler(writer, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
			NoColor:    true,
		}))
	}))
}

func slogLevel(level zapcore.Level) slog.Level {
	switch level {
	case zap.DebugLevel:
		return slog.LevelDebug
	case zap.WarnLevel:
		return slog.LevelWarn
	case zap.ErrorLevel, zap.DPanicLevel, zap.PanicLevel, zap.FatalLevel:
		return slog.LevelError
	}
	return slog.LevelInfo
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.With(zap.String("actor", actorName))
}
