package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/kwb2mqtt/internal/core/domain"
	"github.com/berfenger/kwb2mqtt/internal/core/port"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const checkpointJobName = "checkpoint"

var ErrCheckpointUnavailable = errors.New("checkpoint unavailable")

// CheckpointSource returns the current accumulator state.
type CheckpointSource func(ctx context.Context) (domain.GetCheckpointResponse, error)

// MasterCheckpointSource asks the master actor, which forwards to the heater.
func MasterCheckpointSource(root *actor.RootContext, master *actor.PID, timeout time.Duration) CheckpointSource {
	return func(_ context.Context) (domain.GetCheckpointResponse, error) {
		res, err := root.RequestFuture(master, domain.GetCheckpointRequest{}, timeout).Result()
		if err != nil {
			return domain.GetCheckpointResponse{}, fmt.Errorf("%w: %v", ErrCheckpointUnavailable, err)
		}
		resp, ok := res.(domain.GetCheckpointResponse)
		if !ok {
			return domain.GetCheckpointResponse{}, fmt.Errorf("%w: unexpected response %T", ErrCheckpointUnavailable, res)
		}
		if resp.HasResponseError() {
			return resp, resp.GetResponseError()
		}
		return resp, nil
	}
}

// CheckpointJob copies the accumulator state into the seed store.
type CheckpointJob struct {
	source CheckpointSource
	store  port.SeedStore
	logger *zap.Logger
}

var _ quartz.Job = (*CheckpointJob)(nil)

func NewCheckpointJob(source CheckpointSource, store port.SeedStore, logger *zap.Logger) *CheckpointJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckpointJob{source: source, store: store, logger: logger}
}

func (j *CheckpointJob) Execute(ctx context.Context) error {
	cp, err := j.source(ctx)
	if err != nil {
		j.logger.Warn("checkpoint: could not read accumulators", zap.Error(err))
		return err
	}
	if !cp.Recovered {
		// saving now would overwrite the stored seed with zeros
		j.logger.Debug("checkpoint: skipped, accumulators not recovered yet")
		return nil
	}
	if err := j.store.Save(ctx, cp.UniqueId, cp.Seed); err != nil {
		j.logger.Error("checkpoint: save failed", zap.Error(err))
		return err
	}
	j.logger.Debug("checkpoint: saved",
		zap.String("unique_id", cp.UniqueId),
		zap.Float64("energy", cp.Seed.BoilerEnergy),
		zap.Float64("run_time", cp.Seed.BoilerRunTime))
	return nil
}

func (j *CheckpointJob) Description() string {
	return "accumulator checkpoint"
}

// Checkpointer runs the checkpoint job on a fixed interval and once more on Stop.
type Checkpointer struct {
	scheduler quartz.Scheduler
	job       *CheckpointJob
	interval  time.Duration
	logger    *zap.Logger
}

func NewCheckpointer(job *CheckpointJob, interval time.Duration, logger *zap.Logger) (*Checkpointer, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid checkpoint interval %s", interval)
	}
	sched, err := quartz.NewStdScheduler()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checkpointer{scheduler: sched, job: job, interval: interval, logger: logger}, nil
}

func (c *Checkpointer) Start(ctx context.Context) error {
	c.scheduler.Start(ctx)
	detail := quartz.NewJobDetail(c.job, quartz.NewJobKey(checkpointJobName))
	if err := c.scheduler.ScheduleJob(detail, quartz.NewSimpleTrigger(c.interval)); err != nil {
		c.scheduler.Stop()
		return err
	}
	c.logger.Info("checkpoint: scheduled", zap.Duration("interval", c.interval))
	return nil
}

// Stop halts the schedule and writes a final checkpoint.
func (c *Checkpointer) Stop(ctx context.Context) error {
	c.scheduler.Stop()
	c.scheduler.Wait(ctx)
	return c.job.Execute(ctx)
}
