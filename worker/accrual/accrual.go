package accrual

import (
	"context"
	"time"

	"termpool/core"
	"termpool/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/robfig/cron/v3"
)

// EngineRegistry every accounting engine to sweep
type EngineRegistry interface {
	All() []core.IPoolAccounting
}

// Worker accrual sweep worker: releases unassigned earnings of every open
// maturity pool on a fixed cadence so backer earnings never lag further than
// one tick behind.
type Worker struct {
	worker.BaseJob
	Config  *core.Config
	Engines EngineRegistry
}

// New new accrual worker
func New(cfg *core.Config, engines EngineRegistry) *Worker {
	job := Worker{
		Config:  cfg,
		Engines: engines,
	}

	l, _ := time.LoadLocation(job.Config.App.Location)
	job.Cron = cron.New(cron.WithLocation(l))
	spec := "@every 60s"
	job.Cron.AddFunc(spec, job.Run)
	job.OnWork = func() error {
		return job.onWork(context.Background())
	}

	return &job
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "accrual")

	now := time.Now()
	for _, engine := range w.Engines.All() {
		if err := engine.AccrueAll(ctx, now); err != nil {
			log.WithError(err).Errorln("accrue:", engine.AssetID())
		}
	}

	return nil
}
