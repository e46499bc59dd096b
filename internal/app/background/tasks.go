package background

import (
	"context"
	"log/slog"
)

// Runner is a periodic job with an explicit lifecycle.
type Runner interface {
	Start(ctx context.Context) error
	Stop()
}

type BackgroundTasks struct {
	runners map[string]Runner
	logger  *slog.Logger
}

func NewBackgroundTasks(logger *slog.Logger) *BackgroundTasks {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackgroundTasks{runners: make(map[string]Runner), logger: logger}
}

func (bt *BackgroundTasks) Add(name string, r Runner) {
	bt.runners[name] = r
}

// Run starts every runner and blocks until ctx is done, then stops them all. A runner
// that fails to start stops the ones already started.
func (bt *BackgroundTasks) Run(ctx context.Context) error {
	var started []string
	for name, r := range bt.runners {
		if err := r.Start(ctx); err != nil {
			bt.logger.Error("background task failed to start", "task", name, "error", err)
			bt.stop(started)
			return err
		}
		bt.logger.Info("background task started", "task", name)
		started = append(started, name)
	}

	<-ctx.Done()
	bt.stop(started)
	return nil
}

func (bt *BackgroundTasks) stop(names []string) {
	for _, name := range names {
		bt.runners[name].Stop()
		bt.logger.Info("background task stopped", "task", name)
	}
}
