package blockwatcher

import (
	"context"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Scheduler fires a callback on a six-field cron schedule (seconds first,
// matching network.cron_schedule) until its context is cancelled.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates a scheduler using the six-field parser.
func NewScheduler() *Scheduler {
	return &Scheduler{cron: cron.New(cron.WithParser(cronParser))}
}

// Schedule validates expr and registers fn to run on every tick, returning
// the cron entry id of the registered job; an invalid expression is
// rejected immediately rather than silently never firing.
func (s *Scheduler) Schedule(expr string, fn func()) (cron.EntryID, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return 0, NetworkError("invalid cron_schedule " + expr + ": " + err.Error())
	}
	return s.cron.Schedule(schedule, cron.FuncJob(fn)), nil
}

// Start begins firing scheduled jobs in background goroutines.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels all pending ticks and waits for running jobs to finish,
// respecting ctx as an upper bound on the wait.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
