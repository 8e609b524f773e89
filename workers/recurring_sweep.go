package workers

import (
	"context"
	"fmt"
	"time"

	"nova-rewards/services"
	"nova-rewards/utils"

	"github.com/go-co-op/gocron/v2"
)

// RecurringSweep pre-generates due recurring task instances for every user
// with templates, so lists are warm before the first page load of a period.
type RecurringSweep struct {
	Scheduler *services.SchedulerService
	log       *utils.Logger
}

func NewRecurringSweep(scheduler *services.SchedulerService, log *utils.Logger) *RecurringSweep {
	return &RecurringSweep{
		Scheduler: scheduler,
		log:       log.With("worker", "RecurringSweep"),
	}
}

// RunOnce sweeps all users and returns how many instances were created.
// A failing user is logged and skipped.
func (w *RecurringSweep) RunOnce(ctx context.Context) (int, error) {
	users, err := w.Scheduler.UsersWithTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list template owners: %w", err)
	}

	created := 0
	for _, userID := range users {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}
		ids, err := w.Scheduler.GenerateDueInstances(ctx, userID)
		if err != nil {
			w.log.Error("recurring sweep failed for user", "user_id", userID, "error", err)
			continue
		}
		created += len(ids)
	}
	return created, nil
}

// Start runs the sweep every interval until ctx is cancelled.
func (w *RecurringSweep) Start(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			n, err := w.RunOnce(ctx)
			if err != nil {
				w.log.Error("recurring sweep aborted", "error", err)
				return
			}
			if n > 0 {
				w.log.Info("🔁 recurring sweep generated instances", "count", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	go func() {
		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			w.log.Warn("recurring sweep shutdown", "error", err)
		}
	}()
	w.log.Info("✅ recurring sweep scheduled", "interval", interval.String())
	return sched, nil
}
