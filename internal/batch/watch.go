package batch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"highlighter/internal/logging"
	"highlighter/internal/services"
)

// Watch runs job on the cron schedule until ctx is done. When immediate is
// set the job also runs once before the first scheduled tick. A tick that
// fires while the previous job is still running is skipped.
func Watch(ctx context.Context, schedule string, immediate bool, logger *slog.Logger, job func(context.Context)) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "watch")

	spec := strings.TrimSpace(schedule)
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return services.Wrap(services.ErrValidation, "watch", "schedule", "invalid workflow.schedule "+spec, err)
	}

	clog := cronLogger{logger: logger}
	c := cron.New(cron.WithLogger(clog), cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)))
	c.Schedule(sched, cron.FuncJob(func() {
		if ctx.Err() == nil {
			job(ctx)
		}
	}))

	if immediate {
		job(ctx)
	}
	if ctx.Err() != nil {
		return nil
	}

	c.Start()
	logger.Info("watch started",
		logging.String(logging.FieldEventType, "watch_start"),
		logging.String("schedule", spec),
		logging.String("next_run", sched.Next(time.Now()).Format("2006-01-02 15:04:05")),
	)

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("watch stopped", logging.String(logging.FieldEventType, "watch_stop"))
	return nil
}

// cronLogger routes cron's key/value logging into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron "+msg, append(keysAndValues, logging.Error(err))...)
}
