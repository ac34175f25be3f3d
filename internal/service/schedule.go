package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/srt-line-translator/pkg/icron"
	"github.com/MimeLyc/srt-line-translator/pkg/log"
)

// ScheduleUntilDone runs run once. If it aborts with a FatalTranslation error
// and expr is set, run is repeated on the cron schedule expr until it
// succeeds, fails with any other error, or ctx is done. Each repetition
// resumes from the checkpoint the previous one left behind.
func ScheduleUntilDone(ctx context.Context, expr string, run func(ctx context.Context) error) error {
	err := run(ctx)
	if err == nil || expr == "" || !IsErrorType(err, ErrFatalTranslation) || ctx.Err() != nil {
		return err
	}
	if _, perr := icron.Parse(expr); perr != nil {
		return WrapError(perr, ErrConfig, "invalid resume schedule")
	}
	logNextTrigger(expr, err)

	c := cron.New(cron.WithParser(icron.Parser))
	finished := make(chan error, 1)
	var group singleflight.Group

	_, addErr := c.AddFunc(expr, func() {
		_, _, _ = group.Do("resume", func() (any, error) {
			if ctx.Err() != nil {
				return nil, nil
			}
			log.Info("Scheduled resume started")
			err := run(ctx)
			if err != nil && IsErrorType(err, ErrFatalTranslation) && ctx.Err() == nil {
				logNextTrigger(expr, err)
				return nil, nil
			}
			select {
			case finished <- err:
			default:
			}
			return nil, nil
		})
	})
	if addErr != nil {
		return WrapError(addErr, ErrConfig, "invalid resume schedule")
	}

	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	select {
	case err := <-finished:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func logNextTrigger(expr string, cause error) {
	info, err := icron.GetTriggerInfo(expr, time.Now())
	if err != nil {
		log.Warn("Run failed, resume schedule %q is invalid: %v", expr, err)
		return
	}
	log.Warn("Run failed, resuming at %s (in %s): %v",
		info.Next.Format(time.DateTime), info.TimeUntilNext.Round(time.Second), cause)
}
