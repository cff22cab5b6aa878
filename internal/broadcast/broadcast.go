// Package broadcast delivers one message to a snapshot of recipients,
// pacing sends and isolating per-recipient failures.
package broadcast

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/m3rciful/refbot/core/logger"
)

// Messenger is the outbound capability a run needs. The production
// implementation wraps the Telegram client.
type Messenger interface {
	SendText(ctx context.Context, userID int64, text string) error
	SendPhoto(ctx context.Context, userID int64, mediaRef, caption string) error
}

// Kind selects the delivery method for a payload.
type Kind string

const (
	KindText  Kind = "text"
	KindPhoto Kind = "photo"
)

// Payload is the content delivered to every recipient.
type Payload struct {
	Kind     Kind
	Text     string
	MediaRef string
}

// Job pairs a payload with the recipient snapshot taken at confirmation
// time; users registering mid-run are not picked up.
type Job struct {
	Payload    Payload
	Recipients []int64
}

// Summary reports the outcome of one run.
type Summary struct {
	Attempted int
	Succeeded int
	Failed    int
	Err       error
}

// Dispatcher runs broadcast jobs sequentially within a run.
type Dispatcher struct {
	messenger Messenger
	pace      time.Duration
}

// New builds a dispatcher; pace is the pause between consecutive sends and
// falls back to 100ms when non-positive.
func New(messenger Messenger, pace time.Duration) *Dispatcher {
	if pace <= 0 {
		pace = 100 * time.Millisecond
	}
	return &Dispatcher{messenger: messenger, pace: pace}
}

// Run delivers the job to every recipient in order. A failed send is logged
// and counted, never aborting the sweep; only context cancellation stops a
// run early. The pause between sends yields to cancellation instead of
// blocking the goroutine.
func (d *Dispatcher) Run(ctx context.Context, job Job) Summary {
	start := time.Now()
	summary := Summary{}
	var errs *multierror.Error

	timer := time.NewTimer(d.pace)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for i, userID := range job.Recipients {
		if ctx.Err() != nil {
			errs = multierror.Append(errs, ctx.Err())
			break
		}

		summary.Attempted++
		if err := d.send(ctx, userID, job.Payload); err != nil {
			summary.Failed++
			errs = multierror.Append(errs, err)
			logger.LogEvent(ctx, logger.SVCBroadcast, slog.LevelWarn, "broadcast.send_failed",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()))
		} else {
			summary.Succeeded++
		}

		if i == len(job.Recipients)-1 {
			break
		}
		timer.Reset(d.pace)
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	}
	summary.Err = errs.ErrorOrNil()

	logger.LogEvent(ctx, logger.SVCBroadcast, slog.LevelInfo, "broadcast.finished",
		slog.String("kind", string(job.Payload.Kind)),
		slog.Int("attempted", summary.Attempted),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return summary
}

func (d *Dispatcher) send(ctx context.Context, userID int64, p Payload) error {
	if p.Kind == KindPhoto {
		return d.messenger.SendPhoto(ctx, userID, p.MediaRef, p.Text)
	}
	return d.messenger.SendText(ctx, userID, p.Text)
}
