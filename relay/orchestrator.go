// Package relay orchestrates archive requests: it turns raw chat text
// into a canonical BV id, submits it to the archive service, and follows
// up with one bounded polling task per accepted request.
package relay

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/onnwee/bili-relay/bvid"
	"github.com/onnwee/bili-relay/telemetry"
)

// Poll schedule defaults: 30 attempts with a linearly growing delay.
// Archiving time is unbounded and highly variable, so later attempts are
// spaced further apart while short jobs are still noticed quickly.
const (
	DefaultAttempts  = 30
	DefaultBaseDelay = 28 * time.Second
	DefaultStepDelay = 4500 * time.Millisecond
)

// Archiver is the subset of the archive client the orchestrator needs.
type Archiver interface {
	Add(ctx context.Context, bv bvid.Bvid) bool
	Check(ctx context.Context, bv bvid.Bvid) (string, bool)
}

// TextResolver expands short links ahead of id extraction.
type TextResolver interface {
	Resolve(ctx context.Context, text string) string
}

// Request is one inbound archive request from the chat layer.
type Request struct {
	Channel string
	UserID  int64
	Text    string
}

// Notifier reports user-visible outcomes back to the chat layer. Only two
// messages ever reach the user: the submit outcome, and the artifact URL
// if a polling task completes. An exhausted task stays silent.
type Notifier interface {
	SubmitOutcome(req Request, bv bvid.Bvid, accepted bool)
	ArchiveReady(req Request, bv bvid.Bvid, url string)
}

// Orchestrator drives the submit-then-poll state machine. Construct with
// New; fields are fixed after that.
type Orchestrator struct {
	archiver Archiver
	resolver TextResolver
	notifier Notifier

	attempts  int
	baseDelay time.Duration
	stepDelay time.Duration

	// after is the timer seam; tests swap it to advance simulated time.
	after func(time.Duration) <-chan time.Time

	active atomic.Int64
}

// Option tweaks orchestrator construction.
type Option func(*Orchestrator)

// WithSchedule overrides the polling attempt budget and delay curve.
func WithSchedule(attempts int, base, step time.Duration) Option {
	return func(o *Orchestrator) {
		if attempts > 0 {
			o.attempts = attempts
		}
		if base > 0 {
			o.baseDelay = base
		}
		if step >= 0 {
			o.stepDelay = step
		}
	}
}

func withAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(o *Orchestrator) { o.after = after }
}

// New wires an orchestrator with the default schedule.
func New(a Archiver, r TextResolver, n Notifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		archiver:  a,
		resolver:  r,
		notifier:  n,
		attempts:  DefaultAttempts,
		baseDelay: DefaultBaseDelay,
		stepDelay: DefaultStepDelay,
		after:     time.After,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Delay returns the wait before attempt i (0-indexed).
func (o *Orchestrator) Delay(i int) time.Duration {
	return o.baseDelay + time.Duration(i)*o.stepDelay
}

// ActivePollers reports how many polling tasks are in flight.
func (o *Orchestrator) ActivePollers() int64 { return o.active.Load() }

// HandleRequest resolves short links in the request text, extracts the
// first BV id, submits it, and spawns the polling task. Text without an
// id is skipped silently. The polling task outlives this call; it stops
// only on completion, attempt exhaustion, or ctx cancellation at process
// shutdown.
func (o *Orchestrator) HandleRequest(ctx context.Context, req Request) {
	text := o.resolver.Resolve(ctx, req.Text)
	bv, err := bvid.Parse(text)
	if err != nil {
		slog.Debug("no bvid in request", slog.String("channel", req.Channel), slog.Int64("user", req.UserID))
		return
	}
	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("bvid", bv.String()), slog.String("component", "relay"))

	ctx, span := telemetry.StartSpan(ctx, "relay", "submit", telemetry.BvidAttr(bv.String()))
	accepted := o.archiver.Add(ctx, bv)
	span.End()
	if accepted {
		telemetry.SubmissionsAccepted.Inc()
		logger.Info("archive request submitted")
	} else {
		telemetry.SubmissionsRejected.Inc()
		// The service may have taken the request despite a failure we
		// observed, so polling proceeds either way.
		logger.Warn("archive request rejected or failed")
	}
	o.notifier.SubmitOutcome(req, bv, accepted)

	go o.poll(ctx, req, bv, logger)
}

// poll runs the bounded status-check loop for one submission. Attempts
// execute strictly in order; a transport failure during a check consumes
// the attempt like any other "not ready" answer.
func (o *Orchestrator) poll(ctx context.Context, req Request, bv bvid.Bvid, logger *slog.Logger) {
	o.active.Add(1)
	telemetry.PollerStarted()
	start := time.Now()
	defer func() {
		o.active.Add(-1)
		telemetry.PollerFinished()
		if telemetry.PollTaskDuration != nil {
			telemetry.PollTaskDuration.Observe(time.Since(start).Seconds())
		}
	}()

	for i := 0; i < o.attempts; i++ {
		select {
		case <-ctx.Done():
			logger.Debug("polling task abandoned at shutdown", slog.Int("attempt", i))
			return
		case <-o.after(o.Delay(i)):
		}
		telemetry.StatusChecks.Inc()
		if url, ok := o.archiver.Check(ctx, bv); ok {
			telemetry.ArchivesCompleted.Inc()
			logger.Info("archive complete", slog.String("url", url), slog.Int("attempt", i))
			o.notifier.ArchiveReady(req, bv, url)
			return
		}
	}
	telemetry.PollsAbandoned.Inc()
	logger.Info("polling attempts exhausted", slog.Int("attempts", o.attempts))
}
