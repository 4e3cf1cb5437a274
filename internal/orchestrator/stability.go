package orchestrator

import (
	"context"
	"time"
)

// TimeoutSentinel is returned by awaitStable when the capture window closes
// before any text was seen.
const TimeoutSentinel = "capture timed out"

// pollFunc returns the current best candidate text from a streaming source.
type pollFunc func(ctx context.Context) (string, error)

// stabilityOptions tunes one awaitStable call.
type stabilityOptions struct {
	// interval is the poll cadence.
	interval time.Duration

	// quietPolls is how many consecutive unchanged polls declare completion.
	quietPolls int

	// minLength gates completion: quiet polls only count once the text is
	// longer than this.
	minLength int

	// maxWait bounds the whole capture.
	maxWait time.Duration
}

// awaitStable polls source until the candidate text stops growing for the
// configured quiet period, then returns it. Agents emit partial, growing text
// with no explicit done signal; a fixed quiet period is the completion
// heuristic.
//
// Each poll that grows the text forwards the new snapshot via onChunk and
// resets the quiet counter. Polls that return the same length decrement the
// counter, but only once the text exceeds minLength. Shrinking snapshots
// (bursty UI redraws) replace the remembered text and reset the counter
// without emitting. Poll errors are tolerated; the loop keeps the last good
// snapshot and tries again.
//
// awaitStable never returns an error. If maxWait elapses, or ctx is
// canceled, it returns the last text seen — or TimeoutSentinel when nothing
// was captured at all.
func awaitStable(ctx context.Context, source pollFunc, opts stabilityOptions, onChunk func(string)) string {
	if opts.interval <= 0 {
		opts.interval = DefaultPollInterval
	}
	if opts.quietPolls <= 0 {
		opts.quietPolls = DefaultQuietPolls
	}
	if opts.maxWait <= 0 {
		opts.maxWait = DefaultMaxWait
	}

	deadline := time.NewTimer(opts.maxWait)
	defer deadline.Stop()
	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	var (
		last    string
		lastLen = -1 // so an initial empty poll counts as an observation
		counter = opts.quietPolls
	)

	finish := func() string {
		if last == "" {
			return TimeoutSentinel
		}
		return last
	}

	for {
		select {
		case <-ctx.Done():
			return finish()
		case <-deadline.C:
			return finish()
		case <-ticker.C:
		}

		text, err := source(ctx)
		if err != nil {
			continue
		}

		switch {
		case len(text) > lastLen:
			// Progress: forward the snapshot and restart the quiet period.
			last = text
			lastLen = len(text)
			counter = opts.quietPolls
			if onChunk != nil && text != "" {
				onChunk(text)
			}
		case len(text) == lastLen:
			if lastLen > opts.minLength {
				counter--
				if counter <= 0 {
					return last
				}
			}
		default:
			// Mid-redraw shrink: remember it, restart the quiet period.
			last = text
			lastLen = len(text)
			counter = opts.quietPolls
		}
	}
}
