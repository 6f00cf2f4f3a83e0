package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/curator/internal/sample"
)

// Writer persists accepted samples one row at a time.
type Writer struct {
	store   SampleStore
	timeout time.Duration
	logger  *slog.Logger
}

// WriteStats counts writer outcomes.
type WriteStats struct {
	Created       int
	AlreadyStored int
	Failed        int
	Canceled      bool
}

// Write stores each sample with its own timeout. Failed rows are logged and
// skipped. Cancellation stops the loop; rows already written stay.
func (w *Writer) Write(ctx context.Context, batch []sample.TrainingSample) WriteStats {
	var st WriteStats
	for _, ts := range batch {
		if ctx.Err() != nil {
			st.Canceled = true
			return st
		}

		wctx, cancel := context.WithTimeout(ctx, w.timeout)
		inserted, err := w.store.WriteSample(wctx, ts)
		cancel()

		switch {
		case err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil:
			st.Canceled = true
			return st
		case err != nil:
			w.logger.Error("failed to write training sample", "sample_id", ts.ID, "error", err)
			st.Failed++
		case inserted:
			st.Created++
		default:
			st.AlreadyStored++
		}
	}
	return st
}
