// Package worker contains the background maintenance jobs: draining pending
// view counters into the posts table and repairing derived scores and
// denormalized counters.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lokmanch/lokmanch/internal/domain"
	"github.com/lokmanch/lokmanch/internal/platform/metrics"
)

// Reconciler re-derives what the request path maintains incrementally. It is
// the repair mechanism behind the atomic counter updates, not part of the
// hot path.
type Reconciler struct {
	polls    domain.PollStore
	comments domain.CommentRepository
	views    domain.ViewCounter
	posts    domain.PostRepository
	log      *slog.Logger
}

func NewReconciler(
	polls domain.PollStore,
	comments domain.CommentRepository,
	views domain.ViewCounter,
	posts domain.PostRepository,
	log *slog.Logger,
) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		polls:    polls,
		comments: comments,
		views:    views,
		posts:    posts,
		log:      log,
	}
}

// Run executes one full maintenance pass and returns the number of rows it
// had to fix. The view flush runs even when score repair fails; pending view
// deltas are the only data that exists nowhere else.
func (r *Reconciler) Run(ctx context.Context) (int64, error) {
	start := time.Now()
	metrics.IncReconcileRun()

	var fixed int64
	var firstErr error

	if r.polls != nil {
		n, err := r.polls.ReconcileScores(ctx)
		if err != nil {
			firstErr = fmt.Errorf("worker: reconcile scores: %w", err)
		}
		fixed += n
	}

	if r.comments != nil {
		n, err := r.comments.ReconcileCounters(ctx)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("worker: reconcile counters: %w", err)
		}
		fixed += n
	}

	if err := r.FlushViews(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	metrics.AddReconcileFixed(float64(fixed))
	metrics.ObserveReconcileDuration(time.Since(start).Seconds())

	if firstErr != nil {
		return fixed, firstErr
	}
	r.log.InfoContext(ctx, "reconcile pass finished",
		slog.Int64("rows_fixed", fixed),
		slog.Duration("took", time.Since(start)))
	return fixed, nil
}

// FlushViews drains the pending Redis view counters into the posts table.
func (r *Reconciler) FlushViews(ctx context.Context) error {
	if r.views == nil || r.posts == nil {
		return nil
	}

	pending, err := r.views.Drain(ctx)
	if err != nil {
		return fmt.Errorf("worker: drain views: %w", err)
	}

	var flushed int64
	for postID, delta := range pending {
		if err := r.posts.AddViews(ctx, postID, delta); err != nil {
			// A failed write loses at most this post's delta for one cycle;
			// keep flushing the rest.
			r.log.ErrorContext(ctx, "flush views failed",
				slog.String("post_id", string(postID)),
				slog.String("error", err.Error()))
			continue
		}
		flushed += delta
	}

	if flushed > 0 {
		metrics.AddViewsFlushed(float64(flushed))
		r.log.InfoContext(ctx, "views flushed",
			slog.Int("posts", len(pending)),
			slog.Int64("views", flushed))
	}
	return nil
}
