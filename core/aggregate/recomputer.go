// Package aggregate keeps the derived fields of a course (duration and rating)
// equal to the values computed from its sections and comments.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/jhoelito123/PyStart/core"
)

var ErrCourseNotFound = core.NewNotFoundError("course")

// Aggregates are the stored derived fields of a course.
type Aggregates struct {
	Duration time.Duration
	Rating   float64
}

// Store is the storage surface needed to recompute course aggregates.
type Store interface {
	GetCourseAggregates(ctx context.Context, courseID int) (Aggregates, error)
	// SumSectionDurations returns 0 when the course has no sections.
	SumSectionDurations(ctx context.Context, courseID int) (time.Duration, error)
	// AverageCommentScore returns ok=false when the course has no comments.
	AverageCommentScore(ctx context.Context, courseID int) (avg float64, ok bool, err error)
	SetCourseDuration(ctx context.Context, courseID int, d time.Duration) error
	SetCourseRating(ctx context.Context, courseID int, rating float64) error
	ListCourseIDs(ctx context.Context) ([]int, error)
}

type Recomputer struct {
	store  Store
	logger core.Logger
}

func NewRecomputer(store Store, logger core.Logger) *Recomputer {
	vala.BeginValidation().Validate(
		vala.IsNotNil(store, "store"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Recomputer{store: store, logger: logger}
}

// RecomputeDuration sets the course duration to the sum of its sections' durations.
// Nothing is written when the stored value is already right.
func (r *Recomputer) RecomputeDuration(ctx context.Context, courseID int) (bool, error) {
	aggr, err := r.store.GetCourseAggregates(ctx, courseID)
	if err != nil {
		return false, errors.Wrap(err, "getting course aggregates")
	}
	total, err := r.store.SumSectionDurations(ctx, courseID)
	if err != nil {
		return false, errors.Wrap(err, "summing section durations")
	}
	if total == aggr.Duration {
		return false, nil
	}
	if err := r.store.SetCourseDuration(ctx, courseID, total); err != nil {
		return false, errors.Wrap(err, "setting course duration")
	}
	return true, nil
}

// RecomputeRating sets the course rating to the mean comment score rounded to 2 decimals,
// or 0 when the course has no comments. Nothing is written when the stored value is already right.
func (r *Recomputer) RecomputeRating(ctx context.Context, courseID int) (bool, error) {
	aggr, err := r.store.GetCourseAggregates(ctx, courseID)
	if err != nil {
		return false, errors.Wrap(err, "getting course aggregates")
	}
	avg, ok, err := r.store.AverageCommentScore(ctx, courseID)
	if err != nil {
		return false, errors.Wrap(err, "averaging comment scores")
	}
	rating := 0.0
	if ok {
		rating = core.Round2(avg)
	}
	if rating == aggr.Rating {
		return false, nil
	}
	if err := r.store.SetCourseRating(ctx, courseID, rating); err != nil {
		return false, errors.Wrap(err, "setting course rating")
	}
	return true, nil
}

// RecomputeAll recomputes both aggregates of every course and returns how many courses changed.
// A failing course is logged and skipped.
func (r *Recomputer) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := r.store.ListCourseIDs(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "listing courses")
	}

	var changed int
	for _, id := range ids {
		durChanged, err := r.RecomputeDuration(ctx, id)
		if err != nil {
			r.logger.Warn(fmt.Sprintf("recomputing duration of course %d: %v", id, err), err)
		}
		ratingChanged, err := r.RecomputeRating(ctx, id)
		if err != nil {
			r.logger.Warn(fmt.Sprintf("recomputing rating of course %d: %v", id, err), err)
		}
		if durChanged || ratingChanged {
			changed++
		}
	}
	return changed, nil
}
