package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/jhoelito123/PyStart/core/course"
)

// recompute refreshes the derived course fields and the progress of their enrollments.
// courseID 0 means every course.
func (cli *commandLine) recompute(ctx context.Context, courseID int) error {
	if courseID > 0 {
		if _, err := cli.courseSvc.GetCourse(ctx, courseID); err != nil {
			return err
		}
		durChanged, err := cli.recomputer.RecomputeDuration(ctx, courseID)
		if err != nil {
			return err
		}
		ratingChanged, err := cli.recomputer.RecomputeRating(ctx, courseID)
		if err != nil {
			return err
		}
		updated, err := cli.tracker.RecomputeCourse(ctx, courseID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "course %d: duration changed=%t, rating changed=%t, %d enrollment(s) updated\n",
			courseID, durChanged, ratingChanged, updated)
		return nil
	}

	changed, err := cli.recomputer.RecomputeAll(ctx)
	if err != nil {
		return err
	}
	courses, err := cli.courseSvc.ListCourses(ctx, course.CourseFilter{}, nil)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	var updated int
	for _, c := range courses {
		n, err := cli.tracker.RecomputeCourse(ctx, c.ID)
		if err != nil {
			return err
		}
		updated += n
	}
	fmt.Fprintf(cli.out, "%d course(s) changed, %d enrollment(s) updated\n", changed, updated)
	return nil
}
