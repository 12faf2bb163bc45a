package main

import (
	"context"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/jhoelito123/PyStart/core"
	"github.com/jhoelito123/PyStart/core/course"
)

var reportTitle = color.New(color.FgCyan, color.Bold)

// report prints every course with its derived fields and enrollment stats.
func (cli *commandLine) report(ctx context.Context) error {
	courses, err := cli.courseSvc.ListCourses(ctx, course.CourseFilter{},
		[]core.DBOrdering{{Field: "name", Ascending: true}})
	if err != nil {
		return err
	}

	reportTitle.Fprintf(cli.out, "%d course(s)\n", len(courses))

	table := tablewriter.NewWriter(cli.out)
	table.SetHeader([]string{"ID", "Name", "Instructor", "Duration", "Rating", "Students", "Completed"})
	table.SetAutoWrapText(false)
	for _, c := range courses {
		enrollments, err := cli.tracker.ListByCourse(ctx, c.ID)
		if err != nil {
			return err
		}
		var completed int
		for _, enr := range enrollments {
			if enr.Completed {
				completed++
			}
		}
		table.Append([]string{
			strconv.Itoa(c.ID),
			c.Name,
			strconv.Itoa(c.InstructorID),
			c.Duration.String(),
			strconv.FormatFloat(c.Rating, 'f', 2, 64),
			strconv.Itoa(len(enrollments)),
			strconv.Itoa(completed),
		})
	}
	table.Render()
	return nil
}
