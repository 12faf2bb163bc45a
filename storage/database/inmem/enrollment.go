package inmemdb

import (
	"context"

	"github.com/jhoelito123/PyStart/core/course"
	"github.com/jhoelito123/PyStart/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	err := repo.db.write(ctx, func(t *tables) error {
		c, ok := t.courses[e.CourseID]
		if !ok {
			return course.ErrNotFound
		}
		for _, other := range t.enrollments {
			if other.StudentID == e.StudentID && other.CourseID == e.CourseID {
				return enrollment.ErrDuplicateEnrollment
			}
		}
		e.ID = t.nextID("enrollments")
		e.CourseName = ""
		t.enrollments[e.ID] = e
		e.CourseName = c.Name
		return nil
	})
	return e, err
}

func withCourseName(t *tables, e enrollment.Enrollment) enrollment.Enrollment {
	e.CourseName = t.courses[e.CourseID].Name
	return e
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, studentID, courseID int) (enr enrollment.Enrollment, err error) {
	repo.db.read(func(t *tables) {
		for _, e := range t.enrollments {
			if e.StudentID == studentID && e.CourseID == courseID {
				enr = withCourseName(t, e)
				return
			}
		}
		err = enrollment.ErrEnrollmentNotFound
	})
	return enr, err
}

func (repo *enrollmentRepository) ListEnrollments(_ context.Context, filter enrollment.Filter) (enrs []enrollment.Enrollment, err error) {
	repo.db.read(func(t *tables) {
		enrs = byID(t.enrollments, func(e enrollment.Enrollment) bool {
			return (filter.StudentID == 0 || e.StudentID == filter.StudentID) &&
				(filter.CourseID == 0 || e.CourseID == filter.CourseID)
		})
		for i := range enrs {
			enrs[i] = withCourseName(t, enrs[i])
		}
	})
	return enrs, nil
}

func (repo *enrollmentRepository) UpdateEnrollmentProgress(ctx context.Context, id int, progress float64, completed bool) error {
	return repo.db.write(ctx, func(t *tables) error {
		e, ok := t.enrollments[id]
		if !ok {
			return enrollment.ErrEnrollmentNotFound
		}
		e.Progress, e.Completed = progress, completed
		t.enrollments[id] = e
		return nil
	})
}

func (repo *enrollmentRepository) CreateSectionProgress(ctx context.Context, sp enrollment.SectionProgress) (enrollment.SectionProgress, error) {
	err := repo.db.write(ctx, func(t *tables) error {
		if _, ok := t.sections[sp.SectionID]; !ok {
			return course.ErrSectionNotFound
		}
		if _, ok := t.enrollments[sp.EnrollmentID]; !ok {
			return enrollment.ErrEnrollmentNotFound
		}
		for _, other := range t.progress {
			if other.StudentID == sp.StudentID && other.SectionID == sp.SectionID {
				return enrollment.ErrDuplicateCompletion
			}
		}
		sp.ID = t.nextID("section_progress")
		t.progress[sp.ID] = sp
		return nil
	})
	return sp, err
}

func (repo *enrollmentRepository) DeleteSectionProgress(ctx context.Context, studentID, sectionID int) error {
	return repo.db.write(ctx, func(t *tables) error {
		for _, sp := range t.progress {
			if sp.StudentID == studentID && sp.SectionID == sectionID {
				delete(t.progress, sp.ID)
				return nil
			}
		}
		return enrollment.ErrCompletionNotFound
	})
}

func completedInCourse(t *tables, studentID, courseID int) func(enrollment.SectionProgress) bool {
	return func(sp enrollment.SectionProgress) bool {
		s, ok := t.sections[sp.SectionID]
		return ok && sp.StudentID == studentID && s.CourseID == courseID
	}
}

func (repo *enrollmentRepository) ListSectionProgress(_ context.Context, studentID, courseID int) (sps []enrollment.SectionProgress, err error) {
	repo.db.read(func(t *tables) {
		sps = byID(t.progress, completedInCourse(t, studentID, courseID))
	})
	return sps, nil
}

func (repo *enrollmentRepository) CountSections(_ context.Context, courseID int) (n int, err error) {
	repo.db.read(func(t *tables) {
		for _, s := range t.sections {
			if s.CourseID == courseID {
				n++
			}
		}
	})
	return n, nil
}

func (repo *enrollmentRepository) CountCompletedSections(_ context.Context, studentID, courseID int) (n int, err error) {
	repo.db.read(func(t *tables) {
		n = len(byID(t.progress, completedInCourse(t, studentID, courseID)))
	})
	return n, nil
}
