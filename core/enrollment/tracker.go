package enrollment

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/jhoelito123/PyStart/core"
	"github.com/jhoelito123/PyStart/core/course"
	"github.com/jhoelito123/PyStart/core/user"
)

var (
	// errors
	ErrEnrollmentNotFound  = core.NewNotFoundError("enrollment")
	ErrCompletionNotFound  = core.NewNotFoundError("section completion")
	ErrDuplicateEnrollment = errors.New("student is already enrolled in this course")
	ErrDuplicateCompletion = core.NewConflictError("section already completed")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		// CreateEnrollment fails with ErrDuplicateEnrollment when the student is already enrolled.
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, studentID, courseID int) (Enrollment, error)
		ListEnrollments(ctx context.Context, filter Filter) ([]Enrollment, error)
		UpdateEnrollmentProgress(ctx context.Context, id int, progress float64, completed bool) error

		// CreateSectionProgress fails with ErrDuplicateCompletion when the section is already completed.
		CreateSectionProgress(ctx context.Context, sp SectionProgress) (SectionProgress, error)
		DeleteSectionProgress(ctx context.Context, studentID, sectionID int) error
		ListSectionProgress(ctx context.Context, studentID, courseID int) ([]SectionProgress, error)

		CountSections(ctx context.Context, courseID int) (int, error)
		// CountCompletedSections counts the student's completion records whose section belongs to the course.
		CountCompletedSections(ctx context.Context, studentID, courseID int) (int, error)
	}

	CourseReader interface {
		GetCourse(ctx context.Context, id int) (course.Course, error)
		GetSection(ctx context.Context, id int) (course.Section, error)
	}

	StudentGetter interface {
		GetByID(ctx context.Context, id int) (user.User, error)
	}

	// Tracker records section completions and keeps enrollment progress in line with them.
	Tracker struct {
		repo     Repository
		courses  CourseReader
		students StudentGetter
		tx       core.Transactor
		mailSvc  core.EmailService
		logger   core.Logger
	}
)

func NewTracker(
	repo Repository,
	courses CourseReader,
	students StudentGetter,
	tx core.Transactor,
	mailSvc core.EmailService,
	logger core.Logger,
) *Tracker {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(courses, "courses"),
		vala.IsNotNil(students, "students"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Tracker{
		repo:     repo,
		courses:  courses,
		students: students,
		tx:       tx,
		mailSvc:  mailSvc,
		logger:   logger,
	}
}

// Enroll enrolls the student in the course.
func (t *Tracker) Enroll(ctx context.Context, studentID, courseID int) (Enrollment, error) {
	var enr Enrollment
	err := t.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := t.courses.GetCourse(ctx, courseID); err != nil {
			if core.IsNotFound(err) {
				return core.NewValidationError(err, core.FieldError{Field: "course_id", Error: err.Error()})
			}
			return errors.Wrap(err, "getting course")
		}

		var err error
		enr, err = t.repo.CreateEnrollment(ctx, Enrollment{
			StudentID:  studentID,
			CourseID:   courseID,
			EnrolledAt: nowFunc(),
		})
		if err != nil {
			if errors.Cause(err) == ErrDuplicateEnrollment {
				return core.NewValidationError(ErrDuplicateEnrollment, core.FieldError{Field: "course_id", Error: ErrDuplicateEnrollment.Error()})
			}
			return errors.Wrap(err, "creating enrollment")
		}
		enr, _, err = t.RecomputeProgress(ctx, enr)
		return err
	})
	if err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

// RecordSectionCompletion marks the section as completed by the student and refreshes the
// progress of their enrollment in the section's course.
func (t *Tracker) RecordSectionCompletion(ctx context.Context, studentID, sectionID int) (SectionProgress, Enrollment, error) {
	var (
		sp             SectionProgress
		enr            Enrollment
		newlyCompleted bool
	)
	err := t.tx.InTx(ctx, func(ctx context.Context) error {
		sec, err := t.courses.GetSection(ctx, sectionID)
		if err != nil {
			return err
		}
		if enr, err = t.repo.GetEnrollment(ctx, studentID, sec.CourseID); err != nil {
			return err
		}

		sp, err = t.repo.CreateSectionProgress(ctx, SectionProgress{
			StudentID:    studentID,
			SectionID:    sectionID,
			EnrollmentID: enr.ID,
			CompletedAt:  nowFunc(),
		})
		if err != nil {
			return err
		}

		wasCompleted := enr.Completed
		if enr, _, err = t.RecomputeProgress(ctx, enr); err != nil {
			return err
		}
		newlyCompleted = !wasCompleted && enr.Completed
		return nil
	})
	if err != nil {
		return SectionProgress{}, Enrollment{}, err
	}

	if newlyCompleted {
		t.sendCompletionMail(ctx, enr)
	}
	return sp, enr, nil
}

// RevokeSectionCompletion removes the student's completion record of the section and refreshes
// the progress of their enrollment.
func (t *Tracker) RevokeSectionCompletion(ctx context.Context, studentID, sectionID int) (Enrollment, error) {
	var enr Enrollment
	err := t.tx.InTx(ctx, func(ctx context.Context) error {
		sec, err := t.courses.GetSection(ctx, sectionID)
		if err != nil {
			return err
		}
		if enr, err = t.repo.GetEnrollment(ctx, studentID, sec.CourseID); err != nil {
			return err
		}
		if err = t.repo.DeleteSectionProgress(ctx, studentID, sectionID); err != nil {
			return err
		}
		enr, _, err = t.RecomputeProgress(ctx, enr)
		return err
	})
	if err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

// RecomputeProgress sets the enrollment progress to the share of the course sections the
// student completed, rounded to 2 decimals, and completed to progress >= 100.
// Nothing is written when both fields are already right.
func (t *Tracker) RecomputeProgress(ctx context.Context, enr Enrollment) (Enrollment, bool, error) {
	total, err := t.repo.CountSections(ctx, enr.CourseID)
	if err != nil {
		return enr, false, errors.Wrap(err, "counting sections")
	}
	done, err := t.repo.CountCompletedSections(ctx, enr.StudentID, enr.CourseID)
	if err != nil {
		return enr, false, errors.Wrap(err, "counting completed sections")
	}

	pct := 0.0
	if total > 0 {
		pct = core.Round2(float64(done) / float64(total) * 100)
	}
	completed := pct >= 100

	if pct == enr.Progress && completed == enr.Completed {
		return enr, false, nil
	}
	if err := t.repo.UpdateEnrollmentProgress(ctx, enr.ID, pct, completed); err != nil {
		return enr, false, errors.Wrap(err, "updating enrollment progress")
	}
	enr.Progress = pct
	enr.Completed = completed
	return enr, true, nil
}

// RecomputeCourse refreshes the progress of every enrollment of the course and returns how many changed.
// Students whose enrollment became completed get the completion mail once the refresh is written.
func (t *Tracker) RecomputeCourse(ctx context.Context, courseID int) (int, error) {
	var (
		changed        int
		newlyCompleted []Enrollment
	)
	err := t.tx.InTx(ctx, func(ctx context.Context) error {
		enrollments, err := t.repo.ListEnrollments(ctx, Filter{CourseID: courseID})
		if err != nil {
			return errors.Wrap(err, "listing enrollments")
		}
		for _, enr := range enrollments {
			wasCompleted := enr.Completed
			updated, ok, err := t.RecomputeProgress(ctx, enr)
			if err != nil {
				return errors.Wrapf(err, "recomputing enrollment %d", enr.ID)
			}
			if !ok {
				continue
			}
			changed++
			if !wasCompleted && updated.Completed {
				newlyCompleted = append(newlyCompleted, updated)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, enr := range newlyCompleted {
		t.sendCompletionMail(ctx, enr)
	}
	return changed, nil
}

func (t *Tracker) ListByStudent(ctx context.Context, studentID int) ([]Enrollment, error) {
	return t.repo.ListEnrollments(ctx, Filter{StudentID: studentID})
}

func (t *Tracker) ListByCourse(ctx context.Context, courseID int) ([]Enrollment, error) {
	if _, err := t.courses.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return t.repo.ListEnrollments(ctx, Filter{CourseID: courseID})
}

func (t *Tracker) ListCompletions(ctx context.Context, studentID, courseID int) ([]SectionProgress, error) {
	if _, err := t.repo.GetEnrollment(ctx, studentID, courseID); err != nil {
		return nil, err
	}
	return t.repo.ListSectionProgress(ctx, studentID, courseID)
}

func (t *Tracker) sendCompletionMail(ctx context.Context, enr Enrollment) {
	usr, err := t.students.GetByID(ctx, enr.StudentID)
	if err != nil {
		t.logger.Warn(fmt.Sprintf("completion mail: getting student %d: %v", enr.StudentID, err), err)
		return
	}
	c, err := t.courses.GetCourse(ctx, enr.CourseID)
	if err != nil {
		t.logger.Warn(fmt.Sprintf("completion mail: getting course %d: %v", enr.CourseID, err), err)
		return
	}
	t.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:      "Course completed",
		TemplateName: "course_completed",
		TemplateData: map[string]string{"Name": usr.Name, "Course": c.Name},
	})
}
