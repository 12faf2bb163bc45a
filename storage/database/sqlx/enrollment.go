package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

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

type (
	enrollmentRow struct {
		ID         int            `db:"id"`
		StudentID  int            `db:"student_id"`
		CourseID   int            `db:"course_id"`
		CourseName sql.NullString `db:"course_name"`
		EnrolledAt time.Time      `db:"enrolled_at"`
		Progress   float64        `db:"progress"`
		Completed  bool           `db:"completed"`
	}

	sectionProgressRow struct {
		ID           int       `db:"id"`
		StudentID    int       `db:"student_id"`
		SectionID    int       `db:"section_id"`
		EnrollmentID int       `db:"enrollment_id"`
		CompletedAt  time.Time `db:"completed_at"`
	}
)

func (r enrollmentRow) toEnrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:         r.ID,
		StudentID:  r.StudentID,
		CourseID:   r.CourseID,
		CourseName: r.CourseName.String,
		EnrolledAt: r.EnrolledAt.UTC(),
		Progress:   r.Progress,
		Completed:  r.Completed,
	}
}

func (r sectionProgressRow) toSectionProgress() enrollment.SectionProgress {
	sp := enrollment.SectionProgress(r)
	sp.CompletedAt = sp.CompletedAt.UTC()
	return sp
}

const enrollmentColumns = `e.id, e.student_id, e.course_id, c.name AS course_name, e.enrolled_at, e.progress, e.completed`

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	row := enrollmentRow{
		StudentID:  e.StudentID,
		CourseID:   e.CourseID,
		EnrolledAt: e.EnrolledAt,
		Progress:   e.Progress,
		Completed:  e.Completed,
	}
	q, args, err := repo.db.BindNamed(`INSERT INTO enrollments (student_id, course_id, enrolled_at, progress, completed)
		VALUES (:student_id, :course_id, :enrolled_at, :progress, :completed)
		ON CONFLICT (student_id, course_id) DO NOTHING
		RETURNING id`, row)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "binding query")
	}
	if err := repo.db.exec(ctx).GetContext(ctx, &e.ID, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return enrollment.Enrollment{}, enrollment.ErrDuplicateEnrollment
		}
		return enrollment.Enrollment{}, fkError(err, course.ErrNotFound)
	}
	return repo.GetEnrollment(ctx, e.StudentID, e.CourseID)
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, studentID, courseID int) (enrollment.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.exec(ctx).GetContext(ctx, &row, `SELECT `+enrollmentColumns+`
		FROM enrollments e
		LEFT JOIN courses c ON c.id = e.course_id
		WHERE e.student_id = $1 AND e.course_id = $2`, studentID, courseID)
	if err != nil {
		return enrollment.Enrollment{}, notFound(err, enrollment.ErrEnrollmentNotFound)
	}
	return row.toEnrollment(), nil
}

func (repo enrollmentRepository) ListEnrollments(ctx context.Context, filter enrollment.Filter) ([]enrollment.Enrollment, error) {
	var rows []enrollmentRow
	err := repo.db.exec(ctx).SelectContext(ctx, &rows, `SELECT `+enrollmentColumns+`
		FROM enrollments e
		LEFT JOIN courses c ON c.id = e.course_id
		WHERE ($1 = 0 OR e.student_id = $1) AND ($2 = 0 OR e.course_id = $2)
		ORDER BY e.id`, filter.StudentID, filter.CourseID)
	if err != nil {
		return nil, errors.Wrap(err, "listing enrollments")
	}
	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrs = append(enrs, r.toEnrollment())
	}
	return enrs, nil
}

func (repo enrollmentRepository) UpdateEnrollmentProgress(ctx context.Context, id int, progress float64, completed bool) error {
	res, err := repo.db.exec(ctx).ExecContext(ctx,
		`UPDATE enrollments SET progress = $2, completed = $3 WHERE id = $1`, id, progress, completed)
	if err != nil {
		return errors.Wrap(err, "updating enrollment progress")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return enrollment.ErrEnrollmentNotFound
	}
	return nil
}

func (repo enrollmentRepository) CreateSectionProgress(ctx context.Context, sp enrollment.SectionProgress) (enrollment.SectionProgress, error) {
	q, args, err := repo.db.BindNamed(`INSERT INTO section_progress (student_id, section_id, enrollment_id, completed_at)
		VALUES (:student_id, :section_id, :enrollment_id, :completed_at)
		ON CONFLICT (student_id, section_id) DO NOTHING
		RETURNING id`, sectionProgressRow(sp))
	if err != nil {
		return enrollment.SectionProgress{}, errors.Wrap(err, "binding query")
	}
	if err := repo.db.exec(ctx).GetContext(ctx, &sp.ID, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return enrollment.SectionProgress{}, enrollment.ErrDuplicateCompletion
		}
		return enrollment.SectionProgress{}, fkError(err, course.ErrSectionNotFound)
	}
	return sp, nil
}

func (repo enrollmentRepository) DeleteSectionProgress(ctx context.Context, studentID, sectionID int) error {
	res, err := repo.db.exec(ctx).ExecContext(ctx,
		`DELETE FROM section_progress WHERE student_id = $1 AND section_id = $2`, studentID, sectionID)
	if err != nil {
		return errors.Wrap(err, "deleting section progress")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return enrollment.ErrCompletionNotFound
	}
	return nil
}

func (repo enrollmentRepository) ListSectionProgress(ctx context.Context, studentID, courseID int) ([]enrollment.SectionProgress, error) {
	var rows []sectionProgressRow
	err := repo.db.exec(ctx).SelectContext(ctx, &rows, `SELECT sp.*
		FROM section_progress sp
		JOIN sections s ON s.id = sp.section_id
		WHERE sp.student_id = $1 AND s.course_id = $2
		ORDER BY sp.id`, studentID, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "listing section progress")
	}
	progress := make([]enrollment.SectionProgress, 0, len(rows))
	for _, r := range rows {
		progress = append(progress, r.toSectionProgress())
	}
	return progress, nil
}

func (repo enrollmentRepository) CountSections(ctx context.Context, courseID int) (int, error) {
	var n int
	err := repo.db.exec(ctx).GetContext(ctx, &n, `SELECT COUNT(*) FROM sections WHERE course_id = $1`, courseID)
	return n, err
}

func (repo enrollmentRepository) CountCompletedSections(ctx context.Context, studentID, courseID int) (int, error) {
	var n int
	err := repo.db.exec(ctx).GetContext(ctx, &n, `SELECT COUNT(*)
		FROM section_progress sp
		JOIN sections s ON s.id = sp.section_id
		WHERE sp.student_id = $1 AND s.course_id = $2`, studentID, courseID)
	return n, err
}
