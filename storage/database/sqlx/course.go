package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jhoelito123/PyStart/core"
	"github.com/jhoelito123/PyStart/core/aggregate"
	"github.com/jhoelito123/PyStart/core/course"
)

type courseRepository struct {
	db *DB
}

var (
	_ course.Repository = (*courseRepository)(nil)
	_ aggregate.Store   = (*courseRepository)(nil)
)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

type (
	courseRow struct {
		ID           int             `db:"id"`
		Name         string          `db:"name"`
		InstructorID int             `db:"instructor_id"`
		Rating       float64         `db:"rating"`
		Duration     course.Duration `db:"duration"`
		Description  string          `db:"description"`
		CoverURL     string          `db:"cover_url"`
		StartDate    course.Date     `db:"start_date"`
		EndDate      course.Date     `db:"end_date"`
		ModuleID     null.Int        `db:"module_id"`
		LanguageID   null.Int        `db:"language_id"`
		DifficultyID null.Int        `db:"difficulty_id"`
		CreatedAt    time.Time       `db:"created_at"`
	}

	resourceRow struct {
		ID             int    `db:"id"`
		Name           string `db:"name"`
		URL            string `db:"url"`
		Text           string `db:"text"`
		ResourceTypeID int    `db:"resource_type_id"`
	}

	sectionRow struct {
		ID             int             `db:"id"`
		Name           string          `db:"name"`
		Description    string          `db:"description"`
		CourseID       int             `db:"course_id"`
		Duration       course.Duration `db:"duration"`
		VideoID        null.Int        `db:"video_id"`
		ContentID      null.Int        `db:"content_id"`
		InstructionsID null.Int        `db:"instructions_id"`
	}

	commentRow struct {
		ID        int       `db:"id"`
		AuthorID  int       `db:"author_id"`
		Body      string    `db:"body"`
		CourseID  int       `db:"course_id"`
		Score     int       `db:"score"`
		CreatedAt time.Time `db:"created_at"`
	}

	quizRow struct {
		ID       int    `db:"id"`
		Name     string `db:"name"`
		CourseID int    `db:"course_id"`
		MaxScore int    `db:"max_score"`
	}

	questionRow struct {
		ID            int            `db:"id"`
		QuizID        int            `db:"quiz_id"`
		Prompt        string         `db:"prompt"`
		Options       pq.StringArray `db:"options"`
		CorrectOption int            `db:"correct_option"`
	}

	feedbackRow struct {
		ID        int       `db:"id"`
		SectionID int       `db:"section_id"`
		AuthorID  int       `db:"author_id"`
		Body      string    `db:"body"`
		CreatedAt time.Time `db:"created_at"`
	}
)

func (r courseRow) toCourse() course.Course {
	c := course.Course(r)
	c.CreatedAt = c.CreatedAt.UTC()
	return c
}

func (r commentRow) toComment() course.Comment {
	c := course.Comment(r)
	c.CreatedAt = c.CreatedAt.UTC()
	return c
}

func (r questionRow) toQuestion() course.Question {
	return course.Question{
		ID:            r.ID,
		QuizID:        r.QuizID,
		Prompt:        r.Prompt,
		Options:       r.Options,
		CorrectOption: r.CorrectOption,
	}
}

func (r feedbackRow) toFeedback() course.Feedback {
	f := course.Feedback(r)
	f.CreatedAt = f.CreatedAt.UTC()
	return f
}

// insert runs a named INSERT ... RETURNING id and stores the id in dest.
func (repo courseRepository) insert(ctx context.Context, dest *int, q string, arg interface{}) error {
	q, args, err := repo.db.BindNamed(q, arg)
	if err != nil {
		return errors.Wrap(err, "binding query")
	}
	return repo.db.exec(ctx).GetContext(ctx, dest, q, args...)
}

// update runs a named UPDATE and returns notFoundErr when it matched no row.
func (repo courseRepository) update(ctx context.Context, q string, arg interface{}, notFoundErr error) error {
	q, args, err := repo.db.BindNamed(q, arg)
	if err != nil {
		return errors.Wrap(err, "binding query")
	}
	res, err := repo.db.exec(ctx).ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr
	}
	return nil
}

func (repo courseRepository) delete(ctx context.Context, table string, id int, notFoundErr error) error {
	res, err := repo.db.exec(ctx).ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "deleting from %s", table)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr
	}
	return nil
}

// fkError maps a foreign key violation to notFoundErr.
func fkError(err, notFoundErr error) error {
	if _, ok := pqError(err, foreignKeyViolation); ok {
		return notFoundErr
	}
	return err
}

// Courses

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.Rating, c.Duration = 0, 0
	err := repo.insert(ctx, &c.ID, `INSERT INTO courses (name, instructor_id, rating, duration, description, cover_url,
			start_date, end_date, module_id, language_id, difficulty_id, created_at)
		VALUES (:name, :instructor_id, :rating, :duration, :description, :cover_url,
			:start_date, :end_date, :module_id, :language_id, :difficulty_id, :created_at)
		RETURNING id`, courseRow(c))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return c, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id int) (course.Course, error) {
	var row courseRow
	if err := repo.db.exec(ctx).GetContext(ctx, &row, `SELECT * FROM courses WHERE id = $1`, id); err != nil {
		return course.Course{}, notFound(err, course.ErrNotFound)
	}
	return row.toCourse(), nil
}

func (repo courseRepository) ListCourses(ctx context.Context, filter course.CourseFilter, orderings []core.DBOrdering) ([]course.Course, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
	}
	if filter.InstructorID != 0 {
		where = append(where, "instructor_id = "+arg(filter.InstructorID))
	}
	if filter.ModuleID != 0 {
		where = append(where, "module_id = "+arg(filter.ModuleID))
	}
	if filter.LanguageID != 0 {
		where = append(where, "language_id = "+arg(filter.LanguageID))
	}
	if filter.DifficultyID != 0 {
		where = append(where, "difficulty_id = "+arg(filter.DifficultyID))
	}

	q := `SELECT * FROM courses`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	order := make([]string, 0, len(orderings)+1)
	for _, ord := range orderings { // columns are whitelisted by the service
		order = append(order, ord.String())
	}
	q += ` ORDER BY ` + strings.Join(append(order, "id ASC"), ", ")

	var rows []courseRow
	if err := repo.db.exec(ctx).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "listing courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	err := repo.update(ctx, `UPDATE courses SET name = :name, description = :description, cover_url = :cover_url,
			start_date = :start_date, end_date = :end_date, module_id = :module_id, language_id = :language_id,
			difficulty_id = :difficulty_id
		WHERE id = :id`, courseRow(c), course.ErrNotFound)
	if err != nil {
		return course.Course{}, err
	}
	return repo.GetCourse(ctx, c.ID)
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id int) error {
	return repo.delete(ctx, "courses", id, course.ErrNotFound)
}

// Resources

func (repo courseRepository) CreateResource(ctx context.Context, r course.Resource) (course.Resource, error) {
	err := repo.insert(ctx, &r.ID, `INSERT INTO resources (name, url, text, resource_type_id)
		VALUES (:name, :url, :text, :resource_type_id) RETURNING id`, resourceRow(r))
	if err != nil {
		return course.Resource{}, errors.Wrap(err, "creating resource")
	}
	return r, nil
}

func (repo courseRepository) DeleteResources(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	arr := make(pq.Int64Array, len(ids))
	for i, id := range ids {
		arr[i] = int64(id)
	}
	// section references are cleared by ON DELETE SET NULL
	if _, err := repo.db.exec(ctx).ExecContext(ctx, `DELETE FROM resources WHERE id = ANY($1)`, arr); err != nil {
		return errors.Wrap(err, "deleting resources")
	}
	return nil
}

func (repo courseRepository) ListSectionResources(ctx context.Context, sectionID int) ([]course.Resource, error) {
	var rows []resourceRow
	err := repo.db.exec(ctx).SelectContext(ctx, &rows, `SELECT r.* FROM resources r
		JOIN sections s ON r.id IN (s.video_id, s.content_id, s.instructions_id)
		WHERE s.id = $1
		ORDER BY r.id`, sectionID)
	if err != nil {
		return nil, errors.Wrap(err, "listing section resources")
	}
	resources := make([]course.Resource, 0, len(rows))
	for _, r := range rows {
		resources = append(resources, course.Resource(r))
	}
	return resources, nil
}

// Sections

func (repo courseRepository) CreateSection(ctx context.Context, s course.Section) (course.Section, error) {
	err := repo.insert(ctx, &s.ID, `INSERT INTO sections (name, description, course_id, duration, video_id, content_id, instructions_id)
		VALUES (:name, :description, :course_id, :duration, :video_id, :content_id, :instructions_id)
		RETURNING id`, sectionRow(s))
	if err != nil {
		return course.Section{}, fkError(err, course.ErrNotFound)
	}
	return s, nil
}

func (repo courseRepository) GetSection(ctx context.Context, id int) (course.Section, error) {
	var row sectionRow
	if err := repo.db.exec(ctx).GetContext(ctx, &row, `SELECT * FROM sections WHERE id = $1`, id); err != nil {
		return course.Section{}, notFound(err, course.ErrSectionNotFound)
	}
	return course.Section(row), nil
}

func (repo courseRepository) ListSections(ctx context.Context, courseID int) ([]course.Section, error) {
	var rows []sectionRow
	err := repo.db.exec(ctx).SelectContext(ctx, &rows,
		`SELECT * FROM sections WHERE $1 = 0 OR course_id = $1 ORDER BY id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "listing sections")
	}
	sections := make([]course.Section, 0, len(rows))
	for _, r := range rows {
		sections = append(sections, course.Section(r))
	}
	return sections, nil
}

func (repo courseRepository) UpdateSection(ctx context.Context, s course.Section) (course.Section, error) {
	err := repo.update(ctx, `UPDATE sections SET name = :name, description = :description, course_id = :course_id,
			duration = :duration, video_id = :video_id, content_id = :content_id, instructions_id = :instructions_id
		WHERE id = :id`, sectionRow(s), course.ErrSectionNotFound)
	if err != nil {
		return course.Section{}, fkError(err, course.ErrNotFound)
	}
	return s, nil
}

func (repo courseRepository) DeleteSection(ctx context.Context, id int) error {
	return repo.delete(ctx, "sections", id, course.ErrSectionNotFound)
}

// Comments

func (repo courseRepository) CreateComment(ctx context.Context, c course.Comment) (course.Comment, error) {
	err := repo.insert(ctx, &c.ID, `INSERT INTO comments (author_id, body, course_id, score, created_at)
		VALUES (:author_id, :body, :course_id, :score, :created_at) RETURNING id`, commentRow(c))
	if err != nil {
		return course.Comment{}, fkError(err, course.ErrNotFound)
	}
	return c, nil
}

func (repo courseRepository) GetComment(ctx context.Context, id int) (course.Comment, error) {
	var row commentRow
	if err := repo.db.exec(ctx).GetContext(ctx, &row, `SELECT * FROM comments WHERE id = $1`, id); err != nil {
		return course.Comment{}, notFound(err, course.ErrCommentNotFound)
	}
	return row.toComment(), nil
}

func (repo courseRepository) ListComments(ctx context.Context, courseID int) ([]course.Comment, error) {
	var rows []commentRow
	err := repo.db.exec(ctx).SelectContext(ctx, &rows,
		`SELECT * FROM comments WHERE course_id = $1 ORDER BY created_at DESC, id DESC`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "listing comments")
	}
	comments := make([]course.Comment, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, r.toComment())
	}
	return comments, nil
}

func (repo courseRepository) UpdateComment(ctx context.Context, c course.Comment) (course.Comment, error) {
	err := repo.update(ctx, `UPDATE comments SET body = :body, course_id = :course_id, score = :score WHERE id = :id`,
		commentRow(c), course.ErrCommentNotFound)
	if err != nil {
		return course.Comment{}, fkError(err, course.ErrNotFound)
	}
	return c, nil
}

func (repo courseRepository) DeleteComment(ctx context.Context, id int) error {
	return repo.delete(ctx, "comments", id, course.ErrCommentNotFound)
}

// Quizzes

func (repo courseRepository) CreateQuiz(ctx context.Context, q course.Quiz) (course.Quiz, error) {
	row := quizRow{Name: q.Name, CourseID: q.CourseID, MaxScore: q.MaxScore}
	err := repo.insert(ctx, &row.ID, `INSERT INTO quizzes (name, course_id, max_score)
		VALUES (:name, :course_id, :max_score) RETURNING id`, row)
	if err != nil {
		return course.Quiz{}, fkError(err, course.ErrNotFound)
	}
	return course.Quiz{ID: row.ID, Name: row.Name, CourseID: row.CourseID, MaxScore: row.MaxScore}, nil
}

func (repo courseRepository) GetQuiz(ctx context.Context, id int) (course.Quiz, error) {
	var row quizRow
	if err := repo.db.exec(ctx).GetContext(ctx, &row, `SELECT * FROM quizzes WHERE id = $1`, id); err != nil {
		return course.Quiz{}, notFound(err, course.ErrQuizNotFound)
	}
	return course.Quiz{ID: row.ID, Name: row.Name, CourseID: row.CourseID, MaxScore: row.MaxScore}, nil
}

func (repo courseRepository) ListQuizzes(ctx context.Context, courseID int) ([]course.Quiz, error) {
	var rows []quizRow
	err := repo.db.exec(ctx).SelectContext(ctx, &rows,
		`SELECT * FROM quizzes WHERE $1 = 0 OR course_id = $1 ORDER BY id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "listing quizzes")
	}
	quizzes := make([]course.Quiz, 0, len(rows))
	for _, r := range rows {
		quizzes = append(quizzes, course.Quiz{ID: r.ID, Name: r.Name, CourseID: r.CourseID, MaxScore: r.MaxScore})
	}
	return quizzes, nil
}

func (repo courseRepository) CreateQuestion(ctx context.Context, q course.Question) (course.Question, error) {
	row := questionRow{QuizID: q.QuizID, Prompt: q.Prompt, Options: q.Options, CorrectOption: q.CorrectOption}
	err := repo.insert(ctx, &row.ID, `INSERT INTO questions (quiz_id, prompt, options, correct_option)
		VALUES (:quiz_id, :prompt, :options, :correct_option) RETURNING id`, row)
	if err != nil {
		return course.Question{}, fkError(err, course.ErrQuizNotFound)
	}
	return row.toQuestion(), nil
}

func (repo courseRepository) ListQuestions(ctx context.Context, quizID int) ([]course.Question, error) {
	var rows []questionRow
	if err := repo.db.exec(ctx).SelectContext(ctx, &rows, `SELECT * FROM questions WHERE quiz_id = $1 ORDER BY id`, quizID); err != nil {
		return nil, errors.Wrap(err, "listing questions")
	}
	questions := make([]course.Question, 0, len(rows))
	for _, r := range rows {
		questions = append(questions, r.toQuestion())
	}
	return questions, nil
}

// Feedback

func (repo courseRepository) CreateFeedback(ctx context.Context, f course.Feedback) (course.Feedback, error) {
	err := repo.insert(ctx, &f.ID, `INSERT INTO feedback (section_id, author_id, body, created_at)
		VALUES (:section_id, :author_id, :body, :created_at) RETURNING id`, feedbackRow(f))
	if err != nil {
		return course.Feedback{}, fkError(err, course.ErrSectionNotFound)
	}
	return f, nil
}

func (repo courseRepository) ListFeedback(ctx context.Context, sectionID int) ([]course.Feedback, error) {
	var rows []feedbackRow
	err := repo.db.exec(ctx).SelectContext(ctx, &rows,
		`SELECT * FROM feedback WHERE section_id = $1 ORDER BY created_at DESC, id DESC`, sectionID)
	if err != nil {
		return nil, errors.Wrap(err, "listing feedback")
	}
	feedback := make([]course.Feedback, 0, len(rows))
	for _, r := range rows {
		feedback = append(feedback, r.toFeedback())
	}
	return feedback, nil
}

// Aggregates

func (repo courseRepository) GetCourseAggregates(ctx context.Context, courseID int) (aggregate.Aggregates, error) {
	var row struct {
		Duration course.Duration `db:"duration"`
		Rating   float64         `db:"rating"`
	}
	if err := repo.db.exec(ctx).GetContext(ctx, &row, `SELECT duration, rating FROM courses WHERE id = $1`, courseID); err != nil {
		return aggregate.Aggregates{}, notFound(err, aggregate.ErrCourseNotFound)
	}
	return aggregate.Aggregates{Duration: row.Duration.Std(), Rating: row.Rating}, nil
}

func (repo courseRepository) SumSectionDurations(ctx context.Context, courseID int) (time.Duration, error) {
	var total course.Duration
	err := repo.db.exec(ctx).GetContext(ctx, &total, `SELECT COALESCE(SUM(duration), 0)::BIGINT FROM sections WHERE course_id = $1`, courseID)
	if err != nil {
		return 0, err
	}
	return total.Std(), nil
}

func (repo courseRepository) AverageCommentScore(ctx context.Context, courseID int) (float64, bool, error) {
	var avg null.Float64
	err := repo.db.exec(ctx).GetContext(ctx, &avg, `SELECT AVG(score)::DOUBLE PRECISION FROM comments WHERE course_id = $1`, courseID)
	if err != nil {
		return 0, false, err
	}
	return avg.Float64, avg.Valid, nil
}

func (repo courseRepository) SetCourseDuration(ctx context.Context, courseID int, d time.Duration) error {
	return repo.update(ctx, `UPDATE courses SET duration = :duration WHERE id = :id`,
		map[string]interface{}{"id": courseID, "duration": course.Duration(d)}, aggregate.ErrCourseNotFound)
}

func (repo courseRepository) SetCourseRating(ctx context.Context, courseID int, rating float64) error {
	return repo.update(ctx, `UPDATE courses SET rating = :rating WHERE id = :id`,
		map[string]interface{}{"id": courseID, "rating": rating}, aggregate.ErrCourseNotFound)
}

func (repo courseRepository) ListCourseIDs(ctx context.Context) ([]int, error) {
	var ids []int
	if err := repo.db.exec(ctx).SelectContext(ctx, &ids, `SELECT id FROM courses ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "listing course ids")
	}
	return ids, nil
}
