package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

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

// Courses

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	err := repo.db.write(ctx, func(t *tables) error {
		c.ID = t.nextID("courses")
		c.Rating, c.Duration = 0, 0
		t.courses[c.ID] = c
		return nil
	})
	return c, err
}

func (repo *courseRepository) GetCourse(_ context.Context, id int) (c course.Course, err error) {
	repo.db.read(func(t *tables) {
		var ok bool
		if c, ok = t.courses[id]; !ok {
			err = course.ErrNotFound
		}
	})
	return c, err
}

func matchCourse(c course.Course, f course.CourseFilter) bool {
	if f.Search != "" {
		search := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(c.Name), search) && !strings.Contains(strings.ToLower(c.Description), search) {
			return false
		}
	}
	return (f.InstructorID == 0 || c.InstructorID == f.InstructorID) &&
		(f.ModuleID == 0 || (c.ModuleID.Valid && c.ModuleID.Int == f.ModuleID)) &&
		(f.LanguageID == 0 || (c.LanguageID.Valid && c.LanguageID.Int == f.LanguageID)) &&
		(f.DifficultyID == 0 || (c.DifficultyID.Valid && c.DifficultyID.Int == f.DifficultyID))
}

// compareCourses compares a and b on an ordering column; it returns <0, 0 or >0.
func compareCourses(a, b course.Course, field string) int {
	cmpFloat := func(x, y float64) int {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	cmpTime := func(x, y time.Time) int {
		return cmpFloat(float64(x.UnixNano()), float64(y.UnixNano()))
	}
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "rating":
		return cmpFloat(a.Rating, b.Rating)
	case "duration":
		return cmpFloat(float64(a.Duration), float64(b.Duration))
	case "start_date":
		return cmpTime(a.StartDate.Time, b.StartDate.Time)
	case "created_at":
		return cmpTime(a.CreatedAt, b.CreatedAt)
	default:
		return a.ID - b.ID
	}
}

func (repo *courseRepository) ListCourses(_ context.Context, filter course.CourseFilter, orderings []core.DBOrdering) (courses []course.Course, err error) {
	repo.db.read(func(t *tables) {
		courses = byID(t.courses, func(c course.Course) bool { return matchCourse(c, filter) })
	})
	sort.SliceStable(courses, func(i, j int) bool {
		for _, ord := range orderings {
			if c := compareCourses(courses[i], courses[j], ord.Field); c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		return false
	})
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	err := repo.db.write(ctx, func(t *tables) error {
		orig, ok := t.courses[c.ID]
		if !ok {
			return course.ErrNotFound
		}
		c.Rating, c.Duration, c.CreatedAt = orig.Rating, orig.Duration, orig.CreatedAt
		t.courses[c.ID] = c
		return nil
	})
	return c, err
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id int) error {
	return repo.db.write(ctx, func(t *tables) error {
		if _, ok := t.courses[id]; !ok {
			return course.ErrNotFound
		}
		delete(t.courses, id)
		for _, s := range t.sections {
			if s.CourseID == id {
				deleteSection(t, s.ID)
			}
		}
		for _, cmt := range t.comments {
			if cmt.CourseID == id {
				delete(t.comments, cmt.ID)
			}
		}
		for _, q := range t.quizzes {
			if q.CourseID == id {
				delete(t.quizzes, q.ID)
				for _, qst := range t.questions {
					if qst.QuizID == q.ID {
						delete(t.questions, qst.ID)
					}
				}
			}
		}
		for _, enr := range t.enrollments {
			if enr.CourseID == id {
				delete(t.enrollments, enr.ID)
				for _, sp := range t.progress {
					if sp.EnrollmentID == enr.ID {
						delete(t.progress, sp.ID)
					}
				}
			}
		}
		return nil
	})
}

// Resources

func (repo *courseRepository) CreateResource(ctx context.Context, r course.Resource) (course.Resource, error) {
	err := repo.db.write(ctx, func(t *tables) error {
		r.ID = t.nextID("resources")
		t.resources[r.ID] = r
		return nil
	})
	return r, err
}

func (repo *courseRepository) DeleteResources(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	return repo.db.write(ctx, func(t *tables) error {
		gone := make(map[int]bool, len(ids))
		for _, id := range ids {
			delete(t.resources, id)
			gone[id] = true
		}
		for id, s := range t.sections {
			for _, ref := range []*null.Int{&s.VideoID, &s.ContentID, &s.InstructionsID} {
				if ref.Valid && gone[ref.Int] {
					*ref = null.Int{}
				}
			}
			t.sections[id] = s
		}
		return nil
	})
}

func (repo *courseRepository) ListSectionResources(_ context.Context, sectionID int) (resources []course.Resource, err error) {
	repo.db.read(func(t *tables) {
		s, ok := t.sections[sectionID]
		if !ok {
			err = course.ErrSectionNotFound
			return
		}
		resources = byID(t.resources, func(r course.Resource) bool {
			for _, id := range []struct {
				valid bool
				id    int
			}{{s.VideoID.Valid, s.VideoID.Int}, {s.ContentID.Valid, s.ContentID.Int}, {s.InstructionsID.Valid, s.InstructionsID.Int}} {
				if id.valid && id.id == r.ID {
					return true
				}
			}
			return false
		})
	})
	return resources, err
}

// Sections

func (repo *courseRepository) CreateSection(ctx context.Context, s course.Section) (course.Section, error) {
	err := repo.db.write(ctx, func(t *tables) error {
		if _, ok := t.courses[s.CourseID]; !ok {
			return course.ErrNotFound
		}
		s.ID = t.nextID("sections")
		t.sections[s.ID] = s
		return nil
	})
	return s, err
}

func (repo *courseRepository) GetSection(_ context.Context, id int) (s course.Section, err error) {
	repo.db.read(func(t *tables) {
		var ok bool
		if s, ok = t.sections[id]; !ok {
			err = course.ErrSectionNotFound
		}
	})
	return s, err
}

func (repo *courseRepository) ListSections(_ context.Context, courseID int) (sections []course.Section, err error) {
	repo.db.read(func(t *tables) {
		sections = byID(t.sections, func(s course.Section) bool { return courseID == 0 || s.CourseID == courseID })
	})
	return sections, nil
}

func (repo *courseRepository) UpdateSection(ctx context.Context, s course.Section) (course.Section, error) {
	err := repo.db.write(ctx, func(t *tables) error {
		if _, ok := t.sections[s.ID]; !ok {
			return course.ErrSectionNotFound
		}
		if _, ok := t.courses[s.CourseID]; !ok {
			return course.ErrNotFound
		}
		t.sections[s.ID] = s
		return nil
	})
	return s, err
}

func deleteSection(t *tables, id int) {
	delete(t.sections, id)
	for _, f := range t.feedback {
		if f.SectionID == id {
			delete(t.feedback, f.ID)
		}
	}
	for _, sp := range t.progress {
		if sp.SectionID == id {
			delete(t.progress, sp.ID)
		}
	}
}

func (repo *courseRepository) DeleteSection(ctx context.Context, id int) error {
	return repo.db.write(ctx, func(t *tables) error {
		if _, ok := t.sections[id]; !ok {
			return course.ErrSectionNotFound
		}
		deleteSection(t, id)
		return nil
	})
}

// Comments

func (repo *courseRepository) CreateComment(ctx context.Context, c course.Comment) (course.Comment, error) {
	err := repo.db.write(ctx, func(t *tables) error {
		if _, ok := t.courses[c.CourseID]; !ok {
			return course.ErrNotFound
		}
		c.ID = t.nextID("comments")
		t.comments[c.ID] = c
		return nil
	})
	return c, err
}

func (repo *courseRepository) GetComment(_ context.Context, id int) (c course.Comment, err error) {
	repo.db.read(func(t *tables) {
		var ok bool
		if c, ok = t.comments[id]; !ok {
			err = course.ErrCommentNotFound
		}
	})
	return c, err
}

func (repo *courseRepository) ListComments(_ context.Context, courseID int) (comments []course.Comment, err error) {
	repo.db.read(func(t *tables) {
		comments = byID(t.comments, func(c course.Comment) bool { return c.CourseID == courseID })
	})
	sort.SliceStable(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		}
		return comments[i].ID > comments[j].ID
	})
	return comments, nil
}

func (repo *courseRepository) UpdateComment(ctx context.Context, c course.Comment) (course.Comment, error) {
	err := repo.db.write(ctx, func(t *tables) error {
		if _, ok := t.comments[c.ID]; !ok {
			return course.ErrCommentNotFound
		}
		if _, ok := t.courses[c.CourseID]; !ok {
			return course.ErrNotFound
		}
		t.comments[c.ID] = c
		return nil
	})
	return c, err
}

func (repo *courseRepository) DeleteComment(ctx context.Context, id int) error {
	return repo.db.write(ctx, func(t *tables) error {
		if _, ok := t.comments[id]; !ok {
			return course.ErrCommentNotFound
		}
		delete(t.comments, id)
		return nil
	})
}

// Quizzes

func (repo *courseRepository) CreateQuiz(ctx context.Context, q course.Quiz) (course.Quiz, error) {
	err := repo.db.write(ctx, func(t *tables) error {
		if _, ok := t.courses[q.CourseID]; !ok {
			return course.ErrNotFound
		}
		q.ID = t.nextID("quizzes")
		q.Questions = nil
		t.quizzes[q.ID] = q
		return nil
	})
	return q, err
}

func (repo *courseRepository) GetQuiz(_ context.Context, id int) (q course.Quiz, err error) {
	repo.db.read(func(t *tables) {
		var ok bool
		if q, ok = t.quizzes[id]; !ok {
			err = course.ErrQuizNotFound
		}
	})
	return q, err
}

func (repo *courseRepository) ListQuizzes(_ context.Context, courseID int) (quizzes []course.Quiz, err error) {
	repo.db.read(func(t *tables) {
		quizzes = byID(t.quizzes, func(q course.Quiz) bool { return courseID == 0 || q.CourseID == courseID })
	})
	return quizzes, nil
}

func (repo *courseRepository) CreateQuestion(ctx context.Context, q course.Question) (course.Question, error) {
	err := repo.db.write(ctx, func(t *tables) error {
		if _, ok := t.quizzes[q.QuizID]; !ok {
			return course.ErrQuizNotFound
		}
		q.ID = t.nextID("questions")
		q.Options = append([]string(nil), q.Options...)
		t.questions[q.ID] = q
		return nil
	})
	return q, err
}

func (repo *courseRepository) ListQuestions(_ context.Context, quizID int) (questions []course.Question, err error) {
	repo.db.read(func(t *tables) {
		questions = byID(t.questions, func(q course.Question) bool { return q.QuizID == quizID })
	})
	return questions, nil
}

// Feedback

func (repo *courseRepository) CreateFeedback(ctx context.Context, f course.Feedback) (course.Feedback, error) {
	err := repo.db.write(ctx, func(t *tables) error {
		if _, ok := t.sections[f.SectionID]; !ok {
			return course.ErrSectionNotFound
		}
		f.ID = t.nextID("feedback")
		t.feedback[f.ID] = f
		return nil
	})
	return f, err
}

func (repo *courseRepository) ListFeedback(_ context.Context, sectionID int) (feedback []course.Feedback, err error) {
	repo.db.read(func(t *tables) {
		feedback = byID(t.feedback, func(f course.Feedback) bool { return f.SectionID == sectionID })
	})
	sort.SliceStable(feedback, func(i, j int) bool {
		if !feedback[i].CreatedAt.Equal(feedback[j].CreatedAt) {
			return feedback[i].CreatedAt.After(feedback[j].CreatedAt)
		}
		return feedback[i].ID > feedback[j].ID
	})
	return feedback, nil
}

// Aggregates

func (repo *courseRepository) GetCourseAggregates(_ context.Context, courseID int) (aggr aggregate.Aggregates, err error) {
	repo.db.read(func(t *tables) {
		c, ok := t.courses[courseID]
		if !ok {
			err = aggregate.ErrCourseNotFound
			return
		}
		aggr = aggregate.Aggregates{Duration: c.Duration.Std(), Rating: c.Rating}
	})
	return aggr, err
}

func (repo *courseRepository) SumSectionDurations(_ context.Context, courseID int) (total time.Duration, err error) {
	repo.db.read(func(t *tables) {
		for _, s := range t.sections {
			if s.CourseID == courseID {
				total += s.Duration.Std()
			}
		}
	})
	return total, nil
}

func (repo *courseRepository) AverageCommentScore(_ context.Context, courseID int) (avg float64, ok bool, err error) {
	repo.db.read(func(t *tables) {
		var sum, n int
		for _, c := range t.comments {
			if c.CourseID == courseID {
				sum += c.Score
				n++
			}
		}
		if n > 0 {
			avg, ok = float64(sum)/float64(n), true
		}
	})
	return avg, ok, nil
}

func (repo *courseRepository) SetCourseDuration(ctx context.Context, courseID int, d time.Duration) error {
	return repo.db.write(ctx, func(t *tables) error {
		c, ok := t.courses[courseID]
		if !ok {
			return aggregate.ErrCourseNotFound
		}
		c.Duration = course.Duration(d)
		t.courses[courseID] = c
		return nil
	})
}

func (repo *courseRepository) SetCourseRating(ctx context.Context, courseID int, rating float64) error {
	return repo.db.write(ctx, func(t *tables) error {
		c, ok := t.courses[courseID]
		if !ok {
			return aggregate.ErrCourseNotFound
		}
		c.Rating = rating
		t.courses[courseID] = c
		return nil
	})
}

func (repo *courseRepository) ListCourseIDs(context.Context) (ids []int, err error) {
	repo.db.read(func(t *tables) {
		for _, c := range byID(t.courses, nil) {
			ids = append(ids, c.ID)
		}
	})
	return ids, nil
}
