package course

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jhoelito123/PyStart/core"
	"github.com/jhoelito123/PyStart/core/aggregate"
	"github.com/jhoelito123/PyStart/core/catalog"
)

var (
	// errors
	ErrNotFound         = aggregate.ErrCourseNotFound
	ErrSectionNotFound  = core.NewNotFoundError("section")
	ErrResourceNotFound = core.NewNotFoundError("resource")
	ErrCommentNotFound  = core.NewNotFoundError("comment")
	ErrQuizNotFound     = core.NewNotFoundError("quiz")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, id int) (Course, error)
		ListCourses(ctx context.Context, filter CourseFilter, orderings []core.DBOrdering) ([]Course, error)
		// UpdateCourse writes every field but the derived ones (rating, duration).
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		// DeleteCourse removes the course and everything it owns.
		DeleteCourse(ctx context.Context, id int) error

		CreateResource(ctx context.Context, r Resource) (Resource, error)
		ListSectionResources(ctx context.Context, sectionID int) ([]Resource, error)
		// DeleteResources removes the resources and clears the section references to them.
		DeleteResources(ctx context.Context, ids ...int) error

		CreateSection(ctx context.Context, s Section) (Section, error)
		GetSection(ctx context.Context, id int) (Section, error)
		// ListSections lists the sections of a course, or all of them when courseID is 0, by id.
		ListSections(ctx context.Context, courseID int) ([]Section, error)
		UpdateSection(ctx context.Context, s Section) (Section, error)
		DeleteSection(ctx context.Context, id int) error

		CreateComment(ctx context.Context, c Comment) (Comment, error)
		GetComment(ctx context.Context, id int) (Comment, error)
		// ListComments lists the comments of a course, newest first.
		ListComments(ctx context.Context, courseID int) ([]Comment, error)
		UpdateComment(ctx context.Context, c Comment) (Comment, error)
		DeleteComment(ctx context.Context, id int) error

		CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		GetQuiz(ctx context.Context, id int) (Quiz, error)
		// ListQuizzes lists the quizzes of a course, or all of them when courseID is 0.
		ListQuizzes(ctx context.Context, courseID int) ([]Quiz, error)
		CreateQuestion(ctx context.Context, q Question) (Question, error)
		ListQuestions(ctx context.Context, quizID int) ([]Question, error)

		CreateFeedback(ctx context.Context, f Feedback) (Feedback, error)
		// ListFeedback lists the feedback of a section, newest first.
		ListFeedback(ctx context.Context, sectionID int) ([]Feedback, error)
	}

	// AggregateRecomputer keeps the derived course fields in line with their children.
	AggregateRecomputer interface {
		RecomputeDuration(ctx context.Context, courseID int) (bool, error)
		RecomputeRating(ctx context.Context, courseID int) (bool, error)
	}

	// ProgressRecomputer refreshes the progress of every enrollment of a course.
	ProgressRecomputer interface {
		RecomputeCourse(ctx context.Context, courseID int) (int, error)
	}

	LookupGetter interface {
		GetLookup(ctx context.Context, kind catalog.Kind, id int) (catalog.Lookup, error)
	}

	Service struct {
		repo     Repository
		tx       core.Transactor
		aggr     AggregateRecomputer
		progress ProgressRecomputer
		lookups  LookupGetter
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	tx core.Transactor,
	aggr AggregateRecomputer,
	progress ProgressRecomputer,
	lookups LookupGetter,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(aggr, "aggr"),
		vala.IsNotNil(lookups, "lookups"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{
		repo:     repo,
		tx:       tx,
		aggr:     aggr,
		progress: progress,
		lookups:  lookups,
		logger:   logger,
	}
}

// recompute runs fn in its own savepoint. A failure is logged and reported as a warning;
// the surrounding write stays.
func (svc *Service) recompute(ctx context.Context, warnings *core.Warnings, what string, fn func(ctx context.Context) error) {
	if err := svc.tx.InTx(ctx, fn); err != nil {
		svc.logger.Warn(fmt.Sprintf("recomputing %s: %v", what, err), err)
		warnings.Add("could not recompute " + what)
	}
}

// afterSectionWrite refreshes the duration of the given courses and, when their number of
// sections changed, the progress of their enrollments.
func (svc *Service) afterSectionWrite(ctx context.Context, countChanged bool, courseIDs ...int) core.Warnings {
	var warnings core.Warnings
	for _, id := range uniqueIDs(courseIDs) {
		id := id
		svc.recompute(ctx, &warnings, fmt.Sprintf("duration of course %d", id), func(ctx context.Context) error {
			_, err := svc.aggr.RecomputeDuration(ctx, id)
			return err
		})
		if countChanged && svc.progress != nil {
			svc.recompute(ctx, &warnings, fmt.Sprintf("progress of course %d", id), func(ctx context.Context) error {
				_, err := svc.progress.RecomputeCourse(ctx, id)
				return err
			})
		}
	}
	return warnings
}

func (svc *Service) afterCommentWrite(ctx context.Context, courseIDs ...int) core.Warnings {
	var warnings core.Warnings
	for _, id := range uniqueIDs(courseIDs) {
		id := id
		svc.recompute(ctx, &warnings, fmt.Sprintf("rating of course %d", id), func(ctx context.Context) error {
			_, err := svc.aggr.RecomputeRating(ctx, id)
			return err
		})
	}
	return warnings
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	unique := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	return unique
}

// asFieldError turns a missing referenced entity into a validation error on field.
func asFieldError(err error, field string) error {
	if core.IsNotFound(err) {
		return core.NewValidationError(err, core.FieldError{Field: field, Error: errors.Cause(err).Error()})
	}
	return err
}

func (svc *Service) checkLookup(ctx context.Context, kind catalog.Kind, id null.Int, field string) error {
	if !id.Valid {
		return nil
	}
	if _, err := svc.lookups.GetLookup(ctx, kind, id.Int); err != nil {
		return asFieldError(err, field)
	}
	return nil
}

func (svc *Service) checkCourseLookups(ctx context.Context, nc NewCourse) error {
	if err := svc.checkLookup(ctx, catalog.KindModule, nc.ModuleID, "module_id"); err != nil {
		return err
	}
	if err := svc.checkLookup(ctx, catalog.KindLanguage, nc.LanguageID, "language_id"); err != nil {
		return err
	}
	return svc.checkLookup(ctx, catalog.KindDifficulty, nc.DifficultyID, "difficulty_id")
}

// Courses

func (svc *Service) CreateCourse(ctx context.Context, instructorID int, nc NewCourse) (Course, error) {
	if err := svc.checkCourseLookups(ctx, nc); err != nil {
		return Course{}, err
	}
	c := Course{
		Name:         nc.Name,
		InstructorID: instructorID,
		Description:  nc.Description,
		CoverURL:     nc.CoverURL,
		StartDate:    nc.StartDate,
		EndDate:      nc.EndDate,
		ModuleID:     nc.ModuleID,
		LanguageID:   nc.LanguageID,
		DifficultyID: nc.DifficultyID,
		CreatedAt:    time.Now().UTC(),
	}
	return svc.repo.CreateCourse(ctx, c)
}

func (svc *Service) GetCourse(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) GetCourseDetail(ctx context.Context, id int) (CourseDetail, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return CourseDetail{}, err
	}
	sections, err := svc.repo.ListSections(ctx, id)
	if err != nil {
		return CourseDetail{}, errors.Wrap(err, "listing sections")
	}
	return CourseDetail{Course: c, Sections: sections}, nil
}

func (svc *Service) ListCourses(ctx context.Context, filter CourseFilter, orderings []core.DBOrdering) ([]Course, error) {
	return svc.repo.ListCourses(ctx, filter, core.CleanOrderings(orderings, Orderable))
}

func (svc *Service) UpdateCourse(ctx context.Context, id int, nc NewCourse) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err := svc.checkCourseLookups(ctx, nc); err != nil {
		return Course{}, err
	}
	c.Name = nc.Name
	c.Description = nc.Description
	c.CoverURL = nc.CoverURL
	c.StartDate = nc.StartDate
	c.EndDate = nc.EndDate
	c.ModuleID = nc.ModuleID
	c.LanguageID = nc.LanguageID
	c.DifficultyID = nc.DifficultyID
	return svc.repo.UpdateCourse(ctx, c)
}

// DeleteCourse removes the course with everything it owns, section resources included.
func (svc *Service) DeleteCourse(ctx context.Context, id int) error {
	return svc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := svc.repo.GetCourse(ctx, id); err != nil {
			return err
		}
		sections, err := svc.repo.ListSections(ctx, id)
		if err != nil {
			return errors.Wrap(err, "listing sections")
		}
		var resourceIDs []int
		for _, sec := range sections {
			resourceIDs = append(resourceIDs, sec.resourceIDs()...)
		}
		if err = svc.repo.DeleteCourse(ctx, id); err != nil {
			return err
		}
		return errors.Wrap(svc.repo.DeleteResources(ctx, resourceIDs...), "deleting section resources")
	})
}

// Sections

func (svc *Service) createResource(ctx context.Context, nr *NewResource, field string) (null.Int, error) {
	if nr == nil {
		return null.Int{}, nil
	}
	if _, err := svc.lookups.GetLookup(ctx, catalog.KindResourceType, nr.ResourceTypeID); err != nil {
		return null.Int{}, asFieldError(err, field+".resource_type_id")
	}
	res, err := svc.repo.CreateResource(ctx, Resource{
		Name:           nr.Name,
		URL:            nr.URL,
		Text:           nr.Text,
		ResourceTypeID: nr.ResourceTypeID,
	})
	if err != nil {
		return null.Int{}, errors.Wrapf(err, "creating %s resource", field)
	}
	return null.IntFrom(res.ID), nil
}

func (svc *Service) createResources(ctx context.Context, s *Section, ns NewSection) error {
	var err error
	if s.VideoID, err = svc.createResource(ctx, ns.Video, "video"); err != nil {
		return err
	}
	if s.ContentID, err = svc.createResource(ctx, ns.Content, "content"); err != nil {
		return err
	}
	s.InstructionsID, err = svc.createResource(ctx, ns.Instructions, "instructions")
	return err
}

// CreateSection creates the section and its resources, then refreshes the course duration
// and the progress of its enrollments.
func (svc *Service) CreateSection(ctx context.Context, ns NewSection) (Section, core.Warnings, error) {
	var (
		sec      Section
		warnings core.Warnings
	)
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := svc.repo.GetCourse(ctx, ns.CourseID); err != nil {
			return asFieldError(err, "course_id")
		}
		sec = Section{
			Name:        ns.Name,
			Description: ns.Description,
			CourseID:    ns.CourseID,
			Duration:    ns.Duration,
		}
		if err := svc.createResources(ctx, &sec, ns); err != nil {
			return err
		}
		var err error
		if sec, err = svc.repo.CreateSection(ctx, sec); err != nil {
			return errors.Wrap(err, "creating section")
		}
		warnings = svc.afterSectionWrite(ctx, true, sec.CourseID)
		return nil
	})
	if err != nil {
		return Section{}, nil, err
	}
	return sec, warnings, nil
}

func (svc *Service) GetSection(ctx context.Context, id int) (Section, error) {
	return svc.repo.GetSection(ctx, id)
}

func (svc *Service) ListSections(ctx context.Context, courseID int) ([]Section, error) {
	if courseID != 0 {
		if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
			return nil, err
		}
	}
	return svc.repo.ListSections(ctx, courseID)
}

// UpdateSection replaces the section fields. Resources given in ns replace the current ones,
// which are deleted. Moving the section to another course refreshes both courses.
func (svc *Service) UpdateSection(ctx context.Context, id int, ns NewSection) (Section, core.Warnings, error) {
	var (
		sec      Section
		warnings core.Warnings
	)
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		orig, err := svc.repo.GetSection(ctx, id)
		if err != nil {
			return err
		}
		if ns.CourseID != orig.CourseID {
			if _, err := svc.repo.GetCourse(ctx, ns.CourseID); err != nil {
				return asFieldError(err, "course_id")
			}
		}

		sec = orig
		sec.Name = ns.Name
		sec.Description = ns.Description
		sec.CourseID = ns.CourseID
		sec.Duration = ns.Duration

		var fresh Section
		if err := svc.createResources(ctx, &fresh, ns); err != nil {
			return err
		}
		var replaced []int
		replace := func(given *NewResource, cur *null.Int, next null.Int) {
			if given == nil {
				return
			}
			if cur.Valid {
				replaced = append(replaced, cur.Int)
			}
			*cur = next
		}
		replace(ns.Video, &sec.VideoID, fresh.VideoID)
		replace(ns.Content, &sec.ContentID, fresh.ContentID)
		replace(ns.Instructions, &sec.InstructionsID, fresh.InstructionsID)

		if sec, err = svc.repo.UpdateSection(ctx, sec); err != nil {
			return errors.Wrap(err, "updating section")
		}
		if err = svc.repo.DeleteResources(ctx, replaced...); err != nil {
			return errors.Wrap(err, "deleting replaced resources")
		}
		moved := orig.CourseID != sec.CourseID
		warnings = svc.afterSectionWrite(ctx, moved, orig.CourseID, sec.CourseID)
		return nil
	})
	if err != nil {
		return Section{}, nil, err
	}
	return sec, warnings, nil
}

// DeleteSection removes the section and its resources then refreshes the course it belonged to.
func (svc *Service) DeleteSection(ctx context.Context, id int) (core.Warnings, error) {
	var warnings core.Warnings
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		sec, err := svc.repo.GetSection(ctx, id)
		if err != nil {
			return err
		}
		if err = svc.repo.DeleteSection(ctx, id); err != nil {
			return errors.Wrap(err, "deleting section")
		}
		if err = svc.repo.DeleteResources(ctx, sec.resourceIDs()...); err != nil {
			return errors.Wrap(err, "deleting section resources")
		}
		warnings = svc.afterSectionWrite(ctx, true, sec.CourseID)
		return nil
	})
	return warnings, err
}

func (svc *Service) ListSectionResources(ctx context.Context, sectionID int) ([]Resource, error) {
	if _, err := svc.repo.GetSection(ctx, sectionID); err != nil {
		return nil, err
	}
	return svc.repo.ListSectionResources(ctx, sectionID)
}

// Comments

func (svc *Service) CreateComment(ctx context.Context, authorID int, nc NewComment) (Comment, core.Warnings, error) {
	var (
		cmt      Comment
		warnings core.Warnings
	)
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := svc.repo.GetCourse(ctx, nc.CourseID); err != nil {
			return asFieldError(err, "course_id")
		}
		var err error
		cmt, err = svc.repo.CreateComment(ctx, Comment{
			AuthorID:  authorID,
			Body:      nc.Body,
			CourseID:  nc.CourseID,
			Score:     nc.Score,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return errors.Wrap(err, "creating comment")
		}
		warnings = svc.afterCommentWrite(ctx, cmt.CourseID)
		return nil
	})
	if err != nil {
		return Comment{}, nil, err
	}
	return cmt, warnings, nil
}

func (svc *Service) GetComment(ctx context.Context, id int) (Comment, error) {
	return svc.repo.GetComment(ctx, id)
}

func (svc *Service) ListComments(ctx context.Context, courseID int) ([]Comment, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return svc.repo.ListComments(ctx, courseID)
}

// UpdateComment replaces the comment body, score and course; the author stays.
func (svc *Service) UpdateComment(ctx context.Context, id int, nc NewComment) (Comment, core.Warnings, error) {
	var (
		cmt      Comment
		warnings core.Warnings
	)
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		orig, err := svc.repo.GetComment(ctx, id)
		if err != nil {
			return err
		}
		if nc.CourseID != orig.CourseID {
			if _, err := svc.repo.GetCourse(ctx, nc.CourseID); err != nil {
				return asFieldError(err, "course_id")
			}
		}
		cmt = orig
		cmt.Body = nc.Body
		cmt.Score = nc.Score
		cmt.CourseID = nc.CourseID
		if cmt, err = svc.repo.UpdateComment(ctx, cmt); err != nil {
			return errors.Wrap(err, "updating comment")
		}
		warnings = svc.afterCommentWrite(ctx, orig.CourseID, cmt.CourseID)
		return nil
	})
	if err != nil {
		return Comment{}, nil, err
	}
	return cmt, warnings, nil
}

func (svc *Service) DeleteComment(ctx context.Context, id int) (core.Warnings, error) {
	var warnings core.Warnings
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		cmt, err := svc.repo.GetComment(ctx, id)
		if err != nil {
			return err
		}
		if err = svc.repo.DeleteComment(ctx, id); err != nil {
			return errors.Wrap(err, "deleting comment")
		}
		warnings = svc.afterCommentWrite(ctx, cmt.CourseID)
		return nil
	})
	return warnings, err
}

// Quizzes

func (svc *Service) CreateQuiz(ctx context.Context, nq NewQuiz) (Quiz, error) {
	if _, err := svc.repo.GetCourse(ctx, nq.CourseID); err != nil {
		return Quiz{}, asFieldError(err, "course_id")
	}
	return svc.repo.CreateQuiz(ctx, Quiz{Name: nq.Name, CourseID: nq.CourseID, MaxScore: nq.MaxScore})
}

// GetQuiz returns the quiz with its questions.
func (svc *Service) GetQuiz(ctx context.Context, id int) (Quiz, error) {
	q, err := svc.repo.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	if q.Questions, err = svc.repo.ListQuestions(ctx, id); err != nil {
		return Quiz{}, errors.Wrap(err, "listing questions")
	}
	return q, nil
}

func (svc *Service) ListQuizzes(ctx context.Context, courseID int) ([]Quiz, error) {
	return svc.repo.ListQuizzes(ctx, courseID)
}

func (svc *Service) AddQuestion(ctx context.Context, quizID int, nq NewQuestion) (Question, error) {
	if _, err := svc.repo.GetQuiz(ctx, quizID); err != nil {
		return Question{}, err
	}
	return svc.repo.CreateQuestion(ctx, Question{
		QuizID:        quizID,
		Prompt:        nq.Prompt,
		Options:       nq.Options,
		CorrectOption: nq.CorrectOption,
	})
}

func (svc *Service) ListQuestions(ctx context.Context, quizID int) ([]Question, error) {
	if _, err := svc.repo.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	return svc.repo.ListQuestions(ctx, quizID)
}

// Feedback

func (svc *Service) CreateFeedback(ctx context.Context, authorID int, nf NewFeedback) (Feedback, error) {
	if _, err := svc.repo.GetSection(ctx, nf.SectionID); err != nil {
		return Feedback{}, asFieldError(err, "section_id")
	}
	return svc.repo.CreateFeedback(ctx, Feedback{
		SectionID: nf.SectionID,
		AuthorID:  authorID,
		Body:      nf.Body,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) ListFeedback(ctx context.Context, sectionID int) ([]Feedback, error) {
	if _, err := svc.repo.GetSection(ctx, sectionID); err != nil {
		return nil, err
	}
	return svc.repo.ListFeedback(ctx, sectionID)
}
