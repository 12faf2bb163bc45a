package course

import (
	"reflect"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/jhoelito123/PyStart/core"
)

type Course struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	InstructorID int       `json:"instructor_id"`
	Rating       float64   `json:"rating"`   // derived from comments
	Duration     Duration  `json:"duration"` // derived from sections
	Description  string    `json:"description"`
	CoverURL     string    `json:"cover_url"`
	StartDate    Date      `json:"start_date"`
	EndDate      Date      `json:"end_date"`
	ModuleID     null.Int  `json:"module_id"`
	LanguageID   null.Int  `json:"language_id"`
	DifficultyID null.Int  `json:"difficulty_id"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

// CourseDetail is a course with its sections in display order.
type CourseDetail struct {
	Course
	Sections []Section `json:"sections"`
}

type Resource struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	URL            string `json:"url"`
	Text           string `json:"text"`
	ResourceTypeID int    `json:"resource_type_id"`
}

type Section struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	CourseID       int      `json:"course_id"`
	Duration       Duration `json:"duration"`
	VideoID        null.Int `json:"video_id"`
	ContentID      null.Int `json:"content_id"`
	InstructionsID null.Int `json:"instructions_id"`
}

func (s Section) resourceIDs() []int {
	var ids []int
	for _, id := range []null.Int{s.VideoID, s.ContentID, s.InstructionsID} {
		if id.Valid {
			ids = append(ids, id.Int)
		}
	}
	return ids
}

type Comment struct {
	ID        int       `json:"id"`
	AuthorID  int       `json:"author_id"`
	Body      string    `json:"body"`
	CourseID  int       `json:"course_id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Quiz struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	CourseID  int        `json:"course_id"`
	MaxScore  int        `json:"max_score"`
	Questions []Question `json:"questions,omitempty"`
}

type Question struct {
	ID            int      `json:"id"`
	QuizID        int      `json:"quiz_id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
}

type Feedback struct {
	ID        int       `json:"id"`
	SectionID int       `json:"section_id"`
	AuthorID  int       `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Payloads

// NewCourse carries what an instructor provides to publish a course; rating and duration are derived.
type NewCourse struct {
	Name         string   `json:"name" validate:"notblank,max=100"`
	Description  string   `json:"description" validate:"max=2000"`
	CoverURL     string   `json:"cover_url" validate:"omitempty,url,max=500"`
	StartDate    Date     `json:"start_date"`
	EndDate      Date     `json:"end_date"`
	ModuleID     null.Int `json:"module_id" validate:"omitempty,min=1"`
	LanguageID   null.Int `json:"language_id" validate:"omitempty,min=1"`
	DifficultyID null.Int `json:"difficulty_id" validate:"omitempty,min=1"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	nc.CoverURL = core.CleanString(nc.CoverURL)
	if err := validate.Struct(nc); err != nil {
		return err
	}
	if !nc.StartDate.IsZero() && !nc.EndDate.IsZero() && nc.EndDate.Before(nc.StartDate.Time) {
		return core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end date cannot be before start date"})
	}
	return nil
}

type NewResource struct {
	Name           string `json:"name" validate:"notblank,max=100"`
	URL            string `json:"url" validate:"omitempty,url,max=500"`
	Text           string `json:"text" validate:"max=10000"`
	ResourceTypeID int    `json:"resource_type_id" validate:"required,min=1"`
}

// NewSection carries a section and, optionally, its video, content and instructions resources
// which are created along with it.
type NewSection struct {
	Name         string       `json:"name" validate:"notblank,max=100"`
	Description  string       `json:"description" validate:"max=2000"`
	CourseID     int          `json:"course_id" validate:"required,min=1"`
	Duration     Duration     `json:"duration" validate:"min=0,max=36000000000000000"` // MaxDuration
	Video        *NewResource `json:"video"`
	Content      *NewResource `json:"content"`
	Instructions *NewResource `json:"instructions"`
}

func (ns *NewSection) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)
	for _, res := range []*NewResource{ns.Video, ns.Content, ns.Instructions} {
		if res != nil {
			res.Name = core.CleanString(res.Name)
			res.URL = core.CleanString(res.URL)
		}
	}
	return validate.Struct(ns)
}

type NewComment struct {
	Body     string `json:"body" validate:"notblank,max=1000"`
	CourseID int    `json:"course_id" validate:"required,min=1"`
	Score    int    `json:"score" validate:"required,min=1,max=5"`
}

func (nc *NewComment) Validate(validate *validator.Validate) error {
	nc.Body = core.CleanString(nc.Body)
	return validate.Struct(nc)
}

type NewQuiz struct {
	Name     string `json:"name" validate:"notblank,max=100"`
	CourseID int    `json:"course_id" validate:"required,min=1"`
	MaxScore int    `json:"max_score" validate:"min=0"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Name = core.CleanString(nq.Name)
	return validate.Struct(nq)
}

type NewQuestion struct {
	Prompt        string   `json:"prompt" validate:"notblank,max=1000"`
	Options       []string `json:"options" validate:"min=2,max=10,dive,notblank,max=255"`
	CorrectOption int      `json:"correct_option" validate:"min=0"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Prompt = core.CleanString(nq.Prompt)
	for i := range nq.Options {
		nq.Options[i] = core.CleanString(nq.Options[i])
	}
	if err := validate.Struct(nq); err != nil {
		return err
	}
	if nq.CorrectOption >= len(nq.Options) {
		return core.NewValidationError(nil, core.FieldError{Field: "correct_option", Error: "must be the index of one of the options"})
	}
	return nil
}

type NewFeedback struct {
	SectionID int    `json:"section_id" validate:"required,min=1"`
	Body      string `json:"body" validate:"notblank,max=2000"`
}

func (nf *NewFeedback) Validate(validate *validator.Validate) error {
	nf.Body = core.CleanString(nf.Body)
	return validate.Struct(nf)
}

// CourseFilter narrows course listings; zero fields are ignored.
type CourseFilter struct {
	Search       string `query:"search"`
	InstructorID int    `query:"instructor_id"`
	ModuleID     int    `query:"module_id"`
	LanguageID   int    `query:"language_id"`
	DifficultyID int    `query:"difficulty_id"`
}

func (cf *CourseFilter) Clean() {
	cf.Search = core.CleanString(cf.Search)
}

// Orderable maps the course fields clients can order by to their columns.
var Orderable = map[string]string{
	"id":         "id",
	"name":       "name",
	"rating":     "rating",
	"duration":   "duration",
	"start_date": "start_date",
	"created_at": "created_at",
}

// InitValidators teaches the validator how to read nullable fields.
func InitValidators(validate *validator.Validate, _ ut.Translator) {
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(null.Int); ok && v.Valid {
			return v.Int
		}
		return nil
	}, null.Int{})
}
