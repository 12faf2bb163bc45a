package enrollment

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type Enrollment struct {
	ID         int       `json:"id"`
	StudentID  int       `json:"student_id"`
	CourseID   int       `json:"course_id"`
	CourseName string    `json:"course_name,omitempty"` // filled by listings
	EnrolledAt time.Time `json:"enrolled_at"`           // UTC
	Progress   float64   `json:"progress_percentage"`   // derived from section progress
	Completed  bool      `json:"completed"`             // Progress >= 100
}

// SectionProgress records that a student completed a section.
type SectionProgress struct {
	ID           int       `json:"id"`
	StudentID    int       `json:"student_id"`
	SectionID    int       `json:"section_id"`
	EnrollmentID int       `json:"enrollment_id"`
	CompletedAt  time.Time `json:"completed_at"` // UTC
}

type NewEnrollment struct {
	CourseID int `json:"course_id" validate:"required,min=1"`
}

func (ne NewEnrollment) Validate(validate *validator.Validate) error {
	return validate.Struct(ne)
}

// Filter narrows enrollment listings; zero fields are ignored.
type Filter struct {
	StudentID int
	CourseID  int
}
