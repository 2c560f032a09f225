package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
)

type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
	StatusLate    Status = "Late"
)

var AllStatuses = []Status{StatusPresent, StatusAbsent, StatusLate}

// ParseStatus returns the Status named s, if any.
func ParseStatus(s string) (Status, bool) {
	s = core.CleanString(s)
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Record is one student's attendance status for one course on one date.
type Record struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	CourseID  string    `json:"course_id"`
	Date      time.Time `json:"date"` // midnight UTC
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// read-only, joined in by the repository
	CourseCode string `json:"course_code,omitempty"`
	CourseName string `json:"course_name,omitempty"`
}

// Key is the compound unique key of a Record.
type Key struct {
	StudentID string
	CourseID  string
	Date      time.Time
}

type QueryFilter struct {
	StudentID string
	CourseID  string
	Date      time.Time
}

// Submission is a batch of statuses, keyed by student ID, for one course on one date.
type Submission struct {
	CourseID string
	Date     time.Time
	Entries  map[string]string
}

// Result counts the rows written by a submission.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"-"`
}

// FormSubmission is the body of the course attendance form.
type FormSubmission struct {
	Date       string            `json:"date" validate:"required,date"`
	Attendance map[string]string `json:"attendance" validate:"required,dive,keys,required,endkeys,attendance_status"`
}

func (fs FormSubmission) Validate(validate *validator.Validate) error { return validate.Struct(fs) }

// CourseTally is the attendance count of one course, across all students and dates.
type CourseTally struct {
	CourseID   string
	CourseCode string
	CourseName string
	Tally
}
