package grade

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
)

// Grade is a student's score for one learning outcome of a course.
// CreatedAt is set once on insert and never changes; it is what audit snapshots filter on.
type Grade struct {
	ID                string    `json:"id"`
	StudentID         string    `json:"student_id"`
	CourseID          string    `json:"course_id"`
	LearningOutcomeID string    `json:"learning_outcome_id"`
	Score             int       `json:"score"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// read-only, joined in by the repository
	StudentUsername     string `json:"student_username,omitempty"`
	StudentName         string `json:"student_name,omitempty"`
	CourseCode          string `json:"course_code,omitempty"`
	CourseName          string `json:"course_name,omitempty"`
	LearningOutcomeCode string `json:"learning_outcome_code,omitempty"`
}

// Key is the compound unique key of a Grade.
type Key struct {
	StudentID         string
	CourseID          string
	LearningOutcomeID string
}

func (g Grade) Key() Key {
	return Key{StudentID: g.StudentID, CourseID: g.CourseID, LearningOutcomeID: g.LearningOutcomeID}
}

type NewGrade struct {
	StudentID         string `json:"student_id" validate:"required"`
	CourseID          string `json:"course_id" validate:"required"`
	LearningOutcomeID string `json:"learning_outcome_id" validate:"required"`
	Score             *int   `json:"score" validate:"required,score"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.StudentID = core.CleanString(ng.StudentID)
	ng.CourseID = core.CleanString(ng.CourseID)
	ng.LearningOutcomeID = core.CleanString(ng.LearningOutcomeID)
	return validate.Struct(ng)
}

type UpdateGrade struct {
	Score *int `json:"score" validate:"required,score"`
}

func (ug UpdateGrade) Validate(validate *validator.Validate) error { return validate.Struct(ug) }

// GetFilter selects a single Grade, either by ID or by Key.
type GetFilter struct {
	ID  string
	Key Key
}

// QueryFilter applies AND operation on its set fields. Zero times are ignored.
type QueryFilter struct {
	StudentID    string
	CourseID     string
	InstructorID string    // courses taught by
	CreatedAtMax time.Time // inclusive; snapshot time
	CreatedFrom  time.Time // inclusive
	CreatedTo    time.Time // inclusive
}

// CourseStats is the per-course grade summary shown to instructors.
type CourseStats struct {
	CourseID     string  `json:"course_id"`
	CourseCode   string  `json:"course_code"`
	CourseName   string  `json:"course_name"`
	AverageScore float64 `json:"average_score"`
	StudentCount int     `json:"student_count"`
	GradeCount   int     `json:"grade_count"`
}

const ReportTypeGradeAudit = "grade_audit"

// AuditLog records one access to a grade audit report. Rows are append-only.
type AuditLog struct {
	ID             string                 `json:"id"`
	AccessedBy     string                 `json:"accessed_by"`
	SnapshotTime   time.Time              `json:"snapshot_time"`
	AccessedAt     time.Time              `json:"accessed_at"`
	ReportType     string                 `json:"report_type"`
	FiltersApplied map[string]interface{} `json:"filters_applied"`
	RecordsCount   int                    `json:"records_count"`
}

type AuditLogFilter struct {
	AccessedBy string
	Limit      int
}

// AuditRequest holds the optional parameters of a grade audit report. Zero values mean "not set".
type AuditRequest struct {
	SnapshotTime time.Time
	CourseID     string
	CreatedFrom  time.Time
	CreatedTo    time.Time
}

type AuditSummary struct {
	TotalGrades   int     `json:"total_grades"`
	TotalStudents int     `json:"total_students"`
	TotalCourses  int     `json:"total_courses"`
	AverageScore  float64 `json:"average_score"`
}

type AuditReport struct {
	SnapshotTime time.Time    `json:"snapshot_time"`
	Grades       []Grade      `json:"grades"`
	Summary      AuditSummary `json:"summary"`
	AuditLog     AuditLog     `json:"audit_log"`
}
