package course

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
)

type Course struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	InstructorID string `json:"instructor_id"`
}

// Label returns the "CODE - Name" display label.
func (c Course) Label() string {
	return fmt.Sprintf("%s - %s", c.Code, c.Name)
}

type LearningOutcome struct {
	ID          string `json:"id"`
	CourseID    string `json:"course_id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

type ProgramOutcome struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ContributionRate weights a LearningOutcome's grade toward a ProgramOutcome.
// The LO/PO fields other than the IDs are read-only, joined in by the repository.
type ContributionRate struct {
	ID                         string `json:"id"`
	LearningOutcomeID          string `json:"learning_outcome_id"`
	ProgramOutcomeID           string `json:"program_outcome_id"`
	Percentage                 int    `json:"percentage"`
	CourseID                   string `json:"course_id"`
	LearningOutcomeCode        string `json:"learning_outcome_code"`
	LearningOutcomeDescription string `json:"learning_outcome_description"`
	ProgramOutcomeCode         string `json:"program_outcome_code"`
	ProgramOutcomeDescription  string `json:"program_outcome_description"`
}

// Weight returns the percentage as a fraction in [0, 1].
func (cr ContributionRate) Weight() float64 {
	return float64(cr.Percentage) / 100
}

type NewCourse struct {
	Code         string `json:"code" validate:"required,max=20"`
	Name         string `json:"name" validate:"required,max=200"`
	InstructorID string `json:"instructor_id" validate:"required"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Code = core.CleanString(nc.Code)
	nc.Name = core.CleanString(nc.Name)
	nc.InstructorID = core.CleanString(nc.InstructorID)
	return validate.Struct(nc)
}

type NewLearningOutcome struct {
	CourseID    string `json:"course_id" validate:"required"`
	Code        string `json:"code" validate:"required,max=20"`
	Description string `json:"description" validate:"required"`
}

func (nlo *NewLearningOutcome) Validate(validate *validator.Validate) error {
	nlo.CourseID = core.CleanString(nlo.CourseID)
	nlo.Code = core.CleanString(nlo.Code)
	nlo.Description = core.CleanString(nlo.Description)
	return validate.Struct(nlo)
}

type NewProgramOutcome struct {
	Code        string `json:"code" validate:"required,max=20"`
	Description string `json:"description" validate:"required"`
}

func (npo *NewProgramOutcome) Validate(validate *validator.Validate) error {
	npo.Code = core.CleanString(npo.Code)
	npo.Description = core.CleanString(npo.Description)
	return validate.Struct(npo)
}

type NewContributionRate struct {
	LearningOutcomeID string `json:"learning_outcome_id" validate:"required"`
	ProgramOutcomeID  string `json:"program_outcome_id" validate:"required"`
	Percentage        int    `json:"percentage" validate:"score"`
}

func (ncr *NewContributionRate) Validate(validate *validator.Validate) error {
	return validate.Struct(ncr)
}

// GetFilter selects a single Course. Set fields are ANDed.
type GetFilter struct {
	ID           string
	Code         string
	InstructorID string
}

type QueryFilter struct {
	InstructorID string
	IDs          []string
}

type RateFilter struct {
	CourseIDs          []string
	LearningOutcomeIDs []string
}
