package outcome

import (
	"sort"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/course"
	"github.com/trezcool/alama/core/grade"
)

// Health thresholds of the department average.
const (
	OnTrackThreshold        = 85.0
	NeedsAttentionThreshold = 70.0
)

type Health struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}

var (
	HealthOnTrack = Health{
		Label:   "On Track",
		Message: "Program outcomes are performing well. Keep reinforcing successful strategies.",
	}
	HealthNeedsAttention = Health{
		Label:   "Needs Attention",
		Message: "Some outcomes are trending down. Review curriculum alignment and assessments.",
	}
	HealthAtRisk = Health{
		Label:   "At Risk",
		Message: "Immediate intervention recommended. Identify low-performing outcomes first.",
	}
)

func HealthOf(average float64) Health {
	switch {
	case average >= OnTrackThreshold:
		return HealthOnTrack
	case average >= NeedsAttentionThreshold:
		return HealthNeedsAttention
	default:
		return HealthAtRisk
	}
}

type POValue struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Value       float64 `json:"value"`
}

type (
	StudentDashboard struct {
		Grades          []grade.Grade           `json:"grades"`
		POScores        Scores                  `json:"po_scores"`
		ProgramOutcomes []course.ProgramOutcome `json:"program_outcomes"`
		CoursePOScores  []CoursePOScores        `json:"course_po_scores"`
	}

	InstructorDashboard struct {
		Courses        []course.Course    `json:"courses"`
		CourseStats    []grade.CourseStats `json:"course_stats"`
		CoursePOScores []CoursePOScores   `json:"course_po_scores"`
	}

	HeadDashboard struct {
		DepartmentAverages  Scores                  `json:"department_averages"`
		ProgramOutcomes     []course.ProgramOutcome `json:"program_outcomes"`
		TotalStudents       int                     `json:"total_students"`
		ProgramOutcomeCount int                     `json:"program_outcome_count"`
		TrackedPOCount      int                     `json:"tracked_po_count"`
		AverageScore        float64                 `json:"average_score"`
		TopPO               *POValue                `json:"top_po"`
		LowPO               *POValue                `json:"low_po"`
		Health              Health                  `json:"health_status"`
		CoursePOBreakdown   []CoursePOScores        `json:"course_po_breakdown"`
	}
)

// summarizeDepartment fills the overall average (rounded to 1 place), the top and lowest POs
// and the health status of d from its department averages.
func (d *HeadDashboard) summarizeDepartment() {
	d.TrackedPOCount = len(d.DepartmentAverages)
	d.Health = HealthOf(0)
	if len(d.DepartmentAverages) == 0 {
		return
	}

	values := make([]POValue, 0, len(d.ProgramOutcomes))
	var total float64
	for _, po := range d.ProgramOutcomes {
		if avg, ok := d.DepartmentAverages[po.Code]; ok {
			values = append(values, POValue{Code: po.Code, Description: po.Description, Value: avg})
			total += avg
		}
	}
	if len(values) == 0 {
		return
	}
	sort.SliceStable(values, func(i, j int) bool { return values[i].Value > values[j].Value })

	d.AverageScore = core.Round(total/float64(len(values)), 1)
	d.TopPO = &values[0]
	d.LowPO = &values[len(values)-1]
	d.Health = HealthOf(d.AverageScore)
}

type (
	DepartmentRadar struct {
		Labels       []string  `json:"labels"`
		Descriptions []string  `json:"descriptions"`
		Values       []float64 `json:"values"`
	}

	CourseRadar struct {
		Labels           []string  `json:"labels"`
		Descriptions     []string  `json:"descriptions"`
		CourseValues     []float64 `json:"course_values"`
		DepartmentValues []float64 `json:"department_values"`
		CourseName       string    `json:"course_name"`
	}
)

// NewDepartmentRadar lays out the department averages in PO order. Missing averages read as 0.
func NewDepartmentRadar(pos []course.ProgramOutcome, averages Scores) DepartmentRadar {
	radar := DepartmentRadar{
		Labels:       make([]string, 0, len(pos)),
		Descriptions: make([]string, 0, len(pos)),
		Values:       make([]float64, 0, len(pos)),
	}
	for _, po := range pos {
		radar.Labels = append(radar.Labels, po.Code)
		radar.Descriptions = append(radar.Descriptions, po.Description)
		radar.Values = append(radar.Values, averages[po.Code])
	}
	return radar
}

// NewCourseRadar compares the PO scores of crs (nil when it has no grades) to the department averages.
func NewCourseRadar(crs course.Course, pos []course.ProgramOutcome, scores *CoursePOScores, averages Scores) CourseRadar {
	dept := NewDepartmentRadar(pos, averages)
	radar := CourseRadar{
		Labels:           dept.Labels,
		Descriptions:     dept.Descriptions,
		DepartmentValues: dept.Values,
		CourseValues:     make([]float64, 0, len(pos)),
		CourseName:       crs.Label(),
	}
	for _, po := range pos {
		var value float64
		if scores != nil {
			value = scores.POScores[po.Code]
		}
		radar.CourseValues = append(radar.CourseValues, value)
	}
	return radar
}
