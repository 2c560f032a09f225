package attendance

import (
	"sort"

	"github.com/trezcool/alama/core"
)

// Three attendance formulas coexist, each used by a different view.
// All of them return 0 for an empty input and round to 1 decimal place.

// Tally counts attendance records by status.
type Tally struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
}

func TallyOf(records []Record) Tally {
	var t Tally
	for _, r := range records {
		t.Add(r.Status)
	}
	return t
}

func (t *Tally) Add(st Status) {
	switch st {
	case StatusPresent:
		t.Present++
	case StatusAbsent:
		t.Absent++
	case StatusLate:
		t.Late++
	}
}

func (t Tally) Total() int {
	return t.Present + t.Absent + t.Late
}

// WeightedPercentage is (Present + 0.5*Late) / total * 100: late counts as half attendance.
func (t Tally) WeightedPercentage() float64 {
	return t.percentage(float64(t.Present) + 0.5*float64(t.Late))
}

// AttendanceRate is (Present + Late) / total * 100: late counts as full attendance.
func (t Tally) AttendanceRate() float64 {
	return t.percentage(float64(t.Present + t.Late))
}

// PresentPercentage is Present / total * 100: late counts as absence.
func (t Tally) PresentPercentage() float64 {
	return t.percentage(float64(t.Present))
}

func (t Tally) percentage(attended float64) float64 {
	total := t.Total()
	if total == 0 {
		return 0
	}
	return core.Round(attended/float64(total)*100, 1)
}

func WeightedPercentage(records []Record) float64 { return TallyOf(records).WeightedPercentage() }
func AttendanceRate(records []Record) float64     { return TallyOf(records).AttendanceRate() }
func PresentPercentage(records []Record) float64  { return TallyOf(records).PresentPercentage() }

// CourseSummary is a student's attendance in one course.
type CourseSummary struct {
	CourseID           string   `json:"course_id"`
	CourseCode         string   `json:"course_code"`
	CourseName         string   `json:"course_name"`
	Records            []Record `json:"records"`
	Tally              Tally    `json:"tally"`
	PresentPercentage  float64  `json:"present_percentage"`
	AttendanceRate     float64  `json:"attendance_rate"`
	WeightedPercentage float64  `json:"weighted_percentage"`
}

// StudentSummary is a student's attendance across all their courses.
type StudentSummary struct {
	Courses           []CourseSummary `json:"courses"`
	Tally             Tally           `json:"tally"`
	PresentPercentage float64         `json:"present_percentage"`
}

// Summarize groups records by course (ordered by course code); each course's records are newest date first.
func Summarize(records []Record) StudentSummary {
	byCourse := make(map[string]*CourseSummary)
	order := make([]string, 0)
	for _, r := range records {
		cs, ok := byCourse[r.CourseID]
		if !ok {
			cs = &CourseSummary{CourseID: r.CourseID, CourseCode: r.CourseCode, CourseName: r.CourseName}
			byCourse[r.CourseID] = cs
			order = append(order, r.CourseID)
		}
		cs.Records = append(cs.Records, r)
	}

	summary := StudentSummary{
		Courses:           make([]CourseSummary, 0, len(order)),
		Tally:             TallyOf(records),
		PresentPercentage: PresentPercentage(records),
	}
	for _, id := range order {
		cs := byCourse[id]
		sort.SliceStable(cs.Records, func(i, j int) bool { return cs.Records[i].Date.After(cs.Records[j].Date) })
		cs.Tally = TallyOf(cs.Records)
		cs.PresentPercentage = cs.Tally.PresentPercentage()
		cs.AttendanceRate = cs.Tally.AttendanceRate()
		cs.WeightedPercentage = cs.Tally.WeightedPercentage()
		summary.Courses = append(summary.Courses, *cs)
	}
	sort.SliceStable(summary.Courses, func(i, j int) bool { return summary.Courses[i].CourseCode < summary.Courses[j].CourseCode })
	return summary
}

// CourseAverage is the attendance of one course across all its students, as shown to department heads.
type CourseAverage struct {
	CourseID   string  `json:"course_id"`
	CourseCode string  `json:"course_code"`
	CourseName string  `json:"course_name"`
	Tally      Tally   `json:"tally"`
	Average    float64 `json:"average"` // present percentage
}
