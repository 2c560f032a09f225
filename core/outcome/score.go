package outcome

import (
	"sort"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/course"
	"github.com/trezcool/alama/core/grade"
)

// MaxScore caps every program outcome score.
const MaxScore = 100.0

// Scores maps program outcome codes to a score in [0, 100].
type Scores map[string]float64

// CoursePOScores is the average program outcome achievement of the students graded in one course.
type CoursePOScores struct {
	CourseID     string           `json:"course_id"`
	CourseCode   string           `json:"course_code"`
	CourseName   string           `json:"course_name"`
	POScores     Scores           `json:"po_scores"`
	Distribution []PODistribution `json:"po_distribution,omitempty"`
}

type POInfo struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type LOShare struct {
	Description string `json:"description"`
	Percentage  int    `json:"percentage"`
}

// PODistribution lists the learning outcomes of a course contributing to one program outcome.
type PODistribution struct {
	ProgramOutcome   POInfo    `json:"program_outcome"`
	LearningOutcomes []LOShare `json:"learning_outcomes"`
}

// ratesByLO indexes contribution rates by learning outcome ID.
func ratesByLO(rates []course.ContributionRate) map[string][]course.ContributionRate {
	idx := make(map[string][]course.ContributionRate, len(rates))
	for _, cr := range rates {
		idx[cr.LearningOutcomeID] = append(idx[cr.LearningOutcomeID], cr)
	}
	return idx
}

func capScore(score float64) float64 {
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// StudentPOScores computes one student's score for every program outcome in pos.
// A PO scores the sum of score(LO) * percentage/100 over its contribution edges, where score(LO) is the
// student's grade for the LO (0 if ungraded). Sums are not normalized, capped at 100 and rounded to 2 places.
func StudentPOScores(pos []course.ProgramOutcome, rates []course.ContributionRate, grades []grade.Grade) Scores {
	scoreOf := make(map[string]int, len(grades))
	for _, g := range grades {
		scoreOf[g.LearningOutcomeID] = g.Score
	}
	sums := make(map[string]float64, len(pos))
	for _, cr := range rates {
		if score, ok := scoreOf[cr.LearningOutcomeID]; ok {
			sums[cr.ProgramOutcomeID] += float64(score) * cr.Weight()
		}
	}

	scores := make(Scores, len(pos))
	for _, po := range pos {
		scores[po.Code] = core.Round(capScore(sums[po.ID]), 2)
	}
	return scores
}

// DepartmentPOAverages averages StudentPOScores over every student of gradesByStudent (keyed by student ID).
// Students without grades count as 0 for every PO. No students at all yields an empty map.
func DepartmentPOAverages(pos []course.ProgramOutcome, rates []course.ContributionRate, gradesByStudent map[string][]grade.Grade) Scores {
	avgs := make(Scores)
	if len(gradesByStudent) == 0 {
		return avgs
	}

	totals := make(map[string]float64, len(pos))
	for _, grades := range gradesByStudent {
		for code, score := range StudentPOScores(pos, rates, grades) {
			totals[code] += score
		}
	}
	for _, po := range pos {
		avgs[po.Code] = core.Round(totals[po.Code]/float64(len(gradesByStudent)), 2)
	}
	return avgs
}

// AggregateCoursePOScores groups grades by course and averages, per PO, the capped score of each student
// graded in the course. Only POs reached by a graded LO appear. The result is ordered by course code.
func AggregateCoursePOScores(grades []grade.Grade, rates []course.ContributionRate) []CoursePOScores {
	byLO := ratesByLO(rates)

	type courseAcc struct {
		info     CoursePOScores
		students map[string]map[string]float64 // student ID -> PO code -> score
	}
	courses := make(map[string]*courseAcc)
	for _, g := range grades {
		acc, ok := courses[g.CourseID]
		if !ok {
			acc = &courseAcc{
				info:     CoursePOScores{CourseID: g.CourseID, CourseCode: g.CourseCode, CourseName: g.CourseName},
				students: make(map[string]map[string]float64),
			}
			courses[g.CourseID] = acc
		}
		for _, cr := range byLO[g.LearningOutcomeID] {
			st, ok := acc.students[g.StudentID]
			if !ok {
				st = make(map[string]float64)
				acc.students[g.StudentID] = st
			}
			st[cr.ProgramOutcomeCode] += float64(g.Score) * cr.Weight()
		}
	}

	results := make([]CoursePOScores, 0, len(courses))
	for _, acc := range courses {
		sums := make(map[string]float64)
		counts := make(map[string]int)
		for _, st := range acc.students {
			for code, score := range st {
				sums[code] += capScore(score)
				counts[code]++
			}
		}

		acc.info.POScores = make(Scores, len(sums))
		for code, sum := range sums {
			acc.info.POScores[code] = core.Round(sum/float64(counts[code]), 2)
		}
		results = append(results, acc.info)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].CourseCode < results[j].CourseCode })
	return results
}

// BuildCoursePODistributions lists, for each course of courseIDs, the POs reached by its learning outcomes
// with their contributing LOs, ordered by PO code then LO description.
func BuildCoursePODistributions(courseIDs []string, rates []course.ContributionRate) map[string][]PODistribution {
	dists := make(map[string][]PODistribution, len(courseIDs))
	if len(courseIDs) == 0 {
		return dists
	}
	wanted := make(map[string]bool, len(courseIDs))
	for _, id := range courseIDs {
		wanted[id] = true
	}

	sorted := make([]course.ContributionRate, 0, len(rates))
	for _, cr := range rates {
		if wanted[cr.CourseID] {
			sorted = append(sorted, cr)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ProgramOutcomeCode != sorted[j].ProgramOutcomeCode {
			return sorted[i].ProgramOutcomeCode < sorted[j].ProgramOutcomeCode
		}
		return sorted[i].LearningOutcomeDescription < sorted[j].LearningOutcomeDescription
	})

	for _, cr := range sorted {
		share := LOShare{Description: cr.LearningOutcomeDescription, Percentage: cr.Percentage}
		entries := dists[cr.CourseID]
		if n := len(entries); n > 0 && entries[n-1].ProgramOutcome.Code == cr.ProgramOutcomeCode {
			entries[n-1].LearningOutcomes = append(entries[n-1].LearningOutcomes, share)
			continue
		}
		dists[cr.CourseID] = append(entries, PODistribution{
			ProgramOutcome:   POInfo{Code: cr.ProgramOutcomeCode, Description: cr.ProgramOutcomeDescription},
			LearningOutcomes: []LOShare{share},
		})
	}
	return dists
}
