package models

import (
	"sort"
	"time"
)

// DateLayout is how case dates are written to the tabular store and forms.
const DateLayout = "2006-01-02"

// Case is one completed evaluation. Rows are append-only.
type Case struct {
	CaseID             string     `gorm:"primaryKey;size:12;column:case_id" json:"case_id"`
	ResidentEmail      string     `gorm:"size:100;not null;index;column:resident_email" json:"resident_email"`
	Date               time.Time  `gorm:"type:date;column:date" json:"date"`
	SpecialtyID        string     `gorm:"size:20;column:specialty_id" json:"specialty_id"`
	ProcedureID        string     `gorm:"size:20;index;column:procedure_id" json:"procedure_id"`
	EvaluatorID        string     `gorm:"size:150;column:attending_id" json:"attending_id"`
	Notes              string     `gorm:"type:text;column:notes" json:"notes"`
	CaseComplexity     Complexity `gorm:"size:30;column:case_complexity" json:"case_complexity"`
	OverallPerformance OScore     `gorm:"size:30;column:overall_performance" json:"overall_performance"`
}

func (Case) TableName() string { return "cases" }

// Score is one step rating of a case. Complexity and O-Score are copied
// from the parent case.
type Score struct {
	CaseID             string     `gorm:"primaryKey;size:12;column:case_id" json:"case_id"`
	StepID             string     `gorm:"primaryKey;size:40;column:step_id" json:"step_id"`
	Rating             Rating     `gorm:"size:30;column:rating" json:"rating"`
	RatingNum          *int       `gorm:"column:rating_num" json:"rating_num"`
	CaseComplexity     Complexity `gorm:"size:30;column:case_complexity" json:"case_complexity"`
	OverallPerformance OScore     `gorm:"size:30;column:overall_performance" json:"overall_performance"`
}

func (Score) TableName() string { return "scores" }

// NewCase is what a submitted assessment form carries.
type NewCase struct {
	ResidentEmail      string
	Date               time.Time
	SpecialtyID        string
	ProcedureID        string
	EvaluatorID        string
	RatingsByStep      map[string]Rating
	Notes              string
	CaseComplexity     Complexity
	OverallPerformance OScore
}

// Scores expands the ratings into score rows for caseID.
func (n NewCase) Scores(caseID string) []Score {
	out := make([]Score, 0, len(n.RatingsByStep))
	for stepID, rating := range n.RatingsByStep {
		out = append(out, Score{
			CaseID:             caseID,
			StepID:             stepID,
			Rating:             rating,
			RatingNum:          rating.OrdinalPtr(),
			CaseComplexity:     n.CaseComplexity,
			OverallPerformance: n.OverallPerformance,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepID < out[j].StepID })
	return out
}
