package models

// EvaluationLink is the pre-filled context of an external evaluation.
type EvaluationLink struct {
	ResidentEmail string `json:"resident"`
	ProcedureID   string `json:"procedure"`
	SpecialtyID   string `json:"specialty"`
	EvaluatorName string `json:"evaluator"`
}

// Complete reports whether every field needed to open the form is set.
func (l EvaluationLink) Complete() bool {
	return l.ResidentEmail != "" && l.ProcedureID != "" && l.SpecialtyID != "" && l.EvaluatorName != ""
}
