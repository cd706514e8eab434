package models

import (
	"fmt"
	"sort"
)

type Specialty struct {
	ID   string `gorm:"primaryKey;size:20;column:specialty_id" json:"specialty_id" yaml:"id"`
	Name string `gorm:"size:100;not null;column:specialty_name" json:"specialty_name" yaml:"name"`
}

func (Specialty) TableName() string { return "specialties" }

type Procedure struct {
	ID          string `gorm:"primaryKey;size:20;column:procedure_id" json:"procedure_id"`
	Name        string `gorm:"size:200;not null;column:procedure_name" json:"procedure_name"`
	SpecialtyID string `gorm:"size:20;not null;index;column:specialty_id" json:"specialty_id"`
}

func (Procedure) TableName() string { return "procedures" }

// Step is an ordered, individually rated sub-task of a procedure.
type Step struct {
	ID          string `gorm:"primaryKey;size:40;column:step_id" json:"step_id"`
	ProcedureID string `gorm:"size:20;not null;uniqueIndex:idx_step_order;column:procedure_id" json:"procedure_id"`
	Order       int    `gorm:"not null;uniqueIndex:idx_step_order;column:step_order" json:"step_order"`
	Name        string `gorm:"size:300;not null;column:step_name" json:"step_name"`
}

func (Step) TableName() string { return "steps" }

// StepID builds S_{procedure}_{order}, order zero-padded to two digits.
func StepID(procedureID string, order int) string {
	return fmt.Sprintf("S_%s_%02d", procedureID, order)
}

// NewSteps numbers names 1..n in the order given.
func NewSteps(procedureID string, names []string) []Step {
	steps := make([]Step, 0, len(names))
	for i, name := range names {
		steps = append(steps, Step{
			ID:          StepID(procedureID, i+1),
			ProcedureID: procedureID,
			Order:       i + 1,
			Name:        name,
		})
	}
	return steps
}

// Catalog is the reference data cases are recorded against.
type Catalog struct {
	Specialties []Specialty `json:"specialties"`
	Procedures  []Procedure `json:"procedures"`
	Steps       []Step      `json:"steps"`
	Evaluators  []Evaluator `json:"evaluators"`
}

func (c Catalog) Specialty(id string) (Specialty, bool) {
	for _, s := range c.Specialties {
		if s.ID == id {
			return s, true
		}
	}
	return Specialty{}, false
}

func (c Catalog) Procedure(id string) (Procedure, bool) {
	for _, p := range c.Procedures {
		if p.ID == id {
			return p, true
		}
	}
	return Procedure{}, false
}

func (c Catalog) Evaluator(id string) (Evaluator, bool) {
	for _, e := range c.Evaluators {
		if e.ID == id {
			return e, true
		}
	}
	return Evaluator{}, false
}

// StepsFor returns the procedure's steps in ascending order.
func (c Catalog) StepsFor(procedureID string) []Step {
	var out []Step
	for _, s := range c.Steps {
		if s.ProcedureID == procedureID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (c Catalog) ProceduresFor(specialtyID string) []Procedure {
	var out []Procedure
	for _, p := range c.Procedures {
		if p.SpecialtyID == specialtyID {
			out = append(out, p)
		}
	}
	return out
}

func (c Catalog) EvaluatorsFor(specialtyID string) []Evaluator {
	var out []Evaluator
	for _, e := range c.Evaluators {
		if e.SpecialtyID == specialtyID {
			out = append(out, e)
		}
	}
	return out
}
