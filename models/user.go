package models

import (
	"strings"
	"time"
)

// Resident is a trainee who logs in by email and is evaluated.
type Resident struct {
	Email       string    `gorm:"primaryKey;size:100;column:email" json:"email"`
	Name        string    `gorm:"size:100;column:name" json:"name"`
	SpecialtyID string    `gorm:"size:20;column:specialty_id" json:"specialty_id"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Resident) TableName() string { return "residents" }

// Evaluator is an attending who rates cases.
type Evaluator struct {
	ID          string `gorm:"primaryKey;size:150;column:attending_id" json:"attending_id"`
	Name        string `gorm:"size:100;not null;column:attending_name" json:"attending_name"`
	SpecialtyID string `gorm:"size:20;not null;index;column:specialty_id" json:"specialty_id"`
	Email       string `gorm:"size:100;column:email" json:"email,omitempty"`
}

func (Evaluator) TableName() string { return "attendings" }

// EvaluatorID builds A_{specialty}_{NAME}: spaces become underscores and the
// name is uppercased. Other punctuation is kept, so "Dr. Jane Doe" under OB
// becomes A_OB_DR._JANE_DOE.
func EvaluatorID(specialtyID, name string) string {
	return "A_" + specialtyID + "_" + strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}

// NormalizeEmail is the key form of a resident email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
