package services

import (
	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
)

// Form stages.
const (
	StageStart      = "start"
	StageAssessment = "assessment"
	StageSubmitted  = "submitted"
)

const formStateKey = "form_state"

// FormState is the in-progress assessment of one browser session.
type FormState struct {
	Stage         string `json:"stage"`
	ResidentEmail string `json:"resident_email"`
	ResidentName  string `json:"resident_name,omitempty"`
	SpecialtyID   string `json:"specialty_id"`
	ProcedureID   string `json:"procedure_id"`
	EvaluatorID   string `json:"evaluator_id"`
	EvaluatorName string `json:"evaluator_name,omitempty"`
	Date          string `json:"date"`
	External      bool   `json:"external,omitempty"`
	// Nonce is issued with the form and must come back on submit. It is
	// cleared once the form has been accepted.
	Nonce      string `json:"nonce,omitempty"`
	LastCaseID string `json:"last_case_id,omitempty"`
	Flash      string `json:"flash,omitempty"`
}

// Arm issues a fresh nonce.
func (f *FormState) Arm() string {
	f.Nonce = uuid.NewString()
	return f.Nonce
}

// Consume accepts nonce once.
func (f *FormState) Consume(nonce string) bool {
	if f.Nonce == "" || nonce != f.Nonce {
		return false
	}
	f.Nonce = ""
	return true
}

// TakeFlash returns and clears the pending message.
func (f *FormState) TakeFlash() string {
	msg := f.Flash
	f.Flash = ""
	return msg
}

// LoadForm reads the form state of sess; a missing or unreadable value is an
// empty state.
func LoadForm(sess *session.Session) FormState {
	var f FormState
	raw, ok := sess.Get(formStateKey).(string)
	if !ok || raw == "" {
		return f
	}
	if err := sonic.UnmarshalString(raw, &f); err != nil {
		return FormState{}
	}
	return f
}

// SaveForm stores f in sess and persists the session.
func SaveForm(sess *session.Session, f FormState) error {
	raw, err := sonic.MarshalString(f)
	if err != nil {
		return err
	}
	sess.Set(formStateKey, raw)
	return sess.Save()
}
