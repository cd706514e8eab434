package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenkinph/procedure-passport/models"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	s := NewTokenService("secret", time.Hour, time.Hour)
	id := Identity{Email: "a@x.com", Name: "Ann", Role: RoleResident, SpecialtyID: "GS"}
	tok, err := s.IssueAccess(id)
	require.NoError(t, err)

	got, err := s.ParseAccess(tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestAccessTokenRejections(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewTokenService("secret", time.Hour, time.Hour)
	s.now = func() time.Time { return now }
	tok, err := s.IssueAccess(Identity{Email: "a@x.com", Role: RoleAdmin})
	require.NoError(t, err)

	other := NewTokenService("other", time.Hour, time.Hour)
	other.now = s.now
	_, err = other.ParseAccess(tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong key")

	link, err := s.IssueLink(models.EvaluationLink{ResidentEmail: "a@x.com", ProcedureID: "P", SpecialtyID: "S", EvaluatorName: "E"})
	require.NoError(t, err)
	_, err = s.ParseAccess(link)
	assert.ErrorIs(t, err, ErrInvalidToken, "link used as access token")

	now = now.Add(2 * time.Hour)
	_, err = s.ParseAccess(tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")
}

func TestLinkToken(t *testing.T) {
	s := NewTokenService("secret", time.Hour, time.Hour)
	tok, err := s.IssueLink(models.EvaluationLink{
		ResidentEmail: "A@X.com ", ProcedureID: "lapapp", SpecialtyID: "GS", EvaluatorName: " Dr. Jane Doe",
	})
	require.NoError(t, err)

	link, err := s.ParseLink(tok)
	require.NoError(t, err)
	assert.Equal(t, models.EvaluationLink{ResidentEmail: "a@x.com", ProcedureID: "LAPAPP", SpecialtyID: "GS", EvaluatorName: "Dr. Jane Doe"}, link)

	_, err = s.IssueLink(models.EvaluationLink{ResidentEmail: "a@x.com"})
	assert.ErrorIs(t, err, ErrValidation)

	u := LinkURL("http://host:3000/", tok)
	assert.Contains(t, u, "http://host:3000/evaluate?")
	assert.Contains(t, u, "mode=external")
	assert.Contains(t, u, "token="+tok)
}
