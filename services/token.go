package services

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jenkinph/procedure-passport/models"
)

const (
	accessSubject = "access"
	linkSubject   = "evaluation-link"
)

// AccessClaims identify a logged-in user.
type AccessClaims struct {
	Email string `json:"user"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Spec  string `json:"spec,omitempty"`
	jwt.RegisteredClaims
}

// LinkClaims carry a pre-filled external evaluation.
type LinkClaims struct {
	Link models.EvaluationLink `json:"link"`
	jwt.RegisteredClaims
}

// TokenService signs the access cookie and evaluation links with one HMAC key.
type TokenService struct {
	secret    []byte
	accessTTL time.Duration
	linkTTL   time.Duration
	now       func() time.Time
}

func NewTokenService(secret string, accessTTL, linkTTL time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), accessTTL: accessTTL, linkTTL: linkTTL, now: time.Now}
}

func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

func (s *TokenService) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (s *TokenService) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *TokenService) parse(tokenString string, claims jwt.Claims, subject string) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithSubject(subject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}

func (s *TokenService) IssueAccess(id Identity) (string, error) {
	return s.sign(AccessClaims{
		Email:            id.Email,
		Name:             id.Name,
		Role:             id.Role,
		Spec:             id.SpecialtyID,
		RegisteredClaims: s.registered(accessSubject, s.accessTTL),
	})
}

func (s *TokenService) ParseAccess(tokenString string) (Identity, error) {
	var claims AccessClaims
	if err := s.parse(tokenString, &claims, accessSubject); err != nil {
		return Identity{}, err
	}
	if claims.Email == "" || (claims.Role != RoleAdmin && claims.Role != RoleResident) {
		return Identity{}, ErrInvalidToken
	}
	return Identity{Email: claims.Email, Name: claims.Name, Role: claims.Role, SpecialtyID: claims.Spec}, nil
}

// IssueLink signs an evaluation link naming the resident, procedure,
// specialty and evaluator.
func (s *TokenService) IssueLink(link models.EvaluationLink) (string, error) {
	link.ResidentEmail = models.NormalizeEmail(link.ResidentEmail)
	link.ProcedureID = strings.ToUpper(strings.TrimSpace(link.ProcedureID))
	link.SpecialtyID = strings.TrimSpace(link.SpecialtyID)
	link.EvaluatorName = strings.TrimSpace(link.EvaluatorName)
	if !link.Complete() {
		return "", invalid("link", "needs resident, procedure, specialty and evaluator")
	}
	return s.sign(LinkClaims{Link: link, RegisteredClaims: s.registered(linkSubject, s.linkTTL)})
}

func (s *TokenService) ParseLink(tokenString string) (models.EvaluationLink, error) {
	var claims LinkClaims
	if err := s.parse(tokenString, &claims, linkSubject); err != nil {
		return models.EvaluationLink{}, err
	}
	return claims.Link, nil
}

// LinkURL is the shareable deep link for a signed token.
func LinkURL(baseURL, token string) string {
	q := url.Values{}
	q.Set("mode", "external")
	q.Set("token", token)
	return strings.TrimRight(baseURL, "/") + "/evaluate?" + q.Encode()
}
