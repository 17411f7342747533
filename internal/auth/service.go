package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/travelcrm/backend/internal/apperr"
	"github.com/travelcrm/backend/internal/models"
)

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

const tokenTTL = 24 * time.Hour

// Operator is a CRM user belonging to one company.
type Operator struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	CompanyName string
	Email       string
	Name        string
	Role        string
}

type RegisterInput struct {
	Email       string
	Password    string
	Name        string
	CompanyName string
}

// Store persists operators. GetByEmail returns apperr.ErrNotFound for unknown emails.
type Store interface {
	CreateWithCompany(ctx context.Context, companyName, email, passwordHash, name, role string) (*Operator, error)
	GetByEmail(ctx context.Context, email string) (*Operator, string, error)
}

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*Operator, error)
	Login(ctx context.Context, email, password string) (string, *Operator, error)
	ValidateToken(ctx context.Context, token string) (*models.Identity, error)
}

type service struct {
	repo   Store
	secret []byte
	now    func() time.Time
}

func NewService(repo Store, secret string) *service {
	return &service{repo: repo, secret: []byte(secret), now: time.Now}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
}

// Register creates a company together with its first operator, who becomes admin.
func (s *service) Register(ctx context.Context, in RegisterInput) (*Operator, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	op, err := s.repo.CreateWithCompany(ctx, strings.TrimSpace(in.CompanyName), email, string(hash), strings.TrimSpace(in.Name), models.RoleAdmin)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperr.Validation("Register").Add("email", "The email has already been taken.")
		}
		return nil, fmt.Errorf("create operator: %w", err)
	}
	return op, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, *Operator, error) {
	op, hash, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.issueToken(op)
	if err != nil {
		return "", nil, err
	}
	return token, op, nil
}

func (s *service) issueToken(op *Operator) (string, error) {
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   op.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		CompanyID: op.CompanyID.String(),
		Role:      op.Role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(ctx context.Context, token string) (*models.Identity, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return nil, errors.New("invalid token")
	}
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, fmt.Errorf("subject: %w", err)
	}
	companyID, err := uuid.Parse(c.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("company_id: %w", err)
	}
	return &models.Identity{UserID: userID, CompanyID: companyID, Role: c.Role}, nil
}
