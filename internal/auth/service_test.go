package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/travelcrm/backend/internal/apperr"
	"github.com/travelcrm/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Mock store
// ---------------------------------------------------------------------------

type memStore struct {
	byEmail map[string]*Operator
	hashes  map[string]string
}

func newMemStore() *memStore {
	return &memStore{byEmail: map[string]*Operator{}, hashes: map[string]string{}}
}

func (m *memStore) CreateWithCompany(_ context.Context, companyName, email, passwordHash, name, role string) (*Operator, error) {
	if _, ok := m.byEmail[email]; ok {
		return nil, &pgconn.PgError{Code: "23505"}
	}
	op := &Operator{ID: uuid.New(), CompanyID: uuid.New(), CompanyName: companyName, Email: email, Name: name, Role: role}
	m.byEmail[email] = op
	m.hashes[email] = passwordHash
	return op, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*Operator, string, error) {
	op, ok := m.byEmail[email]
	if !ok {
		return nil, "", apperr.NotFound("User")
	}
	return op, m.hashes[email], nil
}

func register(t *testing.T, svc *service) *Operator {
	t.Helper()
	op, err := svc.Register(context.Background(), RegisterInput{
		Email: "Owner@Example.com ", Password: "correct-horse", Name: "Asha", CompanyName: "Sunrise Travels",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return op
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

func TestRegisterAndLogin_TokenCarriesTenant(t *testing.T) {
	svc := NewService(newMemStore(), "test-secret")
	op := register(t, svc)
	if op.Role != models.RoleAdmin || op.Email != "owner@example.com" {
		t.Errorf("registered operator: %+v", op)
	}

	token, got, err := svc.Login(context.Background(), "owner@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != op.ID {
		t.Errorf("login returned %s, want %s", got.ID, op.ID)
	}

	id, err := svc.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if id.UserID != op.ID || id.CompanyID != op.CompanyID || id.Role != models.RoleAdmin {
		t.Errorf("identity: %+v", id)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := NewService(newMemStore(), "test-secret")
	register(t, svc)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "owner@example.com", Password: "another-pass", Name: "B", CompanyName: "Other",
	})
	ve, ok := apperr.AsValidation(err)
	if !ok || len(ve.Fields["email"]) == 0 {
		t.Fatalf("expected email validation error, got %v", err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := NewService(newMemStore(), "test-secret")
	register(t, svc)

	if _, _, err := svc.Login(context.Background(), "owner@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody@example.com", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v", err)
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, "test-secret")
	register(t, svc)
	token, _, err := svc.Login(context.Background(), "owner@example.com", "correct-horse")
	if err != nil {
		t.Fatal(err)
	}

	other := NewService(store, "other-secret")
	if _, err := other.ValidateToken(context.Background(), token); err == nil {
		t.Error("token signed with another secret must be rejected")
	}

	svc.now = func() time.Time { return time.Now().Add(tokenTTL + time.Minute) }
	if _, err := svc.ValidateToken(context.Background(), token); err == nil {
		t.Error("expired token must be rejected")
	}

	if _, err := svc.ValidateToken(context.Background(), "not-a-jwt"); err == nil {
		t.Error("garbage token must be rejected")
	}
}

// ---------------------------------------------------------------------------
// Handler
// ---------------------------------------------------------------------------

func quietHandler(svc Service) *Handler {
	return NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func TestHandler_RegisterThenLogin(t *testing.T) {
	h := quietHandler(NewService(newMemStore(), "test-secret"))

	body := `{"email":"ops@example.com","password":"longenough","name":"Ravi","company_name":"Blue Skies"}`
	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString(body)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: status %d body %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"email":"ops@example.com","password":"longenough"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", rr.Code, rr.Body.String())
	}
	var env struct {
		Success bool          `json:"success"`
		Data    LoginResponse `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	if !env.Success || env.Data.Token == "" || env.Data.User.CompanyName != "Blue Skies" {
		t.Errorf("login response: %+v", env)
	}

	rr = httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"email":"ops@example.com","password":"nope"}`)))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("bad password: status %d", rr.Code)
	}
}

func TestHandler_MalformedJSON(t *testing.T) {
	h := quietHandler(NewService(newMemStore(), "test-secret"))
	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString(`{`)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}
