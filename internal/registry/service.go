package registry

import (
	"context"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/travelcrm/backend/internal/apperr"
	"github.com/travelcrm/backend/internal/models"
)

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	Create(ctx context.Context, p CreateParams) (*models.Counterparty, error)
	Get(ctx context.Context, companyID uuid.UUID, kind models.CounterpartyKind, id uuid.UUID) (*models.Counterparty, error)
	ListByKind(ctx context.Context, companyID uuid.UUID, kind models.CounterpartyKind) ([]*models.Counterparty, error)
}

type Service interface {
	CreateCounterparty(ctx context.Context, p CreateParams) (*models.Counterparty, error)
	GetCounterparty(ctx context.Context, companyID uuid.UUID, kind models.CounterpartyKind, id uuid.UUID) (*models.Counterparty, error)
	ListCounterparties(ctx context.Context, companyID uuid.UUID, kind models.CounterpartyKind) ([]*models.Counterparty, error)
}

type service struct {
	repo Store
}

func NewService(repo Store) *service {
	return &service{repo: repo}
}

var _ Service = (*service)(nil)

// trimOptional drops blank optional strings so they are stored as NULL.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (s *service) CreateCounterparty(ctx context.Context, p CreateParams) (*models.Counterparty, error) {
	verr := apperr.Validation("CreateCounterparty")
	if !p.Kind.Valid() {
		verr.Add("kind", "The selected kind is invalid.")
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		verr.Add("name", "The name field is required.")
	} else if utf8.RuneCountInString(p.Name) > 255 {
		verr.Add("name", "The name may not be greater than 255 characters.")
	}
	p.CompanyName = trimOptional(p.CompanyName)
	p.Destination = trimOptional(p.Destination)
	p.Email = trimOptional(p.Email)
	if p.Email != nil {
		if _, err := mail.ParseAddress(*p.Email); err != nil {
			verr.Add("email", "The email must be a valid email address.")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, p)
}

func (s *service) GetCounterparty(ctx context.Context, companyID uuid.UUID, kind models.CounterpartyKind, id uuid.UUID) (*models.Counterparty, error) {
	return s.repo.Get(ctx, companyID, kind, id)
}

func (s *service) ListCounterparties(ctx context.Context, companyID uuid.UUID, kind models.CounterpartyKind) ([]*models.Counterparty, error) {
	list, err := s.repo.ListByKind(ctx, companyID, kind)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Counterparty{}
	}
	return list, nil
}
