package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	p.FullName = strings.TrimSpace(p.FullName)
	if p.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// PatientExists reports whether a patient record exists, for callers that
// only need referential validity (visit registration).
func (s *Service) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	p.FullName = strings.TrimSpace(p.FullName)
	if p.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	if name != "" {
		return s.repo.SearchByName(ctx, name, limit, offset)
	}
	return s.repo.List(ctx, limit, offset)
}

// UpsertPatient returns an existing patient matching the given details, or
// creates a new one. Matching prefers the identity number; without one (or
// without a hit) it falls back to the full profile of name, date of birth and
// phone. Matched records are not modified.
func (s *Service) UpsertPatient(ctx context.Context, p *Patient) (*Patient, error) {
	p.FullName = strings.TrimSpace(p.FullName)
	if p.FullName == "" {
		return nil, fmt.Errorf("full_name is required")
	}

	if p.IdentityNumber != nil && strings.TrimSpace(*p.IdentityNumber) != "" {
		existing, err := s.repo.FindByIdentityNumber(ctx, strings.TrimSpace(*p.IdentityNumber))
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	existing, err := s.repo.FindByProfile(ctx, p.FullName, p.DateOfBirth, p.Phone)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
