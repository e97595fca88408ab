package admin

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrDepartmentNotFound = errors.New("department not found")
	ErrDoctorNotFound     = errors.New("doctor not found")
	ErrRuleNotFound       = errors.New("symptom rule not found")
	ErrDuplicateName      = errors.New("department name already exists")
	ErrNoGeneral          = errors.New("no general department configured")
)

type DepartmentRepository interface {
	Create(ctx context.Context, d *Department) error
	GetByID(ctx context.Context, id uuid.UUID) (*Department, error)
	// GetGeneral returns the department flagged as the general fallback,
	// or ErrNoGeneral when none is.
	GetGeneral(ctx context.Context) (*Department, error)
	List(ctx context.Context) ([]*Department, error)
	Update(ctx context.Context, d *Department) error
	// Deactivate marks the department inactive instead of removing the
	// row, so visits that already reference it keep resolving.
	Deactivate(ctx context.Context, id uuid.UUID) error
	// SetGeneral flags the department as the general fallback and clears
	// the flag from any other department, atomically.
	SetGeneral(ctx context.Context, id uuid.UUID) error
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	List(ctx context.Context, departmentID *uuid.UUID, activeOnly bool) ([]*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type RuleRepository interface {
	Create(ctx context.Context, r *SymptomRule) error
	GetByID(ctx context.Context, id uuid.UUID) (*SymptomRule, error)
	List(ctx context.Context) ([]*SymptomRule, error)
	// ListActive returns only rules whose active flag is set; the triage
	// engine consults these and nothing else.
	ListActive(ctx context.Context) ([]*SymptomRule, error)
	Update(ctx context.Context, r *SymptomRule) error
	Delete(ctx context.Context, id uuid.UUID) error
}
