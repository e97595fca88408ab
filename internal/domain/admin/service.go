package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	departments DepartmentRepository
	doctors     DoctorRepository
	rules       RuleRepository
}

func NewService(departments DepartmentRepository, doctors DoctorRepository, rules RuleRepository) *Service {
	return &Service{departments: departments, doctors: doctors, rules: rules}
}

func (s *Service) CreateDepartment(ctx context.Context, d *Department) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return fmt.Errorf("department name is required")
	}
	if err := s.departments.Create(ctx, d); err != nil {
		return err
	}
	if d.IsGeneral {
		return s.departments.SetGeneral(ctx, d.ID)
	}
	return nil
}

func (s *Service) GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error) {
	return s.departments.GetByID(ctx, id)
}

func (s *Service) ListDepartments(ctx context.Context) ([]*Department, error) {
	return s.departments.List(ctx)
}

func (s *Service) UpdateDepartment(ctx context.Context, d *Department) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return fmt.Errorf("department name is required")
	}
	return s.departments.Update(ctx, d)
}

// DeactivateDepartment retires a department without deleting the row, so
// existing visits keep their destination.
func (s *Service) DeactivateDepartment(ctx context.Context, id uuid.UUID) error {
	return s.departments.Deactivate(ctx, id)
}

// SetGeneralDepartment hands the general fallback flag to the given
// department, clearing it from whichever held it before.
func (s *Service) SetGeneralDepartment(ctx context.Context, id uuid.UUID) error {
	return s.departments.SetGeneral(ctx, id)
}

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	d.FullName = strings.TrimSpace(d.FullName)
	if d.FullName == "" {
		return fmt.Errorf("doctor name is required")
	}
	if d.DepartmentID == uuid.Nil {
		return fmt.Errorf("department id is required")
	}
	if _, err := s.departments.GetByID(ctx, d.DepartmentID); err != nil {
		return err
	}
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, departmentID *uuid.UUID, activeOnly bool) ([]*Doctor, error) {
	return s.doctors.List(ctx, departmentID, activeOnly)
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	d.FullName = strings.TrimSpace(d.FullName)
	if d.FullName == "" {
		return fmt.Errorf("doctor name is required")
	}
	if _, err := s.departments.GetByID(ctx, d.DepartmentID); err != nil {
		return err
	}
	return s.doctors.Update(ctx, d)
}

func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	return s.doctors.Delete(ctx, id)
}

func (s *Service) CreateRule(ctx context.Context, r *SymptomRule) error {
	r.Keyword = strings.TrimSpace(r.Keyword)
	if r.Keyword == "" {
		return fmt.Errorf("keyword is required")
	}
	if r.DepartmentID == uuid.Nil {
		return fmt.Errorf("department id is required")
	}
	if _, err := s.departments.GetByID(ctx, r.DepartmentID); err != nil {
		return err
	}
	return s.rules.Create(ctx, r)
}

func (s *Service) GetRule(ctx context.Context, id uuid.UUID) (*SymptomRule, error) {
	return s.rules.GetByID(ctx, id)
}

func (s *Service) ListRules(ctx context.Context) ([]*SymptomRule, error) {
	return s.rules.List(ctx)
}

// ListActiveRules returns the rules the triage engine currently consults.
func (s *Service) ListActiveRules(ctx context.Context) ([]*SymptomRule, error) {
	return s.rules.ListActive(ctx)
}

func (s *Service) UpdateRule(ctx context.Context, r *SymptomRule) error {
	r.Keyword = strings.TrimSpace(r.Keyword)
	if r.Keyword == "" {
		return fmt.Errorf("keyword is required")
	}
	if _, err := s.departments.GetByID(ctx, r.DepartmentID); err != nil {
		return err
	}
	return s.rules.Update(ctx, r)
}

func (s *Service) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return s.rules.Delete(ctx, id)
}
