package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hospitaltriage/intake/internal/domain/admin"
	"github.com/hospitaltriage/intake/internal/domain/visit"
	"github.com/hospitaltriage/intake/internal/platform/db"
)

// ErrNoDestination is returned when no rule matches the symptoms and no
// general fallback department is configured.
var ErrNoDestination = errors.New("no destination resolvable")

// ErrInactiveDoctor is returned when the requested doctor is inactive or
// belongs to a different department than the resolved destination.
var ErrInactiveDoctor = errors.New("doctor not available for the destination department")

type Service struct {
	visits      *visit.Service
	rules       admin.RuleRepository
	departments admin.DepartmentRepository
	doctors     admin.DoctorRepository
}

func NewService(visits *visit.Service, rules admin.RuleRepository, departments admin.DepartmentRepository, doctors admin.DoctorRepository) *Service {
	return &Service{visits: visits, rules: rules, departments: departments, doctors: doctors}
}

// Result is the triage outcome returned to the caller: the updated visit
// plus how its destination was picked.
type Result struct {
	Visit      *visit.Visit `json:"visit"`
	ResolvedBy string       `json:"resolved_by"` // "explicit", "rule" or "general"
}

// TriageVisit records symptoms for a visit and routes it to a department.
// Destination resolution tries, in order: the explicitly requested
// department, the keyword rules, the general fallback. A visit in
// waiting_triage moves triaged then waiting_doctor, leaving both steps in
// its history; re-triaging a visit past that point only updates the
// recorded symptoms, department and doctor.
func (s *Service) TriageVisit(ctx context.Context, visitID uuid.UUID, symptoms string, departmentID, doctorID *uuid.UUID) (*Result, error) {
	symptoms = strings.TrimSpace(symptoms)
	if symptoms == "" {
		return nil, fmt.Errorf("symptoms are required")
	}

	v, err := s.visits.GetVisit(ctx, visitID)
	if err != nil {
		return nil, err
	}

	destID, resolvedBy, err := s.resolveDestination(ctx, symptoms, departmentID)
	if err != nil {
		return nil, err
	}

	if doctorID != nil {
		doc, err := s.doctors.GetByID(ctx, *doctorID)
		if err != nil {
			return nil, err
		}
		if !doc.Active || doc.DepartmentID != destID {
			return nil, ErrInactiveDoctor
		}
	}

	v.Symptoms = &symptoms
	v.DepartmentID = &destID
	v.DoctorID = doctorID

	// The triage outcome and both status steps land together or not at
	// all, so a half-triaged visit never becomes visible.
	err = db.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.visits.UpdateTriage(ctx, v); err != nil {
			return err
		}
		if v.Status != visit.StatusWaitingTriage {
			return nil
		}
		if err := s.visits.ChangeStatus(ctx, visitID, visit.StatusTriaged); err != nil {
			return err
		}
		return s.visits.ChangeStatus(ctx, visitID, visit.StatusWaitingDoctor)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("visit_id", visitID.String()).
		Str("department_id", destID.String()).
		Str("resolved_by", resolvedBy).
		Msg("visit triaged")

	updated, err := s.visits.GetVisit(ctx, visitID)
	if err != nil {
		return nil, err
	}
	return &Result{Visit: updated, ResolvedBy: resolvedBy}, nil
}

// Suggestion is a dry-run triage outcome: where the engine would route
// the symptoms without touching any visit.
type Suggestion struct {
	DepartmentID   uuid.UUID `json:"department_id"`
	DepartmentName string    `json:"department_name"`
	ResolvedBy     string    `json:"resolved_by"`
}

// SuggestDepartment runs the rule engine over the symptoms and reports
// where a visit carrying them would be routed.
func (s *Service) SuggestDepartment(ctx context.Context, symptoms string) (*Suggestion, error) {
	symptoms = strings.TrimSpace(symptoms)
	if symptoms == "" {
		return nil, fmt.Errorf("symptoms are required")
	}

	destID, resolvedBy, err := s.resolveDestination(ctx, symptoms, nil)
	if err != nil {
		return nil, err
	}
	dept, err := s.departments.GetByID(ctx, destID)
	if err != nil {
		return nil, err
	}
	return &Suggestion{DepartmentID: dept.ID, DepartmentName: dept.Name, ResolvedBy: resolvedBy}, nil
}

func (s *Service) resolveDestination(ctx context.Context, symptoms string, departmentID *uuid.UUID) (uuid.UUID, string, error) {
	if departmentID != nil {
		if _, err := s.departments.GetByID(ctx, *departmentID); err != nil {
			return uuid.Nil, "", err
		}
		return *departmentID, "explicit", nil
	}

	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		return uuid.Nil, "", err
	}
	if destID, ok := Resolve(symptoms, rules); ok {
		return destID, "rule", nil
	}

	general, err := s.departments.GetGeneral(ctx)
	if err != nil {
		if errors.Is(err, admin.ErrNoGeneral) {
			return uuid.Nil, "", ErrNoDestination
		}
		return uuid.Nil, "", err
	}
	return general.ID, "general", nil
}
