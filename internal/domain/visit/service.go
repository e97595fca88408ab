package visit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hospitaltriage/intake/internal/platform/auth"
	"github.com/hospitaltriage/intake/internal/platform/db"
)

// queueRetries bounds how many times registration retries queue allocation
// when two registrations race for the same number.
const queueRetries = 3

// PatientDirectory answers whether a patient record exists. The identity
// service satisfies it.
type PatientDirectory interface {
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
}

func NewService(repo Repository, patients PatientDirectory) *Service {
	return &Service{repo: repo, patients: patients}
}

// Day truncates t to its calendar date, the granularity queue numbers are
// issued at.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// actorFrom reads the authenticated user from the request context, if any,
// so status history records who made the change.
func actorFrom(ctx context.Context) *string {
	uid := auth.UserIDFromContext(ctx)
	if uid == "" {
		return nil
	}
	return &uid
}

// RegisterVisit creates a visit for the patient on the given day. Queue
// numbers are dense per day starting at 1; a unique constraint guards
// against concurrent registrations taking the same number, and allocation
// retries on conflict. Each attempt runs in its own transaction so a
// conflict rolls back cleanly: the visit is recorded as registered and
// moved to waiting_triage as one unit, leaving both entries in its history.
func (s *Service) RegisterVisit(ctx context.Context, patientID uuid.UUID, date time.Time) (*Visit, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient id is required")
	}
	exists, err := s.patients.PatientExists(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPatientNotFound
	}
	day := Day(date)

	for attempt := 0; attempt < queueRetries; attempt++ {
		v := &Visit{
			PatientID: patientID,
			VisitDate: day,
			Status:    StatusRegistered,
		}
		err := db.RunInTx(ctx, func(ctx context.Context) error {
			max, err := s.repo.MaxQueueNumber(ctx, day)
			if err != nil {
				return err
			}
			v.QueueNumber = max + 1
			if err := s.repo.CreateWithHistory(ctx, v, actorFrom(ctx)); err != nil {
				return err
			}
			return s.repo.UpdateStatusWithHistory(ctx, v.ID, StatusWaitingTriage, actorFrom(ctx))
		})
		if err == nil {
			v.Status = StatusWaitingTriage
			return v, nil
		}
		if !errors.Is(err, ErrQueueConflict) {
			return nil, err
		}
		log.Warn().
			Str("patient_id", patientID.String()).
			Int("queue_number", v.QueueNumber).
			Int("attempt", attempt+1).
			Msg("queue number conflict, retrying allocation")
	}
	return nil, fmt.Errorf("allocate queue number: %w", ErrQueueConflict)
}

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.repo.GetByID(ctx, id)
}

// GetVisitDetail resolves the visit together with patient, department and
// doctor names for display.
func (s *Service) GetVisitDetail(ctx context.Context, id uuid.UUID) (*VisitDetail, error) {
	return s.repo.GetDetail(ctx, id)
}

// ChangeStatus moves the visit along the fixed status chain. An attempt to
// skip or reverse a step fails with *InvalidTransitionError.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, to Status) error {
	if _, ok := ParseStatus(string(to)); !ok {
		return fmt.Errorf("unknown status %q", to)
	}
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !ValidTransition(v.Status, to) {
		return &InvalidTransitionError{From: v.Status, To: to}
	}
	return s.repo.UpdateStatusWithHistory(ctx, id, to, actorFrom(ctx))
}

// UpdateTriage persists the triage outcome carried on v: symptoms,
// destination department and optional doctor.
func (s *Service) UpdateTriage(ctx context.Context, v *Visit) error {
	return s.repo.UpdateTriage(ctx, v)
}

func (s *Service) History(ctx context.Context, id uuid.UUID) ([]*StatusChange, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, id)
}

func (s *Service) ListVisits(ctx context.Context, date *time.Time, status *Status, limit, offset int) ([]*Visit, int, error) {
	if date != nil {
		d := Day(*date)
		date = &d
	}
	return s.repo.List(ctx, date, status, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// WaitingList returns the queue in call order across all days, so patients
// carried over from earlier days come first. With a status it narrows to
// visits in that single state; otherwise it covers both waiting states.
func (s *Service) WaitingList(ctx context.Context, status *Status, departmentID *uuid.UUID) ([]*Visit, error) {
	if status != nil {
		return s.repo.ListByStatus(ctx, *status, departmentID)
	}
	return s.repo.ListWaiting(ctx, departmentID)
}
