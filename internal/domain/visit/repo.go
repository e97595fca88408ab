package visit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// CreateWithHistory inserts the visit and its initial history entry in
	// one transaction. Returns ErrQueueConflict when the (visit_date,
	// queue_number) pair is already taken.
	CreateWithHistory(ctx context.Context, v *Visit, actor *string) error

	// MaxQueueNumber returns the highest queue number issued for the given
	// day, or 0 when the day has no visits yet.
	MaxQueueNumber(ctx context.Context, date time.Time) (int, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)

	// GetDetail returns the visit joined with patient, department and
	// doctor names for display.
	GetDetail(ctx context.Context, id uuid.UUID) (*VisitDetail, error)

	// UpdateStatusWithHistory sets the visit status and appends a history
	// entry in one transaction.
	UpdateStatusWithHistory(ctx context.Context, id uuid.UUID, status Status, actor *string) error

	// UpdateTriage stores the triage outcome: symptoms, destination
	// department and optional doctor.
	UpdateTriage(ctx context.Context, v *Visit) error

	History(ctx context.Context, id uuid.UUID) ([]*StatusChange, error)

	List(ctx context.Context, date *time.Time, status *Status, limit, offset int) ([]*Visit, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error)

	// ListWaiting returns all visits in waiting_triage or waiting_doctor
	// state regardless of visit date, ordered by visit date then queue
	// number so the longest-waiting patients come first, optionally
	// narrowed to one department.
	ListWaiting(ctx context.Context, departmentID *uuid.UUID) ([]*Visit, error)

	// ListByStatus returns all visits in one status ordered by visit date
	// then queue number, optionally narrowed to one department.
	ListByStatus(ctx context.Context, status Status, departmentID *uuid.UUID) ([]*Visit, error)

	// CountByStatus returns visit counts per status across all days,
	// optionally narrowed to one department.
	CountByStatus(ctx context.Context, departmentID *uuid.UUID) (map[Status]int, error)

	// ListBetween returns visits whose visit date falls in [from, to],
	// optionally narrowed to one department.
	ListBetween(ctx context.Context, from, to time.Time, departmentID *uuid.UUID) ([]*Visit, error)

	// HistoryBetween returns, per visit, the history of all visits whose
	// visit date falls in [from, to].
	HistoryBetween(ctx context.Context, from, to time.Time, departmentID *uuid.UUID) (map[uuid.UUID][]*StatusChange, error)
}
