package admin

import (
	"time"

	"github.com/google/uuid"
)

// Department is a destination triage can route visits to. At most one
// department is flagged as the general fallback. Departments with visit
// history are deactivated rather than deleted.
type Department struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Code      *string   `db:"code" json:"code,omitempty"`
	Name      string    `db:"name" json:"name"`
	IsGeneral bool      `db:"is_general" json:"is_general"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Doctor struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Code         *string   `db:"code" json:"code,omitempty"`
	FullName     string    `db:"full_name" json:"full_name"`
	DepartmentID uuid.UUID `db:"department_id" json:"department_id"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SymptomRule maps a keyword found in a symptom description to a
// department. Longer keywords win when several rules match; inactive
// rules are kept for audit but never consulted by the triage engine.
type SymptomRule struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Keyword      string    `db:"keyword" json:"keyword"`
	DepartmentID uuid.UUID `db:"department_id" json:"department_id"`
	Active       bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
