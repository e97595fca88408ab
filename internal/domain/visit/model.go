package visit

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a visit. Visits move through the states
// in a fixed order; see transitions.go.
type Status string

const (
	StatusRegistered    Status = "registered"
	StatusWaitingTriage Status = "waiting_triage"
	StatusTriaged       Status = "triaged"
	StatusWaitingDoctor Status = "waiting_doctor"
	StatusInExamination Status = "in_examination"
	StatusDone          Status = "done"
)

// ParseStatus converts a wire value to a Status, reporting whether it is one
// of the known states.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusRegistered, StatusWaitingTriage, StatusTriaged,
		StatusWaitingDoctor, StatusInExamination, StatusDone:
		return Status(s), true
	}
	return "", false
}

// Visit maps to the visits table.
type Visit struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	VisitDate    time.Time  `db:"visit_date" json:"visit_date"`
	QueueNumber  int        `db:"queue_number" json:"queue_number"`
	Status       Status     `db:"status" json:"status"`
	Symptoms     *string    `db:"symptoms" json:"symptoms,omitempty"`
	DepartmentID *uuid.UUID `db:"department_id" json:"department_id,omitempty"`
	DoctorID     *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// VisitDetail is a visit joined with the display names of the patient and,
// when triaged, the destination department and assigned doctor.
type VisitDetail struct {
	Visit
	PatientName    string  `json:"patient_name"`
	DepartmentName *string `json:"department_name,omitempty"`
	DoctorName     *string `json:"doctor_name,omitempty"`
}

// StatusChange maps to the visit_status_history table. The serial ID breaks
// ties between entries recorded in the same instant, so history order is
// always well defined.
type StatusChange struct {
	ID        int64     `db:"id" json:"id"`
	VisitID   uuid.UUID `db:"visit_id" json:"visit_id"`
	Status    Status    `db:"status" json:"status"`
	ChangedAt time.Time `db:"changed_at" json:"changed_at"`
	ChangedBy *string   `db:"changed_by" json:"changed_by,omitempty"`
}
