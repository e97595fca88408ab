package intake

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hospitaltriage/intake/internal/domain/identity"
	"github.com/hospitaltriage/intake/internal/domain/visit"
)

// Service is the front-desk entry point: it deduplicates the patient
// record and opens a visit with a queue number in one call.
type Service struct {
	patients *identity.Service
	visits   *visit.Service
}

func NewService(patients *identity.Service, visits *visit.Service) *Service {
	return &Service{patients: patients, visits: visits}
}

// PatientInput carries the details taken at the counter.
type PatientInput struct {
	FullName       string     `json:"full_name"`
	IdentityNumber *string    `json:"identity_number"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	Phone          *string    `json:"phone"`
}

// Result pairs the (possibly pre-existing) patient with the visit opened
// for them.
type Result struct {
	Patient *identity.Patient `json:"patient"`
	Visit   *visit.Visit      `json:"visit"`
}

// Register finds or creates the patient, then opens a visit for the given
// day. Matching an existing record never modifies it.
func (s *Service) Register(ctx context.Context, in PatientInput, date time.Time) (*Result, error) {
	patient, err := s.patients.UpsertPatient(ctx, &identity.Patient{
		FullName:       in.FullName,
		IdentityNumber: in.IdentityNumber,
		DateOfBirth:    in.DateOfBirth,
		Phone:          in.Phone,
	})
	if err != nil {
		return nil, err
	}

	v, err := s.visits.RegisterVisit(ctx, patient.ID, date)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("patient_id", patient.ID.String()).
		Str("visit_id", v.ID.String()).
		Int("queue_number", v.QueueNumber).
		Msg("intake registered")

	return &Result{Patient: patient, Visit: v}, nil
}
