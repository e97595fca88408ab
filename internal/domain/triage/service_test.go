package triage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hospitaltriage/intake/internal/domain/admin"
	"github.com/hospitaltriage/intake/internal/domain/visit"
)

type mockVisitRepo struct {
	visits  map[uuid.UUID]*visit.Visit
	history map[uuid.UUID][]*visit.StatusChange
	nextID  int64
}

func newMockVisitRepo() *mockVisitRepo {
	return &mockVisitRepo{
		visits:  make(map[uuid.UUID]*visit.Visit),
		history: make(map[uuid.UUID][]*visit.StatusChange),
	}
}

func (m *mockVisitRepo) CreateWithHistory(ctx context.Context, v *visit.Visit, actor *string) error {
	v.ID = uuid.New()
	m.visits[v.ID] = v
	m.appendHistory(v.ID, v.Status)
	return nil
}

func (m *mockVisitRepo) appendHistory(id uuid.UUID, status visit.Status) {
	m.nextID++
	m.history[id] = append(m.history[id], &visit.StatusChange{
		ID:        m.nextID,
		VisitID:   id,
		Status:    status,
		ChangedAt: time.Now(),
	})
}

func (m *mockVisitRepo) MaxQueueNumber(ctx context.Context, date time.Time) (int, error) {
	return len(m.visits), nil
}

func (m *mockVisitRepo) GetByID(ctx context.Context, id uuid.UUID) (*visit.Visit, error) {
	v, ok := m.visits[id]
	if !ok {
		return nil, visit.ErrNotFound
	}
	return v, nil
}

func (m *mockVisitRepo) GetDetail(ctx context.Context, id uuid.UUID) (*visit.VisitDetail, error) {
	v, ok := m.visits[id]
	if !ok {
		return nil, visit.ErrNotFound
	}
	return &visit.VisitDetail{Visit: *v, PatientName: "patient"}, nil
}

func (m *mockVisitRepo) UpdateStatusWithHistory(ctx context.Context, id uuid.UUID, status visit.Status, actor *string) error {
	v, ok := m.visits[id]
	if !ok {
		return visit.ErrNotFound
	}
	v.Status = status
	m.appendHistory(id, status)
	return nil
}

func (m *mockVisitRepo) UpdateTriage(ctx context.Context, v *visit.Visit) error {
	stored, ok := m.visits[v.ID]
	if !ok {
		return visit.ErrNotFound
	}
	stored.Symptoms = v.Symptoms
	stored.DepartmentID = v.DepartmentID
	stored.DoctorID = v.DoctorID
	return nil
}

func (m *mockVisitRepo) History(ctx context.Context, id uuid.UUID) ([]*visit.StatusChange, error) {
	return m.history[id], nil
}

func (m *mockVisitRepo) List(ctx context.Context, date *time.Time, status *visit.Status, limit, offset int) ([]*visit.Visit, int, error) {
	return nil, 0, nil
}

func (m *mockVisitRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*visit.Visit, int, error) {
	return nil, 0, nil
}

func (m *mockVisitRepo) ListWaiting(ctx context.Context, departmentID *uuid.UUID) ([]*visit.Visit, error) {
	return nil, nil
}

func (m *mockVisitRepo) ListByStatus(ctx context.Context, status visit.Status, departmentID *uuid.UUID) ([]*visit.Visit, error) {
	return nil, nil
}

func (m *mockVisitRepo) CountByStatus(ctx context.Context, departmentID *uuid.UUID) (map[visit.Status]int, error) {
	return nil, nil
}

func (m *mockVisitRepo) ListBetween(ctx context.Context, from, to time.Time, departmentID *uuid.UUID) ([]*visit.Visit, error) {
	return nil, nil
}

func (m *mockVisitRepo) HistoryBetween(ctx context.Context, from, to time.Time, departmentID *uuid.UUID) (map[uuid.UUID][]*visit.StatusChange, error) {
	return nil, nil
}

type mockRuleRepo struct {
	rules []*admin.SymptomRule
}

func (m *mockRuleRepo) Create(ctx context.Context, r *admin.SymptomRule) error { return nil }
func (m *mockRuleRepo) GetByID(ctx context.Context, id uuid.UUID) (*admin.SymptomRule, error) {
	return nil, admin.ErrRuleNotFound
}
func (m *mockRuleRepo) List(ctx context.Context) ([]*admin.SymptomRule, error) {
	return m.rules, nil
}
func (m *mockRuleRepo) ListActive(ctx context.Context) ([]*admin.SymptomRule, error) {
	active := []*admin.SymptomRule{}
	for _, r := range m.rules {
		if r.Active {
			active = append(active, r)
		}
	}
	return active, nil
}
func (m *mockRuleRepo) Update(ctx context.Context, r *admin.SymptomRule) error { return nil }
func (m *mockRuleRepo) Delete(ctx context.Context, id uuid.UUID) error         { return nil }

type mockDeptRepo struct {
	depts map[uuid.UUID]*admin.Department
}

func (m *mockDeptRepo) Create(ctx context.Context, d *admin.Department) error { return nil }
func (m *mockDeptRepo) GetByID(ctx context.Context, id uuid.UUID) (*admin.Department, error) {
	d, ok := m.depts[id]
	if !ok {
		return nil, admin.ErrDepartmentNotFound
	}
	return d, nil
}
func (m *mockDeptRepo) GetGeneral(ctx context.Context) (*admin.Department, error) {
	for _, d := range m.depts {
		if d.IsGeneral {
			return d, nil
		}
	}
	return nil, admin.ErrNoGeneral
}
func (m *mockDeptRepo) List(ctx context.Context) ([]*admin.Department, error) { return nil, nil }
func (m *mockDeptRepo) Update(ctx context.Context, d *admin.Department) error { return nil }
func (m *mockDeptRepo) Deactivate(ctx context.Context, id uuid.UUID) error    { return nil }
func (m *mockDeptRepo) SetGeneral(ctx context.Context, id uuid.UUID) error    { return nil }

type mockDoctorRepo struct {
	doctors map[uuid.UUID]*admin.Doctor
}

func (m *mockDoctorRepo) Create(ctx context.Context, d *admin.Doctor) error { return nil }
func (m *mockDoctorRepo) GetByID(ctx context.Context, id uuid.UUID) (*admin.Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, admin.ErrDoctorNotFound
	}
	return d, nil
}
func (m *mockDoctorRepo) List(ctx context.Context, departmentID *uuid.UUID, activeOnly bool) ([]*admin.Doctor, error) {
	return nil, nil
}
func (m *mockDoctorRepo) Update(ctx context.Context, d *admin.Doctor) error { return nil }
func (m *mockDoctorRepo) Delete(ctx context.Context, id uuid.UUID) error    { return nil }

type fixture struct {
	svc     *Service
	visits  *visit.Service
	repo    *mockVisitRepo
	depts   *mockDeptRepo
	doctors *mockDoctorRepo
	rules   *mockRuleRepo
}

type allPatients struct{}

func (allPatients) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return true, nil
}

func newFixture() *fixture {
	repo := newMockVisitRepo()
	visits := visit.NewService(repo, allPatients{})
	depts := &mockDeptRepo{depts: make(map[uuid.UUID]*admin.Department)}
	doctors := &mockDoctorRepo{doctors: make(map[uuid.UUID]*admin.Doctor)}
	rules := &mockRuleRepo{}
	return &fixture{
		svc:     NewService(visits, rules, depts, doctors),
		visits:  visits,
		repo:    repo,
		depts:   depts,
		doctors: doctors,
		rules:   rules,
	}
}

func (f *fixture) addDepartment(name string, general bool) uuid.UUID {
	id := uuid.New()
	f.depts.depts[id] = &admin.Department{ID: id, Name: name, IsGeneral: general}
	return id
}

func (f *fixture) addWaitingVisit(t *testing.T) *visit.Visit {
	t.Helper()
	v, err := f.visits.RegisterVisit(context.Background(), uuid.New(), time.Now())
	if err != nil {
		t.Fatalf("RegisterVisit() error = %v", err)
	}
	return v
}

func TestTriageVisit_RuleMatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cardio := f.addDepartment("Cardiology", false)
	f.rules.rules = []*admin.SymptomRule{{ID: uuid.New(), Keyword: "chest pain", DepartmentID: cardio, Active: true}}

	v := f.addWaitingVisit(t)
	result, err := f.svc.TriageVisit(ctx, v.ID, "sharp chest pain", nil, nil)
	if err != nil {
		t.Fatalf("TriageVisit() error = %v", err)
	}
	if result.ResolvedBy != "rule" {
		t.Errorf("ResolvedBy = %q, want rule", result.ResolvedBy)
	}
	if result.Visit.DepartmentID == nil || *result.Visit.DepartmentID != cardio {
		t.Errorf("DepartmentID = %v, want %v", result.Visit.DepartmentID, cardio)
	}
	if result.Visit.Status != visit.StatusWaitingDoctor {
		t.Errorf("Status = %s, want %s", result.Visit.Status, visit.StatusWaitingDoctor)
	}
}

func TestTriageVisit_ExplicitDepartmentWins(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cardio := f.addDepartment("Cardiology", false)
	ortho := f.addDepartment("Orthopedics", false)
	f.rules.rules = []*admin.SymptomRule{{ID: uuid.New(), Keyword: "chest pain", DepartmentID: cardio, Active: true}}

	v := f.addWaitingVisit(t)
	result, err := f.svc.TriageVisit(ctx, v.ID, "chest pain", &ortho, nil)
	if err != nil {
		t.Fatalf("TriageVisit() error = %v", err)
	}
	if result.ResolvedBy != "explicit" {
		t.Errorf("ResolvedBy = %q, want explicit", result.ResolvedBy)
	}
	if *result.Visit.DepartmentID != ortho {
		t.Errorf("DepartmentID = %v, want explicit %v", *result.Visit.DepartmentID, ortho)
	}
}

func TestTriageVisit_GeneralFallback(t *testing.T) {
	f := newFixture()
	general := f.addDepartment("General Medicine", true)

	v := f.addWaitingVisit(t)
	result, err := f.svc.TriageVisit(context.Background(), v.ID, "unexplained fatigue", nil, nil)
	if err != nil {
		t.Fatalf("TriageVisit() error = %v", err)
	}
	if result.ResolvedBy != "general" {
		t.Errorf("ResolvedBy = %q, want general", result.ResolvedBy)
	}
	if *result.Visit.DepartmentID != general {
		t.Errorf("DepartmentID = %v, want general %v", *result.Visit.DepartmentID, general)
	}
}

func TestTriageVisit_NoDestination(t *testing.T) {
	f := newFixture()
	v := f.addWaitingVisit(t)

	_, err := f.svc.TriageVisit(context.Background(), v.ID, "unexplained fatigue", nil, nil)
	if !errors.Is(err, ErrNoDestination) {
		t.Errorf("TriageVisit() error = %v, want ErrNoDestination", err)
	}
	got, _ := f.visits.GetVisit(context.Background(), v.ID)
	if got.Status != visit.StatusWaitingTriage {
		t.Errorf("Status = %s, want unchanged %s", got.Status, visit.StatusWaitingTriage)
	}
}

func TestTriageVisit_ReTriageUpdatesWithoutTransition(t *testing.T) {
	f := newFixture()
	f.addDepartment("General Medicine", true)
	ortho := f.addDepartment("Orthopedics", false)
	ctx := context.Background()

	v := f.addWaitingVisit(t)
	if _, err := f.svc.TriageVisit(ctx, v.ID, "fever", nil, nil); err != nil {
		t.Fatalf("TriageVisit() error = %v", err)
	}
	before, _ := f.visits.History(ctx, v.ID)

	result, err := f.svc.TriageVisit(ctx, v.ID, "sprained ankle", &ortho, nil)
	if err != nil {
		t.Fatalf("re-triage error = %v", err)
	}
	if result.Visit.Status != visit.StatusWaitingDoctor {
		t.Errorf("Status = %s, want unchanged %s", result.Visit.Status, visit.StatusWaitingDoctor)
	}
	if result.Visit.Symptoms == nil || *result.Visit.Symptoms != "sprained ankle" {
		t.Errorf("Symptoms = %v, want updated", result.Visit.Symptoms)
	}
	if result.Visit.DepartmentID == nil || *result.Visit.DepartmentID != ortho {
		t.Errorf("DepartmentID = %v, want %v", result.Visit.DepartmentID, ortho)
	}

	after, _ := f.visits.History(ctx, v.ID)
	if len(after) != len(before) {
		t.Errorf("len(history) = %d, want %d (re-triage must not add transitions)", len(after), len(before))
	}
}

func TestTriageVisit_HistoryRecordsBothSteps(t *testing.T) {
	f := newFixture()
	f.addDepartment("General Medicine", true)
	ctx := context.Background()

	v := f.addWaitingVisit(t)
	if _, err := f.svc.TriageVisit(ctx, v.ID, "fever", nil, nil); err != nil {
		t.Fatalf("TriageVisit() error = %v", err)
	}

	history, err := f.visits.History(ctx, v.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	want := []visit.Status{visit.StatusRegistered, visit.StatusWaitingTriage, visit.StatusTriaged, visit.StatusWaitingDoctor}
	if len(history) != len(want) {
		t.Fatalf("len(history) = %d, want %d", len(history), len(want))
	}
	for i, status := range want {
		if history[i].Status != status {
			t.Errorf("history[%d].Status = %s, want %s", i, history[i].Status, status)
		}
	}
}

func TestTriageVisit_DoctorMustMatchDepartment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cardio := f.addDepartment("Cardiology", false)
	ortho := f.addDepartment("Orthopedics", false)

	docID := uuid.New()
	f.doctors.doctors[docID] = &admin.Doctor{ID: docID, FullName: "Dr. Lee", DepartmentID: ortho, Active: true}

	v := f.addWaitingVisit(t)
	_, err := f.svc.TriageVisit(ctx, v.ID, "chest pain", &cardio, &docID)
	if !errors.Is(err, ErrInactiveDoctor) {
		t.Errorf("TriageVisit() error = %v, want ErrInactiveDoctor", err)
	}
}

func TestTriageVisit_InactiveDoctorRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cardio := f.addDepartment("Cardiology", false)

	docID := uuid.New()
	f.doctors.doctors[docID] = &admin.Doctor{ID: docID, FullName: "Dr. Lee", DepartmentID: cardio, Active: false}

	v := f.addWaitingVisit(t)
	_, err := f.svc.TriageVisit(ctx, v.ID, "chest pain", &cardio, &docID)
	if !errors.Is(err, ErrInactiveDoctor) {
		t.Errorf("TriageVisit() error = %v, want ErrInactiveDoctor", err)
	}
}

func TestTriageVisit_RequiresSymptoms(t *testing.T) {
	f := newFixture()
	dept := f.addDepartment("Cardiology", false)
	v := f.addWaitingVisit(t)

	if _, err := f.svc.TriageVisit(context.Background(), v.ID, "   ", nil, nil); err == nil {
		t.Error("expected error for blank symptoms")
	}
	// An explicit department does not excuse missing symptoms.
	if _, err := f.svc.TriageVisit(context.Background(), v.ID, "", &dept, nil); err == nil {
		t.Error("expected error for blank symptoms with explicit department")
	}
}

func TestTriageVisit_InactiveRuleIgnored(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cardio := f.addDepartment("Cardiology", false)
	general := f.addDepartment("General Medicine", true)
	f.rules.rules = []*admin.SymptomRule{
		{ID: uuid.New(), Keyword: "chest pain", DepartmentID: cardio, Active: false},
	}

	v := f.addWaitingVisit(t)
	result, err := f.svc.TriageVisit(ctx, v.ID, "sharp chest pain", nil, nil)
	if err != nil {
		t.Fatalf("TriageVisit() error = %v", err)
	}
	if result.ResolvedBy != "general" {
		t.Errorf("ResolvedBy = %q, want general (a disabled rule must not match)", result.ResolvedBy)
	}
	if result.Visit.DepartmentID == nil || *result.Visit.DepartmentID != general {
		t.Errorf("DepartmentID = %v, want general %v", result.Visit.DepartmentID, general)
	}
}

func TestSuggestDepartment_RuleMatch(t *testing.T) {
	f := newFixture()
	cardio := f.addDepartment("Cardiology", false)
	f.rules.rules = []*admin.SymptomRule{{ID: uuid.New(), Keyword: "chest pain", DepartmentID: cardio, Active: true}}

	s, err := f.svc.SuggestDepartment(context.Background(), "dull chest pain")
	if err != nil {
		t.Fatalf("SuggestDepartment() error = %v", err)
	}
	if s.DepartmentID != cardio {
		t.Errorf("DepartmentID = %v, want %v", s.DepartmentID, cardio)
	}
	if s.DepartmentName != "Cardiology" {
		t.Errorf("DepartmentName = %q, want Cardiology", s.DepartmentName)
	}
	if s.ResolvedBy != "rule" {
		t.Errorf("ResolvedBy = %q, want rule", s.ResolvedBy)
	}
}

func TestSuggestDepartment_NoDestination(t *testing.T) {
	f := newFixture()
	_, err := f.svc.SuggestDepartment(context.Background(), "unexplained fatigue")
	if !errors.Is(err, ErrNoDestination) {
		t.Errorf("SuggestDepartment() error = %v, want ErrNoDestination", err)
	}
}

func TestSuggestDepartment_RequiresSymptoms(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.SuggestDepartment(context.Background(), "  "); err == nil {
		t.Error("expected error for blank symptoms")
	}
}

func TestTriageVisit_VisitNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.TriageVisit(context.Background(), uuid.New(), "fever", nil, nil)
	if !errors.Is(err, visit.ErrNotFound) {
		t.Errorf("TriageVisit() error = %v, want ErrNotFound", err)
	}
}
