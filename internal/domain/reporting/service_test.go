package reporting

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

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

func (m *mockVisitRepo) addVisit(date time.Time, queue int, status visit.Status, steps map[visit.Status]time.Time) uuid.UUID {
	id := uuid.New()
	m.visits[id] = &visit.Visit{
		ID:          id,
		PatientID:   uuid.New(),
		VisitDate:   visit.Day(date),
		QueueNumber: queue,
		Status:      status,
	}
	order := []visit.Status{
		visit.StatusRegistered, visit.StatusWaitingTriage, visit.StatusTriaged,
		visit.StatusWaitingDoctor, visit.StatusInExamination, visit.StatusDone,
	}
	for _, s := range order {
		at, ok := steps[s]
		if !ok {
			continue
		}
		m.nextID++
		m.history[id] = append(m.history[id], &visit.StatusChange{
			ID: m.nextID, VisitID: id, Status: s, ChangedAt: at,
		})
	}
	return id
}

// addVisitFor is addVisit with a destination department set.
func (m *mockVisitRepo) addVisitFor(dept uuid.UUID, date time.Time, queue int, status visit.Status, steps map[visit.Status]time.Time) uuid.UUID {
	id := m.addVisit(date, queue, status, steps)
	m.visits[id].DepartmentID = &dept
	return id
}

func inDept(v *visit.Visit, departmentID *uuid.UUID) bool {
	if departmentID == nil {
		return true
	}
	return v.DepartmentID != nil && *v.DepartmentID == *departmentID
}

func (m *mockVisitRepo) CreateWithHistory(ctx context.Context, v *visit.Visit, actor *string) error {
	return nil
}

func (m *mockVisitRepo) MaxQueueNumber(ctx context.Context, date time.Time) (int, error) {
	return 0, nil
}

func (m *mockVisitRepo) GetByID(ctx context.Context, id uuid.UUID) (*visit.Visit, error) {
	v, ok := m.visits[id]
	if !ok {
		return nil, visit.ErrNotFound
	}
	return v, nil
}

func (m *mockVisitRepo) UpdateStatusWithHistory(ctx context.Context, id uuid.UUID, status visit.Status, actor *string) error {
	return nil
}

func (m *mockVisitRepo) UpdateTriage(ctx context.Context, v *visit.Visit) error { return nil }

func (m *mockVisitRepo) GetDetail(ctx context.Context, id uuid.UUID) (*visit.VisitDetail, error) {
	v, ok := m.visits[id]
	if !ok {
		return nil, visit.ErrNotFound
	}
	return &visit.VisitDetail{Visit: *v, PatientName: "patient"}, nil
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
	result := []*visit.Visit{}
	for _, v := range m.visits {
		if (v.Status == visit.StatusWaitingTriage || v.Status == visit.StatusWaitingDoctor) && inDept(v, departmentID) {
			result = append(result, v)
		}
	}
	// call order: earlier days first, then queue number
	for i := range result {
		for j := i + 1; j < len(result); j++ {
			a, b := result[i], result[j]
			if b.VisitDate.Before(a.VisitDate) || (b.VisitDate.Equal(a.VisitDate) && b.QueueNumber < a.QueueNumber) {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	return result, nil
}

func (m *mockVisitRepo) ListByStatus(ctx context.Context, status visit.Status, departmentID *uuid.UUID) ([]*visit.Visit, error) {
	return nil, nil
}

func (m *mockVisitRepo) CountByStatus(ctx context.Context, departmentID *uuid.UUID) (map[visit.Status]int, error) {
	counts := make(map[visit.Status]int)
	for _, v := range m.visits {
		if inDept(v, departmentID) {
			counts[v.Status]++
		}
	}
	return counts, nil
}

func (m *mockVisitRepo) ListBetween(ctx context.Context, from, to time.Time, departmentID *uuid.UUID) ([]*visit.Visit, error) {
	result := []*visit.Visit{}
	for _, v := range m.visits {
		if !v.VisitDate.Before(from) && !v.VisitDate.After(to) && inDept(v, departmentID) {
			result = append(result, v)
		}
	}
	return result, nil
}

func (m *mockVisitRepo) HistoryBetween(ctx context.Context, from, to time.Time, departmentID *uuid.UUID) (map[uuid.UUID][]*visit.StatusChange, error) {
	result := make(map[uuid.UUID][]*visit.StatusChange)
	for id, v := range m.visits {
		if !v.VisitDate.Before(from) && !v.VisitDate.After(to) && inDept(v, departmentID) {
			result[id] = m.history[id]
		}
	}
	return result, nil
}

var day = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func at(h, min int) time.Time {
	return time.Date(2026, 3, 10, h, min, 0, 0, time.UTC)
}

func TestDashboard_Counts(t *testing.T) {
	repo := newMockVisitRepo()
	repo.addVisit(day, 1, visit.StatusWaitingTriage, nil)
	repo.addVisit(day, 2, visit.StatusWaitingDoctor, nil)
	repo.addVisit(day, 3, visit.StatusWaitingDoctor, nil)
	repo.addVisit(day, 4, visit.StatusInExamination, nil)
	repo.addVisit(day, 5, visit.StatusDone, nil)
	repo.addVisit(day.AddDate(0, 0, 1), 1, visit.StatusWaitingTriage, nil)

	svc := NewService(repo)
	board, err := svc.Dashboard(context.Background(), nil)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if board.WaitingTriage != 2 || board.WaitingDoctor != 2 || board.InExamination != 1 || board.Done != 1 {
		t.Errorf("counts = %d/%d/%d/%d, want 2/2/1/1",
			board.WaitingTriage, board.WaitingDoctor, board.InExamination, board.Done)
	}
}

func TestDashboard_WaitingListInCallOrder(t *testing.T) {
	repo := newMockVisitRepo()
	repo.addVisit(day, 3, visit.StatusWaitingDoctor, nil)
	repo.addVisit(day, 1, visit.StatusWaitingTriage, nil)
	repo.addVisit(day, 2, visit.StatusWaitingDoctor, nil)
	repo.addVisit(day, 4, visit.StatusDone, nil)

	svc := NewService(repo)
	board, err := svc.Dashboard(context.Background(), nil)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if len(board.Waiting) != 3 {
		t.Fatalf("len(Waiting) = %d, want 3", len(board.Waiting))
	}
	for i, v := range board.Waiting {
		if v.QueueNumber != i+1 {
			t.Errorf("Waiting[%d].QueueNumber = %d, want %d", i, v.QueueNumber, i+1)
		}
	}
}

func TestDashboard_IncludesEarlierDays(t *testing.T) {
	repo := newMockVisitRepo()
	yesterday := day.AddDate(0, 0, -1)
	repo.addVisit(yesterday, 5, visit.StatusWaitingDoctor, nil)
	repo.addVisit(day, 1, visit.StatusWaitingTriage, nil)

	svc := NewService(repo)
	board, err := svc.Dashboard(context.Background(), nil)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if board.WaitingDoctor != 1 {
		t.Errorf("WaitingDoctor = %d, want 1 (carried over from an earlier day)", board.WaitingDoctor)
	}
	if len(board.Waiting) != 2 {
		t.Fatalf("len(Waiting) = %d, want 2", len(board.Waiting))
	}
	if !board.Waiting[0].VisitDate.Equal(visit.Day(yesterday)) {
		t.Errorf("Waiting[0].VisitDate = %v, want the earlier day first", board.Waiting[0].VisitDate)
	}
}

func TestDashboard_DepartmentFilter(t *testing.T) {
	repo := newMockVisitRepo()
	cardio := uuid.New()
	ortho := uuid.New()
	repo.addVisitFor(cardio, day, 1, visit.StatusWaitingDoctor, nil)
	repo.addVisitFor(cardio, day, 2, visit.StatusDone, nil)
	repo.addVisitFor(ortho, day, 3, visit.StatusWaitingDoctor, nil)
	repo.addVisit(day, 4, visit.StatusWaitingTriage, nil)

	svc := NewService(repo)
	board, err := svc.Dashboard(context.Background(), &cardio)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if board.WaitingDoctor != 1 || board.Done != 1 || board.WaitingTriage != 0 {
		t.Errorf("counts = %d/%d/%d, want 1 waiting_doctor, 1 done, 0 waiting_triage",
			board.WaitingDoctor, board.Done, board.WaitingTriage)
	}
	if len(board.Waiting) != 1 {
		t.Errorf("len(Waiting) = %d, want 1", len(board.Waiting))
	}
}

func TestReport_CountsPerDay(t *testing.T) {
	repo := newMockVisitRepo()
	repo.addVisit(day, 1, visit.StatusDone, nil)
	repo.addVisit(day, 2, visit.StatusDone, nil)
	repo.addVisit(day.AddDate(0, 0, 1), 1, visit.StatusDone, nil)

	svc := NewService(repo)
	report, err := svc.Report(context.Background(), day, day.AddDate(0, 0, 1), nil)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if len(report.Days) != 2 {
		t.Fatalf("len(report.Days) = %d, want 2", len(report.Days))
	}
	if report.Days[0].Date != "2026-03-10" || report.Days[0].VisitCount != 2 {
		t.Errorf("report.Days[0] = %+v", report.Days[0])
	}
	if report.Days[1].Date != "2026-03-11" || report.Days[1].VisitCount != 1 {
		t.Errorf("report.Days[1] = %+v", report.Days[1])
	}
}

func TestReport_AverageWaitingTime(t *testing.T) {
	repo := newMockVisitRepo()
	// 30 minutes from queue entry to examination
	repo.addVisit(day, 1, visit.StatusDone, map[visit.Status]time.Time{
		visit.StatusRegistered:    at(8, 0),
		visit.StatusWaitingTriage: at(8, 0),
		visit.StatusInExamination: at(8, 30),
		visit.StatusDone:          at(9, 0),
	})
	// 10 minutes
	repo.addVisit(day, 2, visit.StatusDone, map[visit.Status]time.Time{
		visit.StatusWaitingTriage: at(9, 0),
		visit.StatusInExamination: at(9, 10),
	})
	// still waiting, left out of the average
	repo.addVisit(day, 3, visit.StatusWaitingDoctor, map[visit.Status]time.Time{
		visit.StatusWaitingTriage: at(10, 0),
	})

	svc := NewService(repo)
	report, err := svc.Report(context.Background(), day, day, nil)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if len(report.Days) != 1 {
		t.Fatalf("len(report.Days) = %d, want 1", len(report.Days))
	}
	if math.Abs(report.Days[0].AvgWaitingMinutes-20) > 0.001 {
		t.Errorf("AvgWaitingMinutes = %f, want 20", report.Days[0].AvgWaitingMinutes)
	}
	if report.Days[0].VisitCount != 3 {
		t.Errorf("VisitCount = %d, want 3", report.Days[0].VisitCount)
	}
	if report.Days[0].WaitSample != 2 {
		t.Errorf("WaitSample = %d, want 2", report.Days[0].WaitSample)
	}
	if math.Abs(report.AvgWaitingMinutes-20) > 0.001 {
		t.Errorf("range AvgWaitingMinutes = %f, want 20", report.AvgWaitingMinutes)
	}
	if report.WaitSample != 2 {
		t.Errorf("range WaitSample = %d, want 2", report.WaitSample)
	}
}

func TestReport_RangeWideAverage(t *testing.T) {
	repo := newMockVisitRepo()
	// day one: 30 minutes
	repo.addVisit(day, 1, visit.StatusDone, map[visit.Status]time.Time{
		visit.StatusWaitingTriage: at(8, 0),
		visit.StatusInExamination: at(8, 30),
	})
	// day two: 10 minutes
	next := day.AddDate(0, 0, 1)
	repo.addVisit(next, 1, visit.StatusDone, map[visit.Status]time.Time{
		visit.StatusWaitingTriage: at(8, 0).AddDate(0, 0, 1),
		visit.StatusInExamination: at(8, 10).AddDate(0, 0, 1),
	})

	svc := NewService(repo)
	report, err := svc.Report(context.Background(), day, next, nil)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if math.Abs(report.AvgWaitingMinutes-20) > 0.001 {
		t.Errorf("range AvgWaitingMinutes = %f, want 20 across both days", report.AvgWaitingMinutes)
	}
	if report.WaitSample != 2 {
		t.Errorf("range WaitSample = %d, want 2", report.WaitSample)
	}
	if len(report.Days) != 2 {
		t.Fatalf("len(report.Days) = %d, want 2", len(report.Days))
	}
	if math.Abs(report.Days[0].AvgWaitingMinutes-30) > 0.001 || math.Abs(report.Days[1].AvgWaitingMinutes-10) > 0.001 {
		t.Errorf("per-day averages = %f/%f, want 30/10",
			report.Days[0].AvgWaitingMinutes, report.Days[1].AvgWaitingMinutes)
	}
}

func TestReport_DepartmentFilter(t *testing.T) {
	repo := newMockVisitRepo()
	cardio := uuid.New()
	ortho := uuid.New()
	repo.addVisitFor(cardio, day, 1, visit.StatusDone, map[visit.Status]time.Time{
		visit.StatusWaitingTriage: at(8, 0),
		visit.StatusInExamination: at(8, 30),
	})
	repo.addVisitFor(ortho, day, 2, visit.StatusDone, map[visit.Status]time.Time{
		visit.StatusWaitingTriage: at(8, 0),
		visit.StatusInExamination: at(9, 30),
	})

	svc := NewService(repo)
	report, err := svc.Report(context.Background(), day, day, &cardio)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if len(report.Days) != 1 {
		t.Fatalf("len(report.Days) = %d, want 1", len(report.Days))
	}
	if report.Days[0].VisitCount != 1 {
		t.Errorf("VisitCount = %d, want 1", report.Days[0].VisitCount)
	}
	if math.Abs(report.Days[0].AvgWaitingMinutes-30) > 0.001 {
		t.Errorf("AvgWaitingMinutes = %f, want 30 (other department excluded)", report.Days[0].AvgWaitingMinutes)
	}
}

func TestReport_FallbackTimestamps(t *testing.T) {
	repo := newMockVisitRepo()
	// no waiting_triage or in_examination entries: registered -> done
	repo.addVisit(day, 1, visit.StatusDone, map[visit.Status]time.Time{
		visit.StatusRegistered: at(8, 0),
		visit.StatusDone:       at(8, 45),
	})

	svc := NewService(repo)
	report, err := svc.Report(context.Background(), day, day, nil)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if math.Abs(report.Days[0].AvgWaitingMinutes-45) > 0.001 {
		t.Errorf("AvgWaitingMinutes = %f, want 45", report.Days[0].AvgWaitingMinutes)
	}
}

func TestReport_NonPositiveWaitSkipped(t *testing.T) {
	repo := newMockVisitRepo()
	repo.addVisit(day, 1, visit.StatusDone, map[visit.Status]time.Time{
		visit.StatusWaitingTriage: at(9, 0),
		visit.StatusInExamination: at(8, 0),
	})

	svc := NewService(repo)
	report, err := svc.Report(context.Background(), day, day, nil)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if report.Days[0].AvgWaitingMinutes != 0 {
		t.Errorf("AvgWaitingMinutes = %f, want 0", report.Days[0].AvgWaitingMinutes)
	}
}

func TestReport_RangeValidation(t *testing.T) {
	svc := NewService(newMockVisitRepo())
	if _, err := svc.Report(context.Background(), day, day.AddDate(0, 0, -1), nil); err == nil {
		t.Error("expected error for reversed range")
	}
}

func TestWriteCSV(t *testing.T) {
	reports := []*DayReport{
		{Date: "2026-03-10", VisitCount: 12},
		{Date: "2026-03-11", VisitCount: 7},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, reports); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	if lines[0] != "Date,Count" {
		t.Errorf("header = %q, want Date,Count", lines[0])
	}
	if lines[1] != "2026-03-10,12" || lines[2] != "2026-03-11,7" {
		t.Errorf("rows = %q, %q", lines[1], lines[2])
	}
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "Date,Count" {
		t.Errorf("output = %q, want header only", buf.String())
	}
}
