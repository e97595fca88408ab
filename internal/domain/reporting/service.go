package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hospitaltriage/intake/internal/domain/visit"
)

type Service struct {
	visits visit.Repository
}

func NewService(visits visit.Repository) *Service {
	return &Service{visits: visits}
}

// Dashboard is the live view of the pipeline: how many visits sit in each
// stage, plus the waiting queue in call order. It is not scoped to a day,
// so patients still waiting from earlier days are counted.
type Dashboard struct {
	WaitingTriage int            `json:"waiting_triage"`
	WaitingDoctor int            `json:"waiting_doctor"`
	InExamination int            `json:"in_examination"`
	Done          int            `json:"done"`
	Waiting       []*visit.Visit `json:"waiting"`
}

// Dashboard builds the live view, optionally narrowed to one department.
func (s *Service) Dashboard(ctx context.Context, departmentID *uuid.UUID) (*Dashboard, error) {
	counts, err := s.visits.CountByStatus(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	waiting, err := s.visits.ListWaiting(ctx, departmentID)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		WaitingTriage: counts[visit.StatusWaitingTriage],
		WaitingDoctor: counts[visit.StatusWaitingDoctor],
		InExamination: counts[visit.StatusInExamination],
		Done:          counts[visit.StatusDone],
		Waiting:       waiting,
	}, nil
}

// DayReport aggregates one day in a report range. WaitSample is how many
// visits contributed a measurable waiting time to the average.
type DayReport struct {
	Date              string  `json:"date"`
	VisitCount        int     `json:"visit_count"`
	AvgWaitingMinutes float64 `json:"avg_waiting_minutes"`
	WaitSample        int     `json:"wait_sample"`
}

// Report pairs the per-day breakdown with the average waiting time over
// the whole range, so a single number summarizes the period.
type Report struct {
	Days              []*DayReport `json:"days"`
	AvgWaitingMinutes float64      `json:"avg_waiting_minutes"`
	WaitSample        int          `json:"wait_sample"`
}

// Report aggregates visits per day over [from, to]. The waiting time of a
// visit runs from when it entered the queue to when examination started;
// visits that never reached examination, or whose timestamps are out of
// order, are left out of the averages. Days without measurable waits
// report an average of zero.
func (s *Service) Report(ctx context.Context, from, to time.Time, departmentID *uuid.UUID) (*Report, error) {
	from = visit.Day(from)
	to = visit.Day(to)
	if to.Before(from) {
		return nil, fmt.Errorf("report range end before start")
	}

	visits, err := s.visits.ListBetween(ctx, from, to, departmentID)
	if err != nil {
		return nil, err
	}
	histories, err := s.visits.HistoryBetween(ctx, from, to, departmentID)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		count     int
		waitTotal time.Duration
		waitN     int
	}
	buckets := make(map[string]*bucket)
	var rangeTotal time.Duration
	var rangeN int
	for _, v := range visits {
		key := v.VisitDate.Format("2006-01-02")
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		b.count++
		if wait, ok := waitingTime(histories[v.ID]); ok {
			b.waitTotal += wait
			b.waitN++
			rangeTotal += wait
			rangeN++
		}
	}

	days := []*DayReport{}
	for key, b := range buckets {
		r := &DayReport{Date: key, VisitCount: b.count, WaitSample: b.waitN}
		if b.waitN > 0 {
			r.AvgWaitingMinutes = b.waitTotal.Minutes() / float64(b.waitN)
		}
		days = append(days, r)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	report := &Report{Days: days, WaitSample: rangeN}
	if rangeN > 0 {
		report.AvgWaitingMinutes = rangeTotal.Minutes() / float64(rangeN)
	}
	return report, nil
}

// waitingTime derives how long a visit waited before being seen. The queue
// entry point is the waiting_triage timestamp, falling back to registered;
// the seen point is in_examination, falling back to done.
func waitingTime(history []*visit.StatusChange) (time.Duration, bool) {
	var registered, waiting, exam, done *time.Time
	for _, ch := range history {
		t := ch.ChangedAt
		switch ch.Status {
		case visit.StatusRegistered:
			registered = &t
		case visit.StatusWaitingTriage:
			waiting = &t
		case visit.StatusInExamination:
			exam = &t
		case visit.StatusDone:
			done = &t
		}
	}

	start := waiting
	if start == nil {
		start = registered
	}
	end := exam
	if end == nil {
		end = done
	}
	if start == nil || end == nil {
		return 0, false
	}
	wait := end.Sub(*start)
	if wait <= 0 {
		return 0, false
	}
	return wait, true
}
