package visit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hospitaltriage/intake/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if conn := db.ConnFromContext(ctx); conn != nil {
		return conn
	}
	return r.pool
}

// begin returns a transaction to run in. When the context already carries
// one, it is reused and owned=false tells the caller not to commit it.
func (r *repoPG) begin(ctx context.Context) (tx pgx.Tx, owned bool, err error) {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx, false, nil
	}
	if conn := db.ConnFromContext(ctx); conn != nil {
		tx, err := conn.Begin(ctx)
		return tx, true, err
	}
	t, err := r.pool.Begin(ctx)
	return t, true, err
}

const visitCols = `id, patient_id, visit_date, queue_number, status, symptoms, department_id, doctor_id, created_at, updated_at`

func (r *repoPG) CreateWithHistory(ctx context.Context, v *Visit, actor *string) error {
	tx, owned, err := r.begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if owned {
		defer tx.Rollback(ctx)
	}

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	now := time.Now()
	v.CreatedAt = now
	v.UpdatedAt = now

	_, err = tx.Exec(ctx, `
		INSERT INTO visits (id, patient_id, visit_date, queue_number, status, symptoms, department_id, doctor_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		v.ID, v.PatientID, v.VisitDate, v.QueueNumber, v.Status, v.Symptoms, v.DepartmentID, v.DoctorID, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		if isQueueConflict(err) {
			return ErrQueueConflict
		}
		return fmt.Errorf("insert visit: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO visit_status_history (visit_id, status, changed_at, changed_by)
		VALUES ($1, $2, $3, $4)`,
		v.ID, v.Status, now, actor)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}

	if owned {
		return tx.Commit(ctx)
	}
	return nil
}

func isQueueConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "uq_visits_queue"
}

func (r *repoPG) MaxQueueNumber(ctx context.Context, date time.Time) (int, error) {
	var max int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(MAX(queue_number), 0) FROM visits WHERE visit_date = $1`,
		date).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max queue number: %w", err)
	}
	return max, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+visitCols+` FROM visits WHERE id = $1`, id)
	return scanVisit(row)
}

func (r *repoPG) GetDetail(ctx context.Context, id uuid.UUID) (*VisitDetail, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT v.id, v.patient_id, v.visit_date, v.queue_number, v.status,
		       v.symptoms, v.department_id, v.doctor_id, v.created_at, v.updated_at,
		       p.full_name, dept.name, doc.full_name
		FROM visits v
		JOIN patients p ON p.id = v.patient_id
		LEFT JOIN departments dept ON dept.id = v.department_id
		LEFT JOIN doctors doc ON doc.id = v.doctor_id
		WHERE v.id = $1`, id)

	var d VisitDetail
	err := row.Scan(&d.ID, &d.PatientID, &d.VisitDate, &d.QueueNumber, &d.Status,
		&d.Symptoms, &d.DepartmentID, &d.DoctorID, &d.CreatedAt, &d.UpdatedAt,
		&d.PatientName, &d.DepartmentName, &d.DoctorName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan visit detail: %w", err)
	}
	return &d, nil
}

func (r *repoPG) UpdateStatusWithHistory(ctx context.Context, id uuid.UUID, status Status, actor *string) error {
	tx, owned, err := r.begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if owned {
		defer tx.Rollback(ctx)
	}

	now := time.Now()
	tag, err := tx.Exec(ctx, `
		UPDATE visits SET status = $1, updated_at = $2 WHERE id = $3`,
		status, now, id)
	if err != nil {
		return fmt.Errorf("update visit status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO visit_status_history (visit_id, status, changed_at, changed_by)
		VALUES ($1, $2, $3, $4)`,
		id, status, now, actor)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}

	if owned {
		return tx.Commit(ctx)
	}
	return nil
}

func (r *repoPG) UpdateTriage(ctx context.Context, v *Visit) error {
	v.UpdatedAt = time.Now()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE visits SET symptoms = $1, department_id = $2, doctor_id = $3, updated_at = $4
		WHERE id = $5`,
		v.Symptoms, v.DepartmentID, v.DoctorID, v.UpdatedAt, v.ID)
	if err != nil {
		return fmt.Errorf("update triage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) History(ctx context.Context, id uuid.UUID) ([]*StatusChange, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, visit_id, status, changed_at, changed_by
		FROM visit_status_history
		WHERE visit_id = $1
		ORDER BY changed_at, id`, id)
	if err != nil {
		return nil, fmt.Errorf("query status history: %w", err)
	}
	defer rows.Close()
	return collectChanges(rows)
}

func (r *repoPG) List(ctx context.Context, date *time.Time, status *Status, limit, offset int) ([]*Visit, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	if date != nil {
		args = append(args, *date)
		where += fmt.Sprintf(" AND visit_date = $%d", len(args))
	}
	if status != nil {
		args = append(args, *status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM visits `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count visits: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT `+visitCols+` FROM visits %s ORDER BY visit_date DESC, queue_number LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query visits: %w", err)
	}
	defer rows.Close()

	visits, err := collectVisits(rows)
	if err != nil {
		return nil, 0, err
	}
	return visits, total, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM visits WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count visits: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+visitCols+` FROM visits
		WHERE patient_id = $1
		ORDER BY visit_date DESC, queue_number
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query visits: %w", err)
	}
	defer rows.Close()

	visits, err := collectVisits(rows)
	if err != nil {
		return nil, 0, err
	}
	return visits, total, nil
}

func (r *repoPG) ListWaiting(ctx context.Context, departmentID *uuid.UUID) ([]*Visit, error) {
	// Deliberately not scoped to a date: patients still waiting from an
	// earlier day stay in the queue ahead of today's.
	query := `
		SELECT ` + visitCols + ` FROM visits
		WHERE status IN ($1, $2)`
	args := []any{StatusWaitingTriage, StatusWaitingDoctor}
	if departmentID != nil {
		args = append(args, *departmentID)
		query += fmt.Sprintf(" AND department_id = $%d", len(args))
	}
	query += " ORDER BY visit_date, queue_number"

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query waiting visits: %w", err)
	}
	defer rows.Close()
	return collectVisits(rows)
}

func (r *repoPG) ListByStatus(ctx context.Context, status Status, departmentID *uuid.UUID) ([]*Visit, error) {
	query := `
		SELECT ` + visitCols + ` FROM visits
		WHERE status = $1`
	args := []any{status}
	if departmentID != nil {
		args = append(args, *departmentID)
		query += fmt.Sprintf(" AND department_id = $%d", len(args))
	}
	query += " ORDER BY visit_date, queue_number"

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query visits by status: %w", err)
	}
	defer rows.Close()
	return collectVisits(rows)
}

func (r *repoPG) CountByStatus(ctx context.Context, departmentID *uuid.UUID) (map[Status]int, error) {
	query := `
		SELECT status, COUNT(*) FROM visits
		WHERE 1=1`
	args := []any{}
	if departmentID != nil {
		args = append(args, *departmentID)
		query += fmt.Sprintf(" AND department_id = $%d", len(args))
	}
	query += " GROUP BY status"

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count visits by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

func (r *repoPG) ListBetween(ctx context.Context, from, to time.Time, departmentID *uuid.UUID) ([]*Visit, error) {
	query := `
		SELECT ` + visitCols + ` FROM visits
		WHERE visit_date BETWEEN $1 AND $2`
	args := []any{from, to}
	if departmentID != nil {
		args = append(args, *departmentID)
		query += fmt.Sprintf(" AND department_id = $%d", len(args))
	}
	query += " ORDER BY visit_date, queue_number"

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query visits between dates: %w", err)
	}
	defer rows.Close()
	return collectVisits(rows)
}

func (r *repoPG) HistoryBetween(ctx context.Context, from, to time.Time, departmentID *uuid.UUID) (map[uuid.UUID][]*StatusChange, error) {
	query := `
		SELECT h.id, h.visit_id, h.status, h.changed_at, h.changed_by
		FROM visit_status_history h
		JOIN visits v ON v.id = h.visit_id
		WHERE v.visit_date BETWEEN $1 AND $2`
	args := []any{from, to}
	if departmentID != nil {
		args = append(args, *departmentID)
		query += fmt.Sprintf(" AND v.department_id = $%d", len(args))
	}
	query += " ORDER BY h.visit_id, h.changed_at, h.id"

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history between dates: %w", err)
	}
	defer rows.Close()

	byVisit := make(map[uuid.UUID][]*StatusChange)
	for rows.Next() {
		var ch StatusChange
		if err := rows.Scan(&ch.ID, &ch.VisitID, &ch.Status, &ch.ChangedAt, &ch.ChangedBy); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		byVisit[ch.VisitID] = append(byVisit[ch.VisitID], &ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status changes: %w", err)
	}
	return byVisit, nil
}

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.PatientID, &v.VisitDate, &v.QueueNumber, &v.Status,
		&v.Symptoms, &v.DepartmentID, &v.DoctorID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan visit: %w", err)
	}
	return &v, nil
}

func collectVisits(rows pgx.Rows) ([]*Visit, error) {
	visits := []*Visit{}
	for rows.Next() {
		var v Visit
		err := rows.Scan(&v.ID, &v.PatientID, &v.VisitDate, &v.QueueNumber, &v.Status,
			&v.Symptoms, &v.DepartmentID, &v.DoctorID, &v.CreatedAt, &v.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		visits = append(visits, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visits: %w", err)
	}
	return visits, nil
}

func collectChanges(rows pgx.Rows) ([]*StatusChange, error) {
	changes := []*StatusChange{}
	for rows.Next() {
		var ch StatusChange
		if err := rows.Scan(&ch.ID, &ch.VisitID, &ch.Status, &ch.ChangedAt, &ch.ChangedBy); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		changes = append(changes, &ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status changes: %w", err)
	}
	return changes, nil
}
