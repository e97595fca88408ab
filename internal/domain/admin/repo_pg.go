package admin

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

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func activeQuerier(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if conn := db.ConnFromContext(ctx); conn != nil {
		return conn
	}
	return pool
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type deptRepoPG struct {
	pool *pgxpool.Pool
}

func NewDepartmentRepo(pool *pgxpool.Pool) DepartmentRepository {
	return &deptRepoPG{pool: pool}
}

const deptCols = `id, code, name, is_general, is_active, created_at, updated_at`

func (r *deptRepoPG) Create(ctx context.Context, d *Department) error {
	d.ID = uuid.New()
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := activeQuerier(ctx, r.pool).Exec(ctx, `
		INSERT INTO departments (id, code, name, is_general, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.Code, d.Name, d.IsGeneral, d.IsActive, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("insert department: %w", err)
	}
	return nil
}

func (r *deptRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Department, error) {
	row := activeQuerier(ctx, r.pool).QueryRow(ctx,
		`SELECT `+deptCols+` FROM departments WHERE id = $1`, id)
	return scanDepartment(row)
}

func (r *deptRepoPG) GetGeneral(ctx context.Context) (*Department, error) {
	row := activeQuerier(ctx, r.pool).QueryRow(ctx,
		`SELECT `+deptCols+` FROM departments WHERE is_general LIMIT 1`)
	d, err := scanDepartment(row)
	if errors.Is(err, ErrDepartmentNotFound) {
		return nil, ErrNoGeneral
	}
	return d, err
}

func (r *deptRepoPG) List(ctx context.Context) ([]*Department, error) {
	rows, err := activeQuerier(ctx, r.pool).Query(ctx,
		`SELECT `+deptCols+` FROM departments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query departments: %w", err)
	}
	defer rows.Close()

	depts := []*Department{}
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Code, &d.Name, &d.IsGeneral, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		depts = append(depts, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate departments: %w", err)
	}
	return depts, nil
}

func (r *deptRepoPG) Update(ctx context.Context, d *Department) error {
	d.UpdatedAt = time.Now()
	tag, err := activeQuerier(ctx, r.pool).Exec(ctx, `
		UPDATE departments SET code = $1, name = $2, is_active = $3, updated_at = $4 WHERE id = $5`,
		d.Code, d.Name, d.IsActive, d.UpdatedAt, d.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("update department: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDepartmentNotFound
	}
	return nil
}

func (r *deptRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := activeQuerier(ctx, r.pool).Exec(ctx,
		`UPDATE departments SET is_active = FALSE, updated_at = $1 WHERE id = $2`,
		time.Now(), id)
	if err != nil {
		return fmt.Errorf("deactivate department: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDepartmentNotFound
	}
	return nil
}

func (r *deptRepoPG) SetGeneral(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE departments SET is_general = FALSE, updated_at = $1 WHERE is_general`, time.Now()); err != nil {
		return fmt.Errorf("clear general flag: %w", err)
	}
	tag, err := tx.Exec(ctx,
		`UPDATE departments SET is_general = TRUE, updated_at = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set general flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDepartmentNotFound
	}
	return tx.Commit(ctx)
}

func scanDepartment(row pgx.Row) (*Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.Code, &d.Name, &d.IsGeneral, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("scan department: %w", err)
	}
	return &d, nil
}

type doctorRepoPG struct {
	pool *pgxpool.Pool
}

func NewDoctorRepo(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

const doctorCols = `id, code, full_name, department_id, active, created_at, updated_at`

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := activeQuerier(ctx, r.pool).Exec(ctx, `
		INSERT INTO doctors (id, code, full_name, department_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.Code, d.FullName, d.DepartmentID, d.Active, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert doctor: %w", err)
	}
	return nil
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := activeQuerier(ctx, r.pool).QueryRow(ctx,
		`SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id)
	return scanDoctor(row)
}

func (r *doctorRepoPG) List(ctx context.Context, departmentID *uuid.UUID, activeOnly bool) ([]*Doctor, error) {
	where := "WHERE 1=1"
	args := []any{}
	if departmentID != nil {
		args = append(args, *departmentID)
		where += fmt.Sprintf(" AND department_id = $%d", len(args))
	}
	if activeOnly {
		where += " AND active"
	}

	rows, err := activeQuerier(ctx, r.pool).Query(ctx,
		`SELECT `+doctorCols+` FROM doctors `+where+` ORDER BY full_name`, args...)
	if err != nil {
		return nil, fmt.Errorf("query doctors: %w", err)
	}
	defer rows.Close()

	doctors := []*Doctor{}
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Code, &d.FullName, &d.DepartmentID, &d.Active, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		doctors = append(doctors, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate doctors: %w", err)
	}
	return doctors, nil
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	d.UpdatedAt = time.Now()
	tag, err := activeQuerier(ctx, r.pool).Exec(ctx, `
		UPDATE doctors SET code = $1, full_name = $2, department_id = $3, active = $4, updated_at = $5
		WHERE id = $6`,
		d.Code, d.FullName, d.DepartmentID, d.Active, d.UpdatedAt, d.ID)
	if err != nil {
		return fmt.Errorf("update doctor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *doctorRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := activeQuerier(ctx, r.pool).Exec(ctx,
		`DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete doctor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Code, &d.FullName, &d.DepartmentID, &d.Active, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("scan doctor: %w", err)
	}
	return &d, nil
}

type ruleRepoPG struct {
	pool *pgxpool.Pool
}

func NewRuleRepo(pool *pgxpool.Pool) RuleRepository {
	return &ruleRepoPG{pool: pool}
}

const ruleCols = `id, keyword, department_id, is_active, created_at, updated_at`

func (r *ruleRepoPG) Create(ctx context.Context, rule *SymptomRule) error {
	rule.ID = uuid.New()
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	_, err := activeQuerier(ctx, r.pool).Exec(ctx, `
		INSERT INTO symptom_rules (id, keyword, department_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rule.ID, rule.Keyword, rule.DepartmentID, rule.Active, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert symptom rule: %w", err)
	}
	return nil
}

func (r *ruleRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*SymptomRule, error) {
	row := activeQuerier(ctx, r.pool).QueryRow(ctx,
		`SELECT `+ruleCols+` FROM symptom_rules WHERE id = $1`, id)
	return scanRule(row)
}

func (r *ruleRepoPG) List(ctx context.Context) ([]*SymptomRule, error) {
	return r.list(ctx, `SELECT `+ruleCols+` FROM symptom_rules ORDER BY keyword`)
}

func (r *ruleRepoPG) ListActive(ctx context.Context) ([]*SymptomRule, error) {
	return r.list(ctx, `SELECT `+ruleCols+` FROM symptom_rules WHERE is_active ORDER BY keyword`)
}

func (r *ruleRepoPG) list(ctx context.Context, query string) ([]*SymptomRule, error) {
	rows, err := activeQuerier(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query symptom rules: %w", err)
	}
	defer rows.Close()

	rules := []*SymptomRule{}
	for rows.Next() {
		var rule SymptomRule
		if err := rows.Scan(&rule.ID, &rule.Keyword, &rule.DepartmentID, &rule.Active, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan symptom rule: %w", err)
		}
		rules = append(rules, &rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symptom rules: %w", err)
	}
	return rules, nil
}

func (r *ruleRepoPG) Update(ctx context.Context, rule *SymptomRule) error {
	rule.UpdatedAt = time.Now()
	tag, err := activeQuerier(ctx, r.pool).Exec(ctx, `
		UPDATE symptom_rules SET keyword = $1, department_id = $2, is_active = $3, updated_at = $4
		WHERE id = $5`,
		rule.Keyword, rule.DepartmentID, rule.Active, rule.UpdatedAt, rule.ID)
	if err != nil {
		return fmt.Errorf("update symptom rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (r *ruleRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := activeQuerier(ctx, r.pool).Exec(ctx,
		`DELETE FROM symptom_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete symptom rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func scanRule(row pgx.Row) (*SymptomRule, error) {
	var rule SymptomRule
	err := row.Scan(&rule.ID, &rule.Keyword, &rule.DepartmentID, &rule.Active, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("scan symptom rule: %w", err)
	}
	return &rule, nil
}
