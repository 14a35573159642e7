// internal/infra/database/postgres_project_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"project_cycle_service/internal/domain/project"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Custom errors specific to project repository
var ErrDuplicateCycle = fmt.Errorf("duplicate project cycle (project_id, cycle_number) or second active cycle")

const uniqueViolation = pq.ErrorCode("23505")

const projectColumns = `id, name, target_amount, current_amount, status, cycle_duration, cycle_duration_days,
	current_cycle_number, total_cycles, last_cycle_date, next_cycle_date, auto_progress, created_at, updated_at`

const cycleColumns = `id, project_id, cycle_number, start_date, end_date, target_amount, current_amount,
	status, progress_percentage, completed_at, created_at, updated_at`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

type PostgresProjectRepository struct {
	db   *sql.DB
	q    querier
	inTx bool
}

func NewPostgresProjectRepository(db *sql.DB) *PostgresProjectRepository {
	return &PostgresProjectRepository{db: db, q: db}
}

func (r *PostgresProjectRepository) WithinTx(ctx context.Context, fn func(tx project.Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	if err := fn(&PostgresProjectRepository{db: r.db, q: txn, inTx: true}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// --- Project Methods ---

func scanProject(row rowScanner) (*project.Project, error) {
	p := &project.Project{}
	err := row.Scan(
		&p.ID, &p.Name, &p.TargetAmount, &p.CurrentAmount, &p.Status, &p.CycleDuration, &p.CycleDurationDays,
		&p.CurrentCycleNumber, &p.TotalCycles, &p.LastCycleDate, &p.NextCycleDate, &p.AutoProgress,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresProjectRepository) GetProject(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	p, err := scanProject(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, project.ErrProjectNotFound
		}
		return nil, fmt.Errorf("error getting project by ID: %w", err)
	}
	return p, nil
}

func (r *PostgresProjectRepository) GetProjectForUpdate(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 FOR UPDATE`
	p, err := scanProject(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, project.ErrProjectNotFound
		}
		return nil, fmt.Errorf("error locking project: %w", err)
	}
	return p, nil
}

func (r *PostgresProjectRepository) ListProjects(ctx context.Context, status project.Status) ([]*project.Project, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = r.q.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY name, id`)
	} else {
		rows, err = r.q.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE status = $1 ORDER BY name, id`, status)
	}
	if err != nil {
		return nil, fmt.Errorf("error listing projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*project.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning project row: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}
	return projects, nil
}

func (r *PostgresProjectRepository) ListDueProjectIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `SELECT id FROM projects
	           WHERE status = $1 AND auto_progress = TRUE AND next_cycle_date <= $2
	           ORDER BY next_cycle_date ASC` // Most overdue first
	rows, err := r.q.QueryContext(ctx, query, project.StatusActive, now)
	if err != nil {
		return nil, fmt.Errorf("error querying due projects: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning due project id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due projects: %w", err)
	}
	return ids, nil
}

func (r *PostgresProjectRepository) UpdateProjectCycleState(ctx context.Context, p *project.Project) error {
	query := `UPDATE projects
	           SET status = $1, current_cycle_number = $2, last_cycle_date = $3, next_cycle_date = $4, updated_at = NOW()
	           WHERE id = $5
	           RETURNING updated_at`
	err := r.q.QueryRowContext(ctx, query, p.Status, p.CurrentCycleNumber, p.LastCycleDate, p.NextCycleDate, p.ID).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return project.ErrProjectNotFound
		}
		return fmt.Errorf("error updating project cycle state: %w", err)
	}
	return nil
}

func (r *PostgresProjectRepository) UpdateProjectStatus(ctx context.Context, id uuid.UUID, status project.Status, autoProgress bool) error {
	query := `UPDATE projects SET status = $1, auto_progress = $2, updated_at = NOW() WHERE id = $3`
	res, err := r.q.ExecContext(ctx, query, status, autoProgress, id)
	if err != nil {
		return fmt.Errorf("error updating project status: %w", err)
	}
	return expectOneRow(res, project.ErrProjectNotFound)
}

func (r *PostgresProjectRepository) UpdateProjectCurrentAmount(ctx context.Context, id uuid.UUID, amount float64) error {
	query := `UPDATE projects SET current_amount = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.q.ExecContext(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("error updating project current amount: %w", err)
	}
	return expectOneRow(res, project.ErrProjectNotFound)
}

// --- ProjectCycle Methods ---

func scanCycle(row rowScanner) (*project.Cycle, error) {
	c := &project.Cycle{}
	err := row.Scan(
		&c.ID, &c.ProjectID, &c.CycleNumber, &c.StartDate, &c.EndDate, &c.TargetAmount, &c.CurrentAmount,
		&c.Status, &c.ProgressPercentage, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresProjectRepository) GetCycle(ctx context.Context, id uuid.UUID) (*project.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM project_cycles WHERE id = $1`
	c, err := scanCycle(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, project.ErrCycleNotFound
		}
		return nil, fmt.Errorf("error getting project cycle by ID: %w", err)
	}
	return c, nil
}

func (r *PostgresProjectRepository) GetActiveCycle(ctx context.Context, projectID uuid.UUID) (*project.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM project_cycles WHERE project_id = $1 AND status = $2`
	c, err := scanCycle(r.q.QueryRowContext(ctx, query, projectID, project.CycleStatusActive))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, project.ErrNoActiveCycle
		}
		return nil, fmt.Errorf("error getting active project cycle: %w", err)
	}
	return c, nil
}

func (r *PostgresProjectRepository) ListCycles(ctx context.Context, projectID uuid.UUID) ([]*project.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM project_cycles WHERE project_id = $1 ORDER BY cycle_number`
	rows, err := r.q.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("error listing project cycles: %w", err)
	}
	defer rows.Close()

	cycles := make([]*project.Cycle, 0)
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning project cycle row: %w", err)
		}
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project cycle rows: %w", err)
	}
	return cycles, nil
}

func (r *PostgresProjectRepository) CreateCycle(ctx context.Context, c *project.Cycle) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `INSERT INTO project_cycles (id, project_id, cycle_number, start_date, end_date, target_amount,
	                                      current_amount, status, progress_percentage)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	           RETURNING created_at, updated_at`
	err := r.q.QueryRowContext(ctx, query,
		c.ID, c.ProjectID, c.CycleNumber, c.StartDate, c.EndDate, c.TargetAmount,
		c.CurrentAmount, c.Status, c.ProgressPercentage,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateCycle, pqErr.Constraint)
		}
		return fmt.Errorf("error creating project cycle: %w", err)
	}
	return nil
}

func (r *PostgresProjectRepository) CompleteCycle(ctx context.Context, id uuid.UUID, completedAt time.Time) error {
	query := `UPDATE project_cycles SET status = $1, completed_at = $2, updated_at = NOW() WHERE id = $3`
	res, err := r.q.ExecContext(ctx, query, project.CycleStatusCompleted, completedAt, id)
	if err != nil {
		return fmt.Errorf("error completing project cycle: %w", err)
	}
	return expectOneRow(res, project.ErrCycleNotFound)
}

func (r *PostgresProjectRepository) AddCycleAmount(ctx context.Context, id uuid.UUID, amount float64) error {
	query := `UPDATE project_cycles SET current_amount = current_amount + $1, updated_at = NOW() WHERE id = $2`
	res, err := r.q.ExecContext(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("error adding to project cycle amount: %w", err)
	}
	return expectOneRow(res, project.ErrCycleNotFound)
}

func (r *PostgresProjectRepository) UpdateCycleProgress(ctx context.Context, id uuid.UUID, percentage float64) error {
	query := `UPDATE project_cycles SET progress_percentage = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.q.ExecContext(ctx, query, percentage, id)
	if err != nil {
		return fmt.Errorf("error updating project cycle progress: %w", err)
	}
	return expectOneRow(res, project.ErrCycleNotFound)
}

func (r *PostgresProjectRepository) SumCycleAmounts(ctx context.Context, projectID uuid.UUID) (float64, error) {
	query := `SELECT COALESCE(SUM(current_amount), 0) FROM project_cycles WHERE project_id = $1`
	var sum float64
	if err := r.q.QueryRowContext(ctx, query, projectID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("error summing project cycle amounts: %w", err)
	}
	return sum, nil
}

func (r *PostgresProjectRepository) CycleStats(ctx context.Context, projectID uuid.UUID) (*project.CycleStats, error) {
	query := `SELECT COUNT(*),
	                 COUNT(*) FILTER (WHERE status = $2),
	                 COUNT(*) FILTER (WHERE status = $3),
	                 COALESCE(SUM(current_amount), 0)
	           FROM project_cycles
	           WHERE project_id = $1`
	stats := &project.CycleStats{ProjectID: projectID}
	err := r.q.QueryRowContext(ctx, query, projectID, project.CycleStatusCompleted, project.CycleStatusActive).Scan(
		&stats.TotalCycles, &stats.CompletedCycles, &stats.ActiveCycles, &stats.TotalRaised,
	)
	if err != nil {
		// Aggregates always return a row, so any error here is a driver error.
		return nil, fmt.Errorf("error reading project cycle stats: %w", err)
	}
	return stats, nil
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
