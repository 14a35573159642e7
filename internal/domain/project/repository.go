// internal/domain/project/repository.go
package project

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence for projects and their cycles.
type Repository interface {
	// Project methods
	GetProject(ctx context.Context, id uuid.UUID) (*Project, error)
	// GetProjectForUpdate loads the project and locks its row until the surrounding transaction ends.
	GetProjectForUpdate(ctx context.Context, id uuid.UUID) (*Project, error)
	ListProjects(ctx context.Context, status Status) ([]*Project, error) // empty status lists all
	ListDueProjectIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	UpdateProjectCycleState(ctx context.Context, p *Project) error // status, cycle number, cycle dates
	UpdateProjectStatus(ctx context.Context, id uuid.UUID, status Status, autoProgress bool) error
	UpdateProjectCurrentAmount(ctx context.Context, id uuid.UUID, amount float64) error

	// Cycle methods
	GetCycle(ctx context.Context, id uuid.UUID) (*Cycle, error)
	GetActiveCycle(ctx context.Context, projectID uuid.UUID) (*Cycle, error)
	ListCycles(ctx context.Context, projectID uuid.UUID) ([]*Cycle, error)
	CreateCycle(ctx context.Context, c *Cycle) error
	CompleteCycle(ctx context.Context, id uuid.UUID, completedAt time.Time) error
	AddCycleAmount(ctx context.Context, id uuid.UUID, amount float64) error
	UpdateCycleProgress(ctx context.Context, id uuid.UUID, percentage float64) error
	SumCycleAmounts(ctx context.Context, projectID uuid.UUID) (float64, error)
	CycleStats(ctx context.Context, projectID uuid.UUID) (*CycleStats, error)

	// WithinTx runs fn against a repository bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Repository) error) error
}
