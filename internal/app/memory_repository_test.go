package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"project_cycle_service/internal/domain/project"

	"github.com/google/uuid"
)

// memoryRepository is an in-memory project.Repository. Transactions are
// serialised and roll back to a snapshot when fn fails.
type memoryRepository struct {
	txMu     sync.Mutex
	mu       sync.Mutex
	projects map[uuid.UUID]*project.Project
	cycles   map[uuid.UUID]*project.Cycle

	createCycleErr error
	lockErr        map[uuid.UUID]error
	listDueErr     error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		projects: make(map[uuid.UUID]*project.Project),
		cycles:   make(map[uuid.UUID]*project.Cycle),
		lockErr:  make(map[uuid.UUID]error),
	}
}

func (r *memoryRepository) addProject(p *project.Project) *project.Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.projects[p.ID] = &cp
	return p
}

func (r *memoryRepository) addCycle(c *project.Cycle) *project.Cycle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	r.cycles[c.ID] = &cp
	return c
}

func (r *memoryRepository) project(id uuid.UUID) *project.Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (r *memoryRepository) cyclesOf(projectID uuid.UUID) []*project.Cycle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cyclesOfLocked(projectID)
}

func (r *memoryRepository) cyclesOfLocked(projectID uuid.UUID) []*project.Cycle {
	out := make([]*project.Cycle, 0)
	for _, c := range r.cycles {
		if c.ProjectID == projectID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CycleNumber < out[j].CycleNumber })
	return out
}

func (r *memoryRepository) GetProject(_ context.Context, id uuid.UUID) (*project.Project, error) {
	p := r.project(id)
	if p == nil {
		return nil, project.ErrProjectNotFound
	}
	return p, nil
}

func (r *memoryRepository) GetProjectForUpdate(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	r.mu.Lock()
	err := r.lockErr[id]
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.GetProject(ctx, id)
}

func (r *memoryRepository) ListProjects(_ context.Context, status project.Status) ([]*project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*project.Project, 0)
	for _, p := range r.projects {
		if status == "" || p.Status == status {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryRepository) ListDueProjectIDs(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	if r.listDueErr != nil {
		return nil, r.listDueErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	due := make([]*project.Project, 0)
	for _, p := range r.projects {
		if p.IsDue(now) {
			due = append(due, p)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextCycleDate.Time.Before(due[j].NextCycleDate.Time)
	})
	ids := make([]uuid.UUID, len(due))
	for i, p := range due {
		ids[i] = p.ID
	}
	return ids, nil
}

func (r *memoryRepository) UpdateProjectCycleState(_ context.Context, p *project.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.projects[p.ID]
	if !ok {
		return project.ErrProjectNotFound
	}
	stored.Status = p.Status
	stored.CurrentCycleNumber = p.CurrentCycleNumber
	stored.LastCycleDate = p.LastCycleDate
	stored.NextCycleDate = p.NextCycleDate
	return nil
}

func (r *memoryRepository) UpdateProjectStatus(_ context.Context, id uuid.UUID, status project.Status, autoProgress bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.projects[id]
	if !ok {
		return project.ErrProjectNotFound
	}
	stored.Status = status
	stored.AutoProgress = autoProgress
	return nil
}

func (r *memoryRepository) UpdateProjectCurrentAmount(_ context.Context, id uuid.UUID, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.projects[id]
	if !ok {
		return project.ErrProjectNotFound
	}
	stored.CurrentAmount = amount
	return nil
}

func (r *memoryRepository) GetCycle(_ context.Context, id uuid.UUID) (*project.Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cycles[id]
	if !ok {
		return nil, project.ErrCycleNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memoryRepository) GetActiveCycle(_ context.Context, projectID uuid.UUID) (*project.Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cyclesOfLocked(projectID) {
		if c.Status == project.CycleStatusActive {
			return c, nil
		}
	}
	return nil, project.ErrNoActiveCycle
}

func (r *memoryRepository) ListCycles(_ context.Context, projectID uuid.UUID) ([]*project.Cycle, error) {
	return r.cyclesOf(projectID), nil
}

func (r *memoryRepository) CreateCycle(_ context.Context, c *project.Cycle) error {
	if r.createCycleErr != nil {
		return r.createCycleErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.cycles[c.ID] = &cp
	return nil
}

func (r *memoryRepository) CompleteCycle(_ context.Context, id uuid.UUID, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cycles[id]
	if !ok {
		return project.ErrCycleNotFound
	}
	c.Status = project.CycleStatusCompleted
	c.CompletedAt.Time = completedAt
	c.CompletedAt.Valid = true
	return nil
}

func (r *memoryRepository) AddCycleAmount(_ context.Context, id uuid.UUID, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cycles[id]
	if !ok {
		return project.ErrCycleNotFound
	}
	c.CurrentAmount += amount
	return nil
}

func (r *memoryRepository) UpdateCycleProgress(_ context.Context, id uuid.UUID, percentage float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cycles[id]
	if !ok {
		return project.ErrCycleNotFound
	}
	c.ProgressPercentage = percentage
	return nil
}

func (r *memoryRepository) SumCycleAmounts(_ context.Context, projectID uuid.UUID) (float64, error) {
	var sum float64
	for _, c := range r.cyclesOf(projectID) {
		sum += c.CurrentAmount
	}
	return sum, nil
}

func (r *memoryRepository) CycleStats(_ context.Context, projectID uuid.UUID) (*project.CycleStats, error) {
	stats := &project.CycleStats{ProjectID: projectID}
	for _, c := range r.cyclesOf(projectID) {
		stats.TotalCycles++
		stats.TotalRaised += c.CurrentAmount
		switch c.Status {
		case project.CycleStatusActive:
			stats.ActiveCycles++
		case project.CycleStatusCompleted:
			stats.CompletedCycles++
		}
	}
	return stats, nil
}

func (r *memoryRepository) WithinTx(_ context.Context, fn func(tx project.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	projects, cycles := r.snapshot()
	if err := fn(memoryTx{r}); err != nil {
		r.mu.Lock()
		r.projects, r.cycles = projects, cycles
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memoryRepository) snapshot() (map[uuid.UUID]*project.Project, map[uuid.UUID]*project.Cycle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	projects := make(map[uuid.UUID]*project.Project, len(r.projects))
	for id, p := range r.projects {
		cp := *p
		projects[id] = &cp
	}
	cycles := make(map[uuid.UUID]*project.Cycle, len(r.cycles))
	for id, c := range r.cycles {
		cp := *c
		cycles[id] = &cp
	}
	return projects, cycles
}

// memoryTx is the repository handed to WithinTx callbacks; nested
// transactions join the outer one.
type memoryTx struct {
	*memoryRepository
}

func (t memoryTx) WithinTx(_ context.Context, fn func(tx project.Repository) error) error {
	return fn(t)
}
