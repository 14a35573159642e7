// internal/app/cycle_manager.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"project_cycle_service/internal/domain/project"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CycleNotifier is told about advancements after they are committed.
type CycleNotifier interface {
	CycleAdvanced(ctx context.Context, p *project.Project, closed, opened *project.Cycle)
	ProjectCompleted(ctx context.Context, p *project.Project)
}

// CycleManagerOptions tunes a CycleManager. The zero value is usable.
type CycleManagerOptions struct {
	// IsolateFailures keeps a batch going after a project fails and reports
	// every failure at the end. By default the first failure aborts the batch.
	IsolateFailures bool
	Notifier        CycleNotifier
	Now             func() time.Time
}

// CycleManager advances recurring projects through their funding cycles and
// keeps cycle progress and project totals current.
type CycleManager struct {
	repo            project.Repository
	notifier        CycleNotifier
	logger          logrus.FieldLogger
	now             func() time.Time
	isolateFailures bool
}

func NewCycleManager(repo project.Repository, logger logrus.FieldLogger, opts CycleManagerOptions) *CycleManager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &CycleManager{
		repo:            repo,
		notifier:        opts.Notifier,
		logger:          logger.WithField("component", "cycle_manager"),
		now:             now,
		isolateFailures: opts.IsolateFailures,
	}
}

// CheckAndAdvanceCycles advances every active, auto-progressing project whose
// next cycle date has passed. It returns how many projects were advanced or completed.
func (m *CycleManager) CheckAndAdvanceCycles(ctx context.Context) (int, error) {
	now := m.now()
	log := m.logger.WithField("run_at", now.Format(time.RFC3339))

	ids, err := m.repo.ListDueProjectIDs(ctx, now)
	if err != nil {
		log.WithError(err).Error("Failed to list projects due for advancement")
		return 0, fmt.Errorf("failed to list due projects: %w", err)
	}
	if len(ids) == 0 {
		log.Debug("No projects due for cycle advancement")
		return 0, nil
	}
	log.Infof("Found %d projects due for cycle advancement", len(ids))

	advanced := 0
	var failures []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("Cycle check interrupted")
			return advanced, errors.Join(append(failures, err)...)
		}

		result, err := m.advance(ctx, id, true)
		if err != nil {
			if !m.isolateFailures {
				log.WithField("advanced", advanced).Error("Aborting cycle check after failure")
				return advanced, err
			}
			failures = append(failures, err)
			continue
		}
		if result.Skipped {
			log.WithField("project_id", id).Info("Project no longer due, skipped")
			continue
		}
		advanced++
	}

	log.WithFields(logrus.Fields{
		"advanced": advanced,
		"failed":   len(failures),
	}).Info("Cycle check finished")
	return advanced, errors.Join(failures...)
}

// AdvanceProjectCycle moves a project to its next cycle, or completes it
// when its configured number of cycles has already run.
func (m *CycleManager) AdvanceProjectCycle(ctx context.Context, projectID uuid.UUID) (*project.AdvanceResult, error) {
	return m.advance(ctx, projectID, false)
}

func (m *CycleManager) advance(ctx context.Context, projectID uuid.UUID, onlyIfDue bool) (*project.AdvanceResult, error) {
	log := m.logger.WithField("project_id", projectID)

	var result *project.AdvanceResult
	err := m.repo.WithinTx(ctx, func(tx project.Repository) error {
		p, err := tx.GetProjectForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		now := m.now()
		// Another run may have advanced the project between listing and locking.
		if onlyIfDue && !p.IsDue(now) {
			result = &project.AdvanceResult{Project: p, Skipped: true}
			return nil
		}
		result, err = advanceLocked(ctx, tx, p, now)
		return err
	})
	if err != nil {
		log.WithError(err).Error("Failed to advance project cycle")
		if errors.Is(err, project.ErrProjectNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to advance project %s: %w", projectID, err)
	}

	switch {
	case result.Skipped:
	case result.Completed:
		log.WithField("cycle_number", result.Project.CurrentCycleNumber).Info("Project reached its cycle cap and was completed")
		if m.notifier != nil {
			m.notifier.ProjectCompleted(ctx, result.Project)
		}
	default:
		log.WithFields(logrus.Fields{
			"cycle_number":    result.NewCycle.CycleNumber,
			"cycle_id":        result.NewCycle.ID,
			"next_cycle_date": result.Project.NextCycleDate.Time.Format(time.RFC3339),
		}).Info("Project advanced to next cycle")
		if m.notifier != nil {
			m.notifier.CycleAdvanced(ctx, result.Project, result.ClosedCycle, result.NewCycle)
		}
	}
	return result, nil
}

// advanceLocked performs the transition on a project whose row is locked by tx.
func advanceLocked(ctx context.Context, tx project.Repository, p *project.Project, now time.Time) (*project.AdvanceResult, error) {
	if p.Status.IsFinal() {
		return nil, project.ErrProjectFinalized
	}
	if p.CapReached() {
		p.Status = project.StatusCompleted
		if err := tx.UpdateProjectCycleState(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to complete project: %w", err)
		}
		return &project.AdvanceResult{Project: p, Completed: true}, nil
	}

	result := &project.AdvanceResult{Project: p}

	active, err := tx.GetActiveCycle(ctx, p.ID)
	switch {
	case err == nil:
		if err := tx.CompleteCycle(ctx, active.ID, now); err != nil {
			return nil, fmt.Errorf("failed to close cycle %d: %w", active.CycleNumber, err)
		}
		active.Status = project.CycleStatusCompleted
		active.CompletedAt = sql.NullTime{Time: now, Valid: true}
		result.ClosedCycle = active
	case errors.Is(err, project.ErrNoActiveCycle):
	default:
		return nil, fmt.Errorf("failed to load active cycle: %w", err)
	}

	days := p.CycleDays()
	start := now
	if p.NextCycleDate.Valid {
		start = p.NextCycleDate.Time
	}
	end := start.AddDate(0, 0, days)

	next := &project.Cycle{
		ID:           uuid.New(),
		ProjectID:    p.ID,
		CycleNumber:  p.CurrentCycleNumber + 1,
		StartDate:    start,
		EndDate:      end,
		TargetAmount: p.TargetAmount,
		Status:       project.CycleStatusActive,
	}
	if err := tx.CreateCycle(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to open cycle %d: %w", next.CycleNumber, err)
	}
	result.NewCycle = next

	p.LastCycleDate = p.NextCycleDate
	p.CurrentCycleNumber = next.CycleNumber
	p.NextCycleDate = sql.NullTime{Time: end.AddDate(0, 0, days), Valid: true}
	if err := tx.UpdateProjectCycleState(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update project cycle state: %w", err)
	}
	return result, nil
}

// UpdateCycleProgress recomputes a cycle's progress percentage and rolls the
// cycle totals up into the parent project.
func (m *CycleManager) UpdateCycleProgress(ctx context.Context, cycleID uuid.UUID) error {
	log := m.logger.WithField("cycle_id", cycleID)

	err := m.repo.WithinTx(ctx, func(tx project.Repository) error {
		c, err := tx.GetCycle(ctx, cycleID)
		if err != nil {
			return err
		}
		return refreshCycle(ctx, tx, c)
	})
	if err != nil {
		log.WithError(err).Error("Failed to update cycle progress")
		return err
	}
	return nil
}

// UpdateProjectTotalAmount writes the sum of all cycle amounts to the project.
func (m *CycleManager) UpdateProjectTotalAmount(ctx context.Context, projectID uuid.UUID) error {
	err := m.repo.WithinTx(ctx, func(tx project.Repository) error {
		_, err := rollUpProject(ctx, tx, projectID)
		return err
	})
	if err != nil {
		m.logger.WithField("project_id", projectID).WithError(err).Error("Failed to update project total amount")
		return err
	}
	return nil
}

// RecordContribution adds amount to the project's active cycle and refreshes
// the cycle's progress and the project's total.
func (m *CycleManager) RecordContribution(ctx context.Context, projectID uuid.UUID, amount float64) (*project.Cycle, error) {
	log := m.logger.WithFields(logrus.Fields{"project_id": projectID, "amount": amount})
	if !project.ValidAmount(amount) {
		log.Warn("Rejected invalid contribution")
		return nil, project.ErrInvalidAmount
	}

	var cycle *project.Cycle
	err := m.repo.WithinTx(ctx, func(tx project.Repository) error {
		if _, err := tx.GetProjectForUpdate(ctx, projectID); err != nil {
			return err
		}
		c, err := tx.GetActiveCycle(ctx, projectID)
		if err != nil {
			return err
		}
		if err := tx.AddCycleAmount(ctx, c.ID, amount); err != nil {
			return fmt.Errorf("failed to add contribution to cycle: %w", err)
		}
		c.CurrentAmount += amount
		cycle = c
		return refreshCycle(ctx, tx, c)
	})
	if err != nil {
		log.WithError(err).Error("Failed to record contribution")
		return nil, err
	}
	log.WithField("cycle_id", cycle.ID).Info("Contribution recorded")
	return cycle, nil
}

func refreshCycle(ctx context.Context, tx project.Repository, c *project.Cycle) error {
	c.ProgressPercentage = project.ProgressPercentage(c.CurrentAmount, c.TargetAmount)
	if err := tx.UpdateCycleProgress(ctx, c.ID, c.ProgressPercentage); err != nil {
		return fmt.Errorf("failed to store cycle progress: %w", err)
	}
	_, err := rollUpProject(ctx, tx, c.ProjectID)
	return err
}

func rollUpProject(ctx context.Context, tx project.Repository, projectID uuid.UUID) (float64, error) {
	total, err := tx.SumCycleAmounts(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum cycle amounts: %w", err)
	}
	if err := tx.UpdateProjectCurrentAmount(ctx, projectID, total); err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to store project total: %w", err)
	}
	return total, nil
}

// PauseProject removes the project from automatic advancement.
func (m *CycleManager) PauseProject(ctx context.Context, projectID uuid.UUID) (*project.Project, error) {
	return m.setRunState(ctx, projectID, project.StatusPaused, false)
}

// ResumeProject returns the project to automatic advancement.
func (m *CycleManager) ResumeProject(ctx context.Context, projectID uuid.UUID) (*project.Project, error) {
	return m.setRunState(ctx, projectID, project.StatusActive, true)
}

func (m *CycleManager) setRunState(ctx context.Context, projectID uuid.UUID, status project.Status, autoProgress bool) (*project.Project, error) {
	log := m.logger.WithFields(logrus.Fields{"project_id": projectID, "status": status})

	var updated *project.Project
	err := m.repo.WithinTx(ctx, func(tx project.Repository) error {
		p, err := tx.GetProjectForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		if p.Status.IsFinal() {
			return project.ErrProjectFinalized
		}
		if err := tx.UpdateProjectStatus(ctx, projectID, status, autoProgress); err != nil {
			return err
		}
		p.Status = status
		p.AutoProgress = autoProgress
		updated = p
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to change project run state")
		return nil, err
	}
	log.Info("Project run state changed")
	return updated, nil
}

// GetProjectCycleStats returns cycle counts and the amount raised for a project.
func (m *CycleManager) GetProjectCycleStats(ctx context.Context, projectID uuid.UUID) (*project.CycleStats, error) {
	if _, err := m.repo.GetProject(ctx, projectID); err != nil {
		m.logger.WithField("project_id", projectID).WithError(err).Error("Failed to load project for stats")
		return nil, err
	}
	stats, err := m.repo.CycleStats(ctx, projectID)
	if err != nil {
		m.logger.WithField("project_id", projectID).WithError(err).Error("Failed to load cycle stats")
		return nil, fmt.Errorf("failed to load cycle stats: %w", err)
	}
	return stats, nil
}

func (m *CycleManager) GetProject(ctx context.Context, projectID uuid.UUID) (*project.Project, error) {
	return m.repo.GetProject(ctx, projectID)
}

func (m *CycleManager) ListProjects(ctx context.Context, status project.Status) ([]*project.Project, error) {
	projects, err := m.repo.ListProjects(ctx, status)
	if err != nil {
		m.logger.WithError(err).Error("Failed to list projects")
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}
