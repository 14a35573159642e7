package app

import (
	"context"
	"fmt"

	"project_cycle_service/internal/domain/project"

	"github.com/google/uuid"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")
var ErrUnknownProjectFilter = fmt.Errorf("unknown project status filter")

// CycleOperator is the part of CycleManager exposed to administrators.
type CycleOperator interface {
	CheckAndAdvanceCycles(ctx context.Context) (int, error)
	PauseProject(ctx context.Context, projectID uuid.UUID) (*project.Project, error)
	ResumeProject(ctx context.Context, projectID uuid.UUID) (*project.Project, error)
	GetProjectCycleStats(ctx context.Context, projectID uuid.UUID) (*project.CycleStats, error)
	GetProject(ctx context.Context, projectID uuid.UUID) (*project.Project, error)
	ListProjects(ctx context.Context, status project.Status) ([]*project.Project, error)
}

// ProjectOverview pairs a project with its cycle stats for display.
type ProjectOverview struct {
	Project *project.Project
	Stats   *project.CycleStats
}

type AdminService struct {
	cycles          CycleOperator
	adminTelegramID int64
}

func NewAdminService(cycles CycleOperator, adminID int64) *AdminService {
	return &AdminService{
		cycles:          cycles,
		adminTelegramID: adminID,
	}
}

func (s *AdminService) IsAdmin(telegramID int64) bool {
	return telegramID == s.adminTelegramID
}

// PauseProject stops automatic advancement of a project on behalf of an admin.
func (s *AdminService) PauseProject(ctx context.Context, performingAdminID int64, projectID uuid.UUID) (*project.Project, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}
	return s.cycles.PauseProject(ctx, projectID)
}

// ResumeProject re-enables automatic advancement of a project on behalf of an admin.
func (s *AdminService) ResumeProject(ctx context.Context, performingAdminID int64, projectID uuid.UUID) (*project.Project, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}
	return s.cycles.ResumeProject(ctx, projectID)
}

// ProjectOverview loads a project together with its cycle stats.
func (s *AdminService) ProjectOverview(ctx context.Context, performingAdminID int64, projectID uuid.UUID) (*ProjectOverview, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}

	p, err := s.cycles.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	stats, err := s.cycles.GetProjectCycleStats(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &ProjectOverview{Project: p, Stats: stats}, nil
}

// AdvanceDueCycles runs one advancement pass immediately.
func (s *AdminService) AdvanceDueCycles(ctx context.Context, performingAdminID int64) (int, error) {
	if !s.IsAdmin(performingAdminID) {
		return 0, ErrAdminNotAuthorized
	}
	return s.cycles.CheckAndAdvanceCycles(ctx)
}

// ListProjects lists projects filtered by a status name, or all of them for "all".
func (s *AdminService) ListProjects(ctx context.Context, performingAdminID int64, filter string) ([]*project.Project, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}

	var status project.Status
	switch filter {
	case "", "all":
	case string(project.StatusActive), string(project.StatusPaused), string(project.StatusCompleted), string(project.StatusCancelled):
		status = project.Status(filter)
	default:
		return nil, ErrUnknownProjectFilter
	}
	return s.cycles.ListProjects(ctx, status)
}
