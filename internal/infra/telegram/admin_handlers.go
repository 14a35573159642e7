package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"project_cycle_service/internal/app"
	"project_cycle_service/internal/domain/project"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const msgUnauthorized = "Error: you are not allowed to run this command."

// userMessage maps a service error to the text shown to the admin.
func userMessage(err error) string {
	switch {
	case errors.Is(err, app.ErrAdminNotAuthorized):
		return msgUnauthorized
	case errors.Is(err, project.ErrProjectNotFound):
		return "Project not found."
	case errors.Is(err, project.ErrProjectFinalized):
		return "Project is already completed or cancelled."
	case errors.Is(err, app.ErrUnknownProjectFilter):
		return "Unknown filter. Use active, paused, completed, cancelled or all."
	default:
		return fmt.Sprintf("Something went wrong: %s", err.Error())
	}
}

// parseProjectArg expects exactly one argument holding a project UUID.
func parseProjectArg(args []string) (uuid.UUID, error) {
	if len(args) != 1 {
		return uuid.Nil, fmt.Errorf("expected one project id, got %d arguments", len(args))
	}
	return uuid.Parse(strings.TrimSpace(args[0]))
}

// adminHandlers serves the admin commands. Every handler checks the sender first.
type adminHandlers struct {
	ctx     context.Context
	service *app.AdminService
	logger  *logrus.Entry
}

// RegisterAdminHandlers registers handlers for admin commands.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, baseLogger *logrus.Entry) {
	h := &adminHandlers{ctx: ctx, service: adminService, logger: baseLogger}
	b.Handle("/list_projects", h.listProjects)
	b.Handle("/project_stats", h.projectStats)
	b.Handle("/pause_project", h.runState("/pause_project", adminService.PauseProject))
	b.Handle("/resume_project", h.runState("/resume_project", adminService.ResumeProject))
	b.Handle("/advance_cycles", h.advanceCycles)
}

func (h *adminHandlers) listProjects(c telebot.Context) error {
	handlerLogger := h.logger.WithFields(logrus.Fields{
		"handler":   "/list_projects",
		"sender_id": c.Sender().ID,
	})
	if !h.service.IsAdmin(c.Sender().ID) {
		handlerLogger.Warn("Unauthorized access attempt")
		return c.Send(msgUnauthorized)
	}

	filter := "active"
	if args := c.Args(); len(args) > 0 {
		filter = strings.ToLower(args[0])
	}
	handlerLogger = handlerLogger.WithField("filter", filter)

	projects, err := h.service.ListProjects(h.ctx, c.Sender().ID, filter)
	if err != nil {
		if errors.Is(err, app.ErrUnknownProjectFilter) {
			handlerLogger.Warn("Invalid list filter argument")
		} else {
			handlerLogger.WithError(err).Error("Failed to list projects")
		}
		return c.Send(userMessage(err))
	}

	if len(projects) == 0 {
		handlerLogger.Info("No projects found for filter")
		return c.Send(fmt.Sprintf("No %s projects found.", filter))
	}
	handlerLogger.WithField("projects_count", len(projects)).Info("Successfully retrieved project list")

	var response strings.Builder
	response.WriteString(fmt.Sprintf("--- Projects (%s) ---\n", filter))
	for _, p := range projects {
		response.WriteString(formatProjectLine(p))
		response.WriteString("\n")
	}
	return c.Send(response.String())
}

func (h *adminHandlers) projectStats(c telebot.Context) error {
	handlerLogger := h.logger.WithFields(logrus.Fields{
		"handler":   "/project_stats",
		"sender_id": c.Sender().ID,
	})
	if !h.service.IsAdmin(c.Sender().ID) {
		handlerLogger.Warn("Unauthorized access attempt")
		return c.Send(msgUnauthorized)
	}

	projectID, err := parseProjectArg(c.Args())
	if err != nil {
		handlerLogger.WithError(err).Warn("Invalid command format")
		return c.Send("Invalid command format. Use: /project_stats <project-id>")
	}
	handlerLogger = handlerLogger.WithField("project_id", projectID)

	overview, err := h.service.ProjectOverview(h.ctx, c.Sender().ID, projectID)
	if err != nil {
		handlerLogger.WithError(err).Warn("Failed to load project overview")
		return c.Send(userMessage(err))
	}

	if markup := projectActionMarkup(overview.Project); markup != nil {
		return c.Send(formatOverview(overview), markup)
	}
	return c.Send(formatOverview(overview))
}

func (h *adminHandlers) runState(command string, apply func(context.Context, int64, uuid.UUID) (*project.Project, error)) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		handlerLogger := h.logger.WithFields(logrus.Fields{
			"handler":   command,
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")
		if !h.service.IsAdmin(c.Sender().ID) {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		projectID, err := parseProjectArg(c.Args())
		if err != nil {
			handlerLogger.WithError(err).Warn("Invalid command format")
			return c.Send(fmt.Sprintf("Invalid command format. Use: %s <project-id>", command))
		}
		handlerLogger = handlerLogger.WithField("project_id", projectID)

		p, err := apply(h.ctx, c.Sender().ID, projectID)
		if err != nil {
			handlerLogger.WithError(err).Warn("Failed to change project state")
			return c.Send(userMessage(err))
		}
		handlerLogger.WithField("status", p.Status).Info("Project state changed")
		return c.Send(fmt.Sprintf("Project %s is now %s.", p.Name, p.Status))
	}
}

func (h *adminHandlers) advanceCycles(c telebot.Context) error {
	handlerLogger := h.logger.WithFields(logrus.Fields{
		"handler":   "/advance_cycles",
		"sender_id": c.Sender().ID,
	})
	handlerLogger.Info("Command received")
	if !h.service.IsAdmin(c.Sender().ID) {
		handlerLogger.Warn("Unauthorized access attempt")
		return c.Send(msgUnauthorized)
	}

	advanced, err := h.service.AdvanceDueCycles(h.ctx, c.Sender().ID)
	if err != nil {
		handlerLogger.WithError(err).WithField("advanced", advanced).Error("Manual cycle advancement failed")
		return c.Send(fmt.Sprintf("Advanced %d project(s) before failing: %s", advanced, err.Error()))
	}
	handlerLogger.WithField("advanced", advanced).Info("Manual cycle advancement finished")
	return c.Send(fmt.Sprintf("Advanced %d project(s).", advanced))
}
