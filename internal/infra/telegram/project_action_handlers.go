package telegram

import (
	"context"
	"fmt"

	"project_cycle_service/internal/app"
	"project_cycle_service/internal/domain/project"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// Inline button identifiers; the project id travels as the callback payload.
const (
	uniquePauseProject  = "prj_pause"
	uniqueResumeProject = "prj_resume"
)

var (
	btnPauseProject  = &telebot.InlineButton{Unique: uniquePauseProject}
	btnResumeProject = &telebot.InlineButton{Unique: uniqueResumeProject}
)

// markupEditor swaps the inline keyboard of a sent message. *telebot.Bot implements it.
type markupEditor interface {
	EditReplyMarkup(msg telebot.Editable, markup *telebot.ReplyMarkup) (*telebot.Message, error)
}

// projectActionMarkup offers Pause for active projects and Resume for paused
// ones. Finished projects get no buttons.
func projectActionMarkup(p *project.Project) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	switch p.Status {
	case project.StatusActive:
		markup.Inline(markup.Row(markup.Data("Pause", uniquePauseProject, p.ID.String())))
	case project.StatusPaused:
		markup.Inline(markup.Row(markup.Data("Resume", uniqueResumeProject, p.ID.String())))
	default:
		return nil
	}
	return markup
}

type projectActionHandlers struct {
	ctx     context.Context
	service *app.AdminService
	editor  markupEditor
	logger  *logrus.Entry
}

func RegisterProjectActionHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, baseLogger *logrus.Entry) {
	h := &projectActionHandlers{ctx: ctx, service: adminService, editor: b, logger: baseLogger}
	b.Handle(btnPauseProject, h.handle(uniquePauseProject, adminService.PauseProject))
	b.Handle(btnResumeProject, h.handle(uniqueResumeProject, adminService.ResumeProject))
}

func (h *projectActionHandlers) handle(action string, apply func(context.Context, int64, uuid.UUID) (*project.Project, error)) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		log := h.logger.WithFields(logrus.Fields{
			"callback":  action,
			"sender_id": c.Sender().ID,
		})

		projectID, err := uuid.Parse(c.Data())
		if err != nil {
			log.WithError(err).WithField("payload", c.Data()).Warn("Invalid project id in callback")
			return c.Respond(&telebot.CallbackResponse{Text: "Invalid project id."})
		}
		log = log.WithField("project_id", projectID)

		p, err := apply(h.ctx, c.Sender().ID, projectID)
		if err != nil {
			log.WithError(err).Warn("Project action failed")
			return c.Respond(&telebot.CallbackResponse{Text: userMessage(err), ShowAlert: true})
		}
		log.WithField("status", p.Status).Info("Project action applied")

		if markup := projectActionMarkup(p); markup != nil && c.Message() != nil {
			if _, err := h.editor.EditReplyMarkup(c.Message(), markup); err != nil {
				log.WithError(err).Warn("Failed to refresh inline buttons")
			}
		}
		return c.Respond(&telebot.CallbackResponse{Text: fmt.Sprintf("Project is now %s.", p.Status)})
	}
}
