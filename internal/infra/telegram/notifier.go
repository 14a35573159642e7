package telegram

import (
	"context"

	"project_cycle_service/internal/domain/project"
	domainTelegram "project_cycle_service/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// ManagerNotifier reports cycle changes to the manager chat.
type ManagerNotifier struct {
	client        domainTelegram.Client
	managerChatID int64
	logger        *logrus.Entry
}

func NewManagerNotifier(client domainTelegram.Client, managerChatID int64, logger logrus.FieldLogger) *ManagerNotifier {
	return &ManagerNotifier{
		client:        client,
		managerChatID: managerChatID,
		logger:        logger.WithField("component", "manager_notifier"),
	}
}

func (n *ManagerNotifier) CycleAdvanced(_ context.Context, p *project.Project, closed, opened *project.Cycle) {
	n.send(p, formatCycleAdvanced(p, closed, opened))
}

func (n *ManagerNotifier) ProjectCompleted(_ context.Context, p *project.Project) {
	n.send(p, formatProjectCompleted(p))
}

func (n *ManagerNotifier) send(p *project.Project, text string) {
	log := n.logger.WithFields(logrus.Fields{"project_id": p.ID, "chat_id": n.managerChatID})
	if n.managerChatID == 0 {
		log.Debug("Manager chat not configured, dropping announcement")
		return
	}
	if err := n.client.SendMessage(n.managerChatID, text, nil); err != nil {
		log.WithError(err).Error("Failed to send announcement to manager")
		return
	}
	log.Debug("Announcement sent to manager")
}
