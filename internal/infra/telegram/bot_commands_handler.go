// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strings"

	"project_cycle_service/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func adminHelpText() string {
	var helpText strings.Builder
	helpText.WriteString("Admin commands:\n\n")
	helpText.WriteString("`/list_projects [active|paused|completed|cancelled|all]`\n - List projects. Shows active ones by default.\n\n")
	helpText.WriteString("`/project_stats <project-id>`\n - Show a project with its cycle statistics.\n\n")
	helpText.WriteString("`/pause_project <project-id>`\n - Stop automatic cycle advancement.\n\n")
	helpText.WriteString("`/resume_project <project-id>`\n - Resume automatic cycle advancement.\n\n")
	helpText.WriteString("`/advance_cycles`\n - Advance every due project now.\n\n")
	helpText.WriteString("`/help`\n - Show this message.")
	return helpText.String()
}

func RegisterBotCommands(b *telebot.Bot, adminService *app.AdminService, baseLogger *logrus.Entry) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if adminService.IsAdmin(senderID) {
			logCtx.Info("User identified as Admin")
			return c.Send(fmt.Sprintf("Hello, %s! Project cycles are under watch. Use /help for the command list.", c.Sender().FirstName))
		}

		logCtx.Info("User is unknown")
		return c.Send("Hello! This bot manages project funding cycles and is available to administrators only.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if adminService.IsAdmin(senderID) {
			return c.Send(adminHelpText(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		}
		return c.Send("No commands are available to you.")
	})
}
