package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"project_cycle_service/internal/app"
	"project_cycle_service/internal/infra/lock"
	"project_cycle_service/internal/infra/scheduler"
	"project_cycle_service/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/telebot.v3"
)

func newServeCmd() *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the cycle scheduler and the Telegram admin bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, runNow)
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "run one advancement pass right after startup")
	return cmd
}

func serve(ctx context.Context, runNow bool) error {
	rt, err := openRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	mainLogger := rt.logger.WithField("component", "main")

	var bot *telebot.Bot
	var notifier app.CycleNotifier
	if rt.cfg.BotEnabled() {
		bot, err = newBot(rt.cfg.TelegramToken, rt.logger)
		if err != nil {
			return err
		}
		notifier = telegram.NewManagerNotifier(telegram.NewBotClient(bot), rt.cfg.ManagerTelegramID, rt.logger)
	} else {
		mainLogger.Info("TELEGRAM_TOKEN not set, admin bot and announcements disabled")
	}

	manager := rt.cycleManager(notifier)

	cycleScheduler := scheduler.NewCycleScheduler(
		manager,
		lock.NewFileLock(rt.cfg.LockFile),
		rt.logger,
		rt.cfg.CronSpecCycleCheck,
		rt.cfg.CycleCheckTimeout,
	)
	if err := cycleScheduler.Start(); err != nil {
		return err
	}
	if runNow {
		cycleScheduler.TriggerNow()
	}

	if bot != nil {
		adminService := app.NewAdminService(manager, rt.cfg.AdminTelegramID)
		botLogger := rt.logger.WithField("component", "telegram")
		telegram.RegisterBotCommands(bot, adminService, botLogger)
		telegram.RegisterAdminHandlers(ctx, bot, adminService, botLogger)
		telegram.RegisterProjectActionHandlers(ctx, bot, adminService, botLogger)
		mainLogger.Info("Telegram handlers registered")

		go bot.Start()
	}

	mainLogger.Info("Application setup complete. Waiting for shutdown signal...")
	<-ctx.Done()

	mainLogger.Info("Shutting down application...")
	cycleScheduler.Stop()
	if bot != nil {
		bot.Stop()
	}
	mainLogger.Info("Application shut down gracefully.")
	return nil
}

func newBot(token string, logger *logrus.Logger) (*telebot.Bot, error) {
	botLogger := logger.WithField("component", "telebot")
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := botLogger.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{
					"text":      c.Text(),
					"sender_id": c.Sender().ID,
					"chat_id":   c.Chat().ID,
				})
			}
			entry.Error("Telegram handler error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("could not create Telegram bot: %w", err)
	}
	return bot, nil
}
