// internal/infra/telegram/client.go
package telegram

import (
	"gopkg.in/telebot.v3"
)

// BotClient implements the domain Client interface on top of a telebot.Bot.
type BotClient struct {
	bot *telebot.Bot
}

func NewBotClient(b *telebot.Bot) *BotClient {
	return &BotClient{bot: b}
}

// SendMessage sends a text message to the given chat.
func (c *BotClient) SendMessage(chatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}
	_, err := c.bot.Send(telebot.ChatID(chatID), text, options)
	return err
}
