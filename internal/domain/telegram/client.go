package telegram

import "gopkg.in/telebot.v3"

// Client sends messages to a Telegram chat. The chat may be a user or a group.
type Client interface {
	SendMessage(chatID int64, text string, options *telebot.SendOptions) error
}
