// Package telegram pushes noteworthy activity entries to a municipal admin
// chat. It is a pure side-channel: the portal works identically when no
// bot token is configured.
package telegram

import (
	"civicgo/backend/internal/models"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// NotifyService implements activity.Notifier over the Telegram Bot API.
type NotifyService struct {
	BotAPI *tgbotapi.BotAPI
	ChatID int64
}

// NewNotifyService creates a new NotifyService instance.
func NewNotifyService(token string, chatID int64) (*NotifyService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Printf("Authorized admin notifier on account %s", bot.Self.UserName)

	return &NotifyService{BotAPI: bot, ChatID: chatID}, nil
}

// Notify sends one activity entry to the admin chat.
func (n *NotifyService) Notify(entry *models.ActivityEntry) error {
	text := fmt.Sprintf("[%s] %s\n%s", entry.Severity, entry.Action, entry.Details)
	if entry.TargetID != "" {
		text += "\ncomplaint: " + entry.TargetID
	}
	if entry.Actor != "" {
		text += "\nby: " + entry.Actor
	}

	msg := tgbotapi.NewMessage(n.ChatID, text)
	_, err := n.BotAPI.Send(msg)
	return err
}
