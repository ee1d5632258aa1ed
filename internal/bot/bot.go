package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	hdlconfig "github.com/homelab-dl/homelab-dl/internal/config"
	"github.com/homelab-dl/homelab-dl/internal/logutils"
)

// Service is the outbound chat surface the pipeline needs: send a message,
// send one returning its identifier, and edit by identifier.
type Service interface {
	SendMessage(chatID int64, text string)
	SendMessageReturningID(chatID int64, text string) (int, error)
	EditMessage(chatID int64, messageID int, text string) error
}

type Bot struct {
	Api *tgbotapi.BotAPI
}

var _ Service = (*Bot)(nil)

func InitBot(config *hdlconfig.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		logutils.Log.WithError(err).Error("Error creating bot")
		return nil, fmt.Errorf("error creating bot: %w", err)
	}
	logutils.Log.Infof("Authorized on account %s", api.Self.UserName)
	return &Bot{Api: api}, nil
}

func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.Api.Send(msg); err != nil {
		logutils.Log.WithError(err).Errorf("Message not sent: %s", text)
	}
}

func (b *Bot) SendMessageReturningID(chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	sent, err := b.Api.Send(msg)
	if err != nil {
		logutils.Log.WithError(err).Errorf("Message not sent: %s", text)
		return 0, err
	}
	return sent.MessageID, nil
}

func (b *Bot) EditMessage(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := b.Api.Request(edit); err != nil {
		logutils.Log.WithError(err).Debugf("Message %d not edited", messageID)
		return err
	}
	return nil
}
