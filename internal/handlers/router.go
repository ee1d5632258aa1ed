package handlers

import (
	"context"
	"strings"

	hdlbot "github.com/homelab-dl/homelab-dl/internal/bot"
	hdlconfig "github.com/homelab-dl/homelab-dl/internal/config"
	"github.com/homelab-dl/homelab-dl/internal/logutils"
	hdlutils "github.com/homelab-dl/homelab-dl/internal/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const usageMessage = "Send me a link and I will download it.\n" +
	"Video sites go through yt-dlp, everything else is fetched directly."

// Router dispatches one incoming update. Messages from any chat other than
// the configured one are dropped without a reply. Download links are handed
// off to their own goroutine so the update loop is never held up by metadata
// probes or the transfer itself.
func Router(ctx context.Context, svc hdlbot.Service, cfg *hdlconfig.Config, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	message := update.Message
	chatID := message.Chat.ID

	if chatID != cfg.AllowedChatID {
		logutils.Log.WithField("chat_id", chatID).Warn("Ignoring message from unauthorized chat")
		return
	}

	if message.IsCommand() {
		switch strings.ToLower(message.Command()) {
		case "start", "help":
			svc.SendMessage(chatID, usageMessage)
		default:
			logutils.Log.WithField("command", message.Command()).Warn("Unknown command")
			svc.SendMessage(chatID, "Unknown command. "+usageMessage)
		}
		return
	}

	text := strings.TrimSpace(message.Text)
	if hdlutils.IsValidLink(text) {
		go HandleDownloadLink(ctx, svc, cfg, chatID, text)
		return
	}

	logutils.Log.WithField("text", text).Debug("Message is not a link")
	svc.SendMessage(chatID, hdlutils.DownloadErrorMessage(hdlutils.ErrInvalidURL))
}
