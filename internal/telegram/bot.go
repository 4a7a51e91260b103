// Package telegram adapts the Telegram Bot API to the interfaces the rest of
// the application consumes: [transport.Messenger] for outbound messages,
// [gate.Checker] for channel membership, and [voice.Fetcher] for voice-note
// downloads. It also hosts the update router that drives the menus.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/speakingzone/examiner/internal/config"
	"github.com/speakingzone/examiner/internal/transport"
)

// memberStatuses are the chat-member statuses that count as subscribed.
var memberStatuses = map[string]bool{
	"creator":       true,
	"administrator": true,
	"member":        true,
}

// Bot wraps the Telegram API client.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg config.TelegramConfig
}

// NewBot authenticates against the Bot API.
func NewBot(cfg config.TelegramConfig) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: authenticate: %w", err)
	}
	return &Bot{api: api, cfg: cfg}, nil
}

// Username is the bot's own @username, for logging.
func (b *Bot) Username() string { return b.api.Self.UserName }

// messageRef makes a sent message editable in place.
type messageRef struct {
	api       *tgbotapi.BotAPI
	chatID    int64
	messageID int
}

func (r *messageRef) Edit(_ context.Context, text string) error {
	edit := tgbotapi.NewEditMessageText(r.chatID, r.messageID, text)
	if _, err := r.api.Send(edit); err != nil {
		return fmt.Errorf("telegram: edit message %d: %w", r.messageID, err)
	}
	return nil
}

// SendText implements [transport.Messenger].
func (b *Bot) SendText(_ context.Context, userID int64, text string, kb transport.Keyboard) (transport.MessageRef, error) {
	msg := tgbotapi.NewMessage(userID, text)
	if markup := replyMarkup(kb); markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		return nil, fmt.Errorf("telegram: send text: %w", err)
	}
	return &messageRef{api: b.api, chatID: userID, messageID: sent.MessageID}, nil
}

// SendPhoto implements [transport.Messenger].
func (b *Bot) SendPhoto(_ context.Context, userID int64, path, caption string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("telegram: photo %s: %w", path, err)
	}
	msg := tgbotapi.NewPhoto(userID, tgbotapi.FilePath(path))
	msg.Caption = caption
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("telegram: send photo: %w", err)
	}
	return nil
}

// SendAudioBytes delivers in-memory audio (dictionary pronunciations) as a
// voice message.
func (b *Bot) SendAudioBytes(_ context.Context, userID int64, name string, data []byte, caption string) error {
	msg := tgbotapi.NewVoice(userID, tgbotapi.FileBytes{Name: name, Bytes: data})
	msg.Caption = caption
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("telegram: send audio: %w", err)
	}
	return nil
}

// IsMember implements [gate.Checker]: the user must hold a member-or-better
// status in the gate channel. Lookup by @username first, numeric chat ID as
// fallback.
func (b *Bot) IsMember(_ context.Context, userID int64) (bool, error) {
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: b.cfg.ChannelUsername,
			UserID:             userID,
		},
	})
	if err != nil && b.cfg.ChannelID != 0 {
		member, err = b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
				ChatID: b.cfg.ChannelID,
				UserID: userID,
			},
		})
	}
	if err != nil {
		return false, fmt.Errorf("telegram: get chat member: %w", err)
	}
	return memberStatuses[member.Status], nil
}

// Download implements [voice.Fetcher]: resolves the file ID to a download URL
// and streams it to destPath.
func (b *Bot) Download(ctx context.Context, fileID, destPath string) error {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return fmt.Errorf("telegram: get file %s: %w", fileID, err)
	}

	url := file.Link(b.api.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: download file: status %d", resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("telegram: write %s: %w", destPath, err)
	}
	return nil
}

// UserLabel resolves a human-readable label for a user ID, for admin reports.
func (b *Bot) UserLabel(userID int64) string {
	chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: userID},
	})
	if err != nil {
		return fmt.Sprintf("id:%d", userID)
	}
	switch {
	case chat.UserName != "":
		return "@" + chat.UserName
	case chat.FirstName != "":
		if chat.LastName != "" {
			return chat.FirstName + " " + chat.LastName
		}
		return chat.FirstName
	default:
		return fmt.Sprintf("id:%d", userID)
	}
}

// Updates opens the long-polling update channel.
func (b *Bot) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	return b.api.GetUpdatesChan(u)
}

// StopUpdates closes the long-polling channel.
func (b *Bot) StopUpdates() { b.api.StopReceivingUpdates() }

// AnswerCallback acknowledges an inline-button press so the client stops
// showing its spinner.
func (b *Bot) AnswerCallback(callbackID, text string) {
	cb := tgbotapi.NewCallback(callbackID, text)
	b.api.Request(cb)
}
