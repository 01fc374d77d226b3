package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/oshokin/usage-alarms/internal/domain/alarm"
	"github.com/oshokin/usage-alarms/internal/logger"
)

// ErrEmptyChat is returned when a Telegram notifier has no chat to write to.
var ErrEmptyChat = errors.New("telegram chat id is not set")

// BotAPI is the part of the Telegram bot client used to deliver messages.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts one message per batch to a chat.
type Telegram struct {
	bot    BotAPI
	chatID int64
}

// NewTelegram creates a Telegram notifier writing to chatID through bot.
func NewTelegram(bot BotAPI, chatID int64) (*Telegram, error) {
	if chatID == 0 {
		return nil, ErrEmptyChat
	}

	return &Telegram{bot: bot, chatID: chatID}, nil
}

// NewTelegramBot authenticates token against the Bot API at endpoint, which
// must contain the two %s verbs of tgbotapi.APIEndpoint.
func NewTelegramBot(token, endpoint string, client *http.Client) (*tgbotapi.BotAPI, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	if client == nil {
		client = new(http.Client)
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return bot, nil
}

// Notify sends the transitions of the batch followed by the alarms that
// stay ON.
func (t *Telegram) Notify(ctx context.Context, batch Batch) error {
	logger.InfoKV(ctx, "Sending alarms to Telegram", "chat_id", t.chatID)

	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, FormatText(batch))); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	return nil
}

// FormatText renders a batch as plain text, one line per alarm.
func FormatText(batch Batch) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Railway alarms for service %s\n", batch.ServiceID)

	for _, state := range batch.Changed {
		fmt.Fprintf(&b, "%s switched %s\n", state.Kind, onOff(state.On))
	}

	var still []string

	for _, state := range batch.Merged() {
		if state.On && !changed(batch, state) {
			still = append(still, state.Kind.String())
		}
	}

	if len(still) > 0 {
		fmt.Fprintf(&b, "Still ON: %s\n", strings.Join(still, ", "))
	}

	return strings.TrimRight(b.String(), "\n")
}

func onOff(on bool) string {
	if on {
		return "ON"
	}

	return "OFF"
}

func changed(batch Batch, state alarm.State) bool {
	return slices.ContainsFunc(batch.Changed, func(c alarm.State) bool { return c.Kind == state.Kind })
}
