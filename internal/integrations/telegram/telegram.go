// Package telegram runs the Telegram channel: long-polled updates in,
// dispatcher replies out. Telegram message ids give this channel native
// reply binding for corrections.
package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ccccccarachen/content-collection-skill/internal/bot"
)

const convPrefix = "telegram:"

type Adapter struct {
	api        *tgbotapi.BotAPI
	dispatcher *bot.Dispatcher
}

func New(token string, httpClient *http.Client, dispatcher *bot.Dispatcher) (*Adapter, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &Adapter{api: api, dispatcher: dispatcher}, nil
}

// Run polls for updates until ctx is canceled.
func (a *Adapter) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	// Long-poll hold shorter than the shared HTTP client timeout, so idle
	// polls return a normal empty response instead of a client abort.
	u.Timeout = 25
	updates := a.api.GetUpdatesChan(u)
	log.Printf("telegram bot connected account=%s", a.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			a.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg, ok := messageFromUpdate(update)
			if !ok {
				continue
			}
			a.dispatcher.Dispatch(ctx, msg, a)
		}
	}
}

// Send implements bot.ChannelMessenger. The returned reference is the sent
// message id, which a user reply-to carries back as the binding.
func (a *Adapter) Send(ctx context.Context, conv, text string) (string, error) {
	chatID, err := chatIDFromConv(conv)
	if err != nil {
		return "", err
	}
	sent, err := a.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return "", fmt.Errorf("telegram send: %w", err)
	}
	return strconv.Itoa(sent.MessageID), nil
}

func messageFromUpdate(update tgbotapi.Update) (bot.Message, bool) {
	m := update.Message
	if m == nil || m.Text == "" {
		return bot.Message{}, false
	}
	msg := bot.Message{
		Conv: convKey(m.Chat.ID),
		Text: m.Text,
	}
	if m.ReplyToMessage != nil {
		msg.ReplyRef = strconv.Itoa(m.ReplyToMessage.MessageID)
	}
	return msg, true
}

func convKey(chatID int64) string {
	return fmt.Sprintf("%s%d", convPrefix, chatID)
}

func chatIDFromConv(conv string) (int64, error) {
	if !strings.HasPrefix(conv, convPrefix) {
		return 0, fmt.Errorf("not a telegram conversation: %s", conv)
	}
	chatID, err := strconv.ParseInt(strings.TrimPrefix(conv, convPrefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad telegram conversation key %q: %w", conv, err)
	}
	return chatID, nil
}
