// Package slack runs the Slack channel over Socket Mode. Only direct
// messages are collected; Slack sends carry no reply binding, so corrections
// resolve against the conversation's most recent pending.
package slack

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/ccccccarachen/content-collection-skill/internal/bot"
)

const convPrefix = "slack:"

type Adapter struct {
	api        *slackapi.Client
	client     *socketmode.Client
	dispatcher *bot.Dispatcher
}

func New(botToken, appToken string, httpClient *http.Client, dispatcher *bot.Dispatcher) *Adapter {
	api := slackapi.New(botToken,
		slackapi.OptionAppLevelToken(appToken),
		slackapi.OptionHTTPClient(httpClient),
	)
	return &Adapter{
		api:        api,
		client:     socketmode.New(api),
		dispatcher: dispatcher,
	}
}

// Run consumes Socket Mode events until ctx is canceled.
func (a *Adapter) Run(ctx context.Context) error {
	go func() {
		for evt := range a.client.Events {
			switch evt.Type {
			case socketmode.EventTypeConnected:
				log.Println("slack bot connected via Socket Mode")
			case socketmode.EventTypeEventsAPI:
				a.client.Ack(*evt.Request)
				eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				a.handleEventsAPI(ctx, eventsAPIEvent)
			}
		}
	}()
	return a.client.RunContext(ctx)
}

func (a *Adapter) handleEventsAPI(ctx context.Context, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	msg, ok := messageFromEvent(ev)
	if !ok {
		return
	}
	a.dispatcher.Dispatch(ctx, msg, a)
}

// Send implements bot.ChannelMessenger. Slack DMs get no reply binding, so
// the returned reference is always empty.
func (a *Adapter) Send(ctx context.Context, conv, text string) (string, error) {
	if !strings.HasPrefix(conv, convPrefix) {
		return "", fmt.Errorf("not a slack conversation: %s", conv)
	}
	channelID := strings.TrimPrefix(conv, convPrefix)
	_, _, err := a.api.PostMessageContext(ctx, channelID, slackapi.MsgOptionText(text, false))
	if err != nil {
		return "", fmt.Errorf("slack send: %w", err)
	}
	return "", nil
}

// messageFromEvent keeps plain user DMs and drops everything else: channel
// traffic, bot and self messages, and edits/joins (any subtype).
func messageFromEvent(ev *slackevents.MessageEvent) (bot.Message, bool) {
	if ev.ChannelType != "im" {
		return bot.Message{}, false
	}
	if ev.BotID != "" || ev.SubType != "" || ev.User == "" {
		return bot.Message{}, false
	}
	if ev.Text == "" {
		return bot.Message{}, false
	}
	return bot.Message{Conv: convPrefix + ev.Channel, Text: ev.Text}, true
}
