// Package bot routes inbound channel messages: free text and URLs become
// classified Notion records, bare-number replies become category corrections
// against the record they refer to.
package bot

import (
	"context"
	"database/sql"
	"log"
	"regexp"
	"strings"
	"sync"

	"github.com/ccccccarachen/content-collection-skill/internal/domain"
	"github.com/ccccccarachen/content-collection-skill/internal/ingest"
	"github.com/ccccccarachen/content-collection-skill/internal/integrations/llm"
	"github.com/ccccccarachen/content-collection-skill/internal/pending"
)

var selectionPattern = regexp.MustCompile(`^\d+$`)

// Message is one inbound channel message, normalized by the adapter that
// received it. ReplyRef carries the channel's reply binding (the message id
// being replied to) when the channel has one, else empty.
type Message struct {
	Conv     string
	Text     string
	ReplyRef string
}

// ChannelMessenger sends a text message to a conversation. The returned
// reference identifies the sent message for reply binding; channels without
// reply binding return "".
type ChannelMessenger interface {
	Send(ctx context.Context, conv, text string) (ref string, err error)
}

// RecordStore is the record store surface the dispatcher needs.
type RecordStore interface {
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, rec domain.Record) (string, error)
	UpdateCategory(ctx context.Context, id, category string) error
}

// Classifier produces a title and category for a submission.
type Classifier interface {
	Classify(ctx context.Context, req llm.Request) (llm.Result, error)
}

// ContextFetcher fetches page context for a URL submission.
type ContextFetcher interface {
	PageContext(ctx context.Context, pageURL string) (string, error)
}

// Dispatcher routes messages and runs the submission and correction flows.
// Messages within one conversation are handled in arrival order; different
// conversations proceed concurrently.
type Dispatcher struct {
	store      RecordStore
	classifier Classifier
	fetcher    ContextFetcher
	pending    *pending.Tracker
	db         *sql.DB
	model      string

	mu    sync.Mutex
	tails map[string]chan struct{}
}

// NewDispatcher wires the dispatcher. A nil db disables the local journal.
func NewDispatcher(store RecordStore, classifier Classifier, fetcher ContextFetcher, db *sql.DB, model string) *Dispatcher {
	return &Dispatcher{
		store:      store,
		classifier: classifier,
		fetcher:    fetcher,
		pending:    pending.NewTracker(),
		db:         db,
		model:      model,
		tails:      make(map[string]chan struct{}),
	}
}

// Dispatch enqueues msg onto its conversation's FIFO chain and returns
// immediately. Call it from the adapter's event loop so arrival order is
// preserved per conversation.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message, ch ChannelMessenger) {
	d.mu.Lock()
	prev := d.tails[msg.Conv]
	done := make(chan struct{})
	d.tails[msg.Conv] = done
	d.mu.Unlock()

	go func() {
		defer func() {
			d.mu.Lock()
			if d.tails[msg.Conv] == done {
				delete(d.tails, msg.Conv)
			}
			d.mu.Unlock()
			close(done)
		}()
		if prev != nil {
			select {
			case <-prev:
			case <-ctx.Done():
				return
			}
		}
		d.HandleMessage(ctx, msg, ch)
	}()
}

// HandleMessage classifies one message as command, correction reply, or new
// submission and runs the matching flow to completion.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg Message, ch ChannelMessenger) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if strings.HasPrefix(text, "/") {
		log.Printf("ignoring command conv=%s text=%q", msg.Conv, text)
		return
	}

	if selectionPattern.MatchString(text) {
		res, ok, err := d.pending.Resolve(msg.Conv, msg.ReplyRef, text)
		if ok {
			if err != nil {
				d.send(ctx, ch, msg.Conv, userErrorMessage(err))
				return
			}
			d.applyCorrection(ctx, msg.Conv, res, ch)
			return
		}
		// No pending to correct: the number is content the user wants saved.
	}

	d.send(ctx, ch, msg.Conv, processingMessage)
	sub := ingest.Extract(text)
	rec, menu, err := d.Submit(ctx, msg.Conv, sub)
	if err != nil {
		log.Printf("submission failed conv=%s: %v", msg.Conv, err)
		d.send(ctx, ch, msg.Conv, userErrorMessage(err))
		return
	}

	ref := d.send(ctx, ch, msg.Conv, confirmationMessage(rec, menu))
	d.pending.Register(msg.Conv, ref, pending.Correction{
		RecordID: rec.ID,
		Title:    rec.Title,
		Category: rec.Category,
		Menu:     menu,
	})
}

func (d *Dispatcher) send(ctx context.Context, ch ChannelMessenger, conv, text string) string {
	ref, err := ch.Send(ctx, conv, text)
	if err != nil {
		log.Printf("send failed conv=%s: %v", conv, err)
		return ""
	}
	return ref
}
