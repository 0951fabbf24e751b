package pending

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/ccccccarachen/content-collection-skill/internal/domain"
)

// A conversation accumulates at most this many bound pendings before the
// oldest is dropped.
const maxPerConversation = 32

var bareNumberPattern = regexp.MustCompile(`^\d+$`)

// Correction is the state registered after a successful save: which record
// the confirmation message referred to and the menu it displayed.
type Correction struct {
	RecordID string
	Title    string
	Category string   // category at confirmation time
	Menu     []string // labels in displayed order; a reply of n selects Menu[n-1]
}

// Resolution is the outcome of consuming a pending correction.
type Resolution struct {
	RecordID     string
	Title        string
	FromCategory string
	ToCategory   string
	Menu         []string
}

// Tracker maps numeric replies back to the record they correct. Channels
// with native reply binding register each confirmation under its message
// reference and many pendings coexist per conversation; channels without
// binding register with an empty reference and the newest submission
// supersedes the previous one.
type Tracker struct {
	mu     sync.Mutex
	byConv map[string][]*entry // active pendings, oldest first
	byRef  map[string]*entry   // conv+ref lookup for bound pendings
}

type entry struct {
	conv string
	ref  string
	c    Correction
}

func NewTracker() *Tracker {
	return &Tracker{
		byConv: make(map[string][]*entry),
		byRef:  make(map[string]*entry),
	}
}

// Register records a fresh pending correction. ref is the channel's
// reference for the confirmation message, empty when the channel has no
// reply binding.
func (t *Tracker) Register(conv, ref string, c Correction) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := &entry{conv: conv, ref: ref, c: c}
	if ref == "" {
		for _, old := range t.byConv[conv] {
			if old.ref != "" {
				delete(t.byRef, refKey(conv, old.ref))
			}
		}
		t.byConv[conv] = []*entry{e}
		return
	}

	t.byRef[refKey(conv, ref)] = e
	list := append(t.byConv[conv], e)
	if len(list) > maxPerConversation {
		evicted := list[0]
		delete(t.byRef, refKey(conv, evicted.ref))
		list = list[1:]
	}
	t.byConv[conv] = list
}

// Resolve matches a reply against the conversation's pending corrections.
// replyRef carries the replied-to message reference when the channel has
// one; otherwise the most recent pending is the target.
//
// ok reports whether the text addressed a pending at all: false means the
// message is a new submission, not a correction. A valid selection consumes
// the pending before the caller attempts the store update; an out-of-range
// selection returns *domain.InvalidSelectionError and leaves the pending
// active for another attempt.
func (t *Tracker) Resolve(conv, replyRef, text string) (Resolution, bool, error) {
	trimmed := strings.TrimSpace(text)
	if !bareNumberPattern.MatchString(trimmed) {
		return Resolution{}, false, nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return Resolution{}, false, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var e *entry
	if replyRef != "" {
		e = t.byRef[refKey(conv, replyRef)]
		if e == nil {
			// Reply to something that is not an active confirmation.
			return Resolution{}, false, nil
		}
	} else {
		list := t.byConv[conv]
		if len(list) == 0 {
			return Resolution{}, false, nil
		}
		e = list[len(list)-1]
	}

	if n < 1 || n > len(e.c.Menu) {
		return Resolution{}, true, &domain.InvalidSelectionError{Selection: n, MenuLen: len(e.c.Menu)}
	}

	t.remove(e)
	return Resolution{
		RecordID:     e.c.RecordID,
		Title:        e.c.Title,
		FromCategory: e.c.Category,
		ToCategory:   e.c.Menu[n-1],
		Menu:         e.c.Menu,
	}, true, nil
}

func (t *Tracker) remove(e *entry) {
	list := t.byConv[e.conv]
	for i, cand := range list {
		if cand == e {
			t.byConv[e.conv] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(t.byConv[e.conv]) == 0 {
		delete(t.byConv, e.conv)
	}
	if e.ref != "" {
		delete(t.byRef, refKey(e.conv, e.ref))
	}
}

func refKey(conv, ref string) string {
	return conv + "\x00" + ref
}
