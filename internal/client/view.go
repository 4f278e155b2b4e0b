package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"workmatch/internal/domain"
)

// DefaultPollInterval is how often an open view re-lists its conversation.
const DefaultPollInterval = 2500 * time.Millisecond

// Entry is one line of the local message list. Pending entries are
// speculative copies of sends that the server has not listed yet.
type Entry struct {
	Message *domain.Message
	TempID  string
	Pending bool
}

// Snapshot is the view's state at one point in time.
type Snapshot struct {
	ConversationID int64
	Entries        []Entry
}

// ConversationView keeps a local copy of one conversation in sync by polling.
// The server is the only source of truth: every successful poll replaces the
// local list wholesale.
type ConversationView struct {
	client        *Client
	participantID int64
	interval      time.Duration
	onUpdate      func(Snapshot)
	log           *zap.Logger

	mu      sync.Mutex
	selfID  int64
	convID  int64
	entries []Entry
	draft   string
	gen     uint64
}

type ViewOption func(*ConversationView)

// WithConversationID seeds the view with a known conversation id so Open
// skips findOrCreate.
func WithConversationID(id int64) ViewOption {
	return func(v *ConversationView) { v.convID = id }
}

// WithSelfID tells the view who the caller is; otherwise Open asks /api/me.
func WithSelfID(id int64) ViewOption {
	return func(v *ConversationView) { v.selfID = id }
}

func WithInterval(d time.Duration) ViewOption {
	return func(v *ConversationView) {
		if d > 0 {
			v.interval = d
		}
	}
}

// WithUpdateHandler registers fn to receive a snapshot after every change.
// fn runs on the goroutine that caused the change.
func WithUpdateHandler(fn func(Snapshot)) ViewOption {
	return func(v *ConversationView) { v.onUpdate = fn }
}

func WithViewLogger(log *zap.Logger) ViewOption {
	return func(v *ConversationView) { v.log = log }
}

// NewConversationView returns a view of the conversation between the
// client's user and participantID. Call Open before Run or Send.
func NewConversationView(c *Client, participantID int64, opts ...ViewOption) *ConversationView {
	v := &ConversationView{
		client:        c,
		participantID: participantID,
		interval:      DefaultPollInterval,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Open resolves the conversation id, loads the history and marks it read.
// findOrCreate is only called when no id is known or the cached id is no
// longer accessible.
func (v *ConversationView) Open(ctx context.Context) error {
	v.mu.Lock()
	selfID, convID := v.selfID, v.convID
	v.mu.Unlock()

	if selfID == 0 {
		me, err := v.client.Me(ctx)
		if err != nil {
			return fmt.Errorf("resolve caller: %w", err)
		}
		v.mu.Lock()
		v.selfID = me.ID
		v.mu.Unlock()
	}

	if convID == 0 {
		if err := v.resolve(ctx); err != nil {
			return err
		}
		return v.refresh(ctx)
	}

	err := v.refresh(ctx)
	switch StatusOf(err) {
	case 0:
		return err
	case http.StatusForbidden, http.StatusNotFound:
		v.log.Debug("cached conversation id rejected, resolving again", zap.Int64("conversation_id", convID))
		if err := v.resolve(ctx); err != nil {
			return err
		}
		return v.refresh(ctx)
	default:
		return err
	}
}

// resolve asks the server for the pair's conversation and adopts its id.
func (v *ConversationView) resolve(ctx context.Context) error {
	conv, _, err := v.client.FindOrCreate(ctx, v.participantID)
	if err != nil {
		return fmt.Errorf("open conversation with %d: %w", v.participantID, err)
	}
	v.mu.Lock()
	if v.convID != conv.ID {
		v.convID = conv.ID
		v.entries = nil
		v.gen++
	}
	v.mu.Unlock()
	return nil
}

// Run polls until ctx is cancelled. A failed poll is logged and the next
// tick supersedes it.
func (v *ConversationView) Run(ctx context.Context) {
	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := v.refresh(ctx); err != nil && ctx.Err() == nil {
				v.log.Debug("poll failed", zap.Int64("conversation_id", v.ConversationID()), zap.Error(err))
			}
		}
	}
}

// Send appends body. The message shows up at once as a pending entry; the
// poll that follows a successful send replaces it with the stored one. On
// failure the pending entry is dropped and body stays as the draft.
func (v *ConversationView) Send(ctx context.Context, body string) error {
	if strings.TrimSpace(body) == "" {
		return domain.ErrEmptyBody
	}
	tempID := uuid.NewString()

	v.mu.Lock()
	if v.convID == 0 {
		v.mu.Unlock()
		return fmt.Errorf("conversation is not open: %w", domain.ErrInvalidInput)
	}
	convID := v.convID
	v.draft = body
	v.gen++
	entries := make([]Entry, len(v.entries), len(v.entries)+1)
	copy(entries, v.entries)
	v.entries = append(entries, Entry{
		TempID:  tempID,
		Pending: true,
		Message: &domain.Message{
			ConversationID: convID,
			SenderID:       v.selfID,
			Body:           body,
			CreatedAt:      time.Now().UTC(),
			ReadBy:         []int64{v.selfID},
		},
	})
	snap := v.snapshotLocked()
	v.mu.Unlock()
	v.notify(snap)

	if _, err := v.client.Send(ctx, convID, body, tempID); err != nil {
		v.mu.Lock()
		v.dropLocked(tempID)
		snap := v.snapshotLocked()
		v.mu.Unlock()
		v.notify(snap)
		return err
	}

	v.mu.Lock()
	if v.draft == body {
		v.draft = ""
	}
	v.mu.Unlock()

	if err := v.refresh(ctx); err != nil {
		v.log.Debug("poll after send failed", zap.Int64("conversation_id", convID), zap.Error(err))
	}
	return nil
}

// refresh lists the conversation and replaces the local entries. A result
// that was overtaken by a newer poll, a send or an id change is discarded.
func (v *ConversationView) refresh(ctx context.Context) error {
	v.mu.Lock()
	v.gen++
	gen, convID := v.gen, v.convID
	v.mu.Unlock()

	msgs, err := v.client.Messages(ctx, convID, 0, 0)
	if err != nil {
		return err
	}

	v.mu.Lock()
	if gen != v.gen || convID != v.convID {
		v.mu.Unlock()
		return nil
	}
	entries := make([]Entry, 0, len(msgs))
	unread := false
	for _, m := range msgs {
		entries = append(entries, Entry{Message: m})
		if m.SenderID != v.selfID && !m.IsReadBy(v.selfID) {
			unread = true
		}
	}
	v.entries = entries
	snap := v.snapshotLocked()
	v.mu.Unlock()
	v.notify(snap)

	if unread {
		if _, err := v.client.MarkRead(ctx, convID); err != nil {
			v.log.Debug("mark read failed", zap.Int64("conversation_id", convID), zap.Error(err))
		}
	}
	return nil
}

func (v *ConversationView) dropLocked(tempID string) {
	kept := make([]Entry, 0, len(v.entries))
	for _, e := range v.entries {
		if e.TempID != tempID {
			kept = append(kept, e)
		}
	}
	v.entries = kept
}

func (v *ConversationView) snapshotLocked() Snapshot {
	entries := make([]Entry, len(v.entries))
	copy(entries, v.entries)
	return Snapshot{ConversationID: v.convID, Entries: entries}
}

func (v *ConversationView) notify(s Snapshot) {
	if v.onUpdate != nil {
		v.onUpdate(s)
	}
}

// Snapshot returns a copy of the current state.
func (v *ConversationView) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Draft returns the text of the last send that has not gone through.
func (v *ConversationView) Draft() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

func (v *ConversationView) ConversationID() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.convID
}

func (v *ConversationView) ParticipantID() int64 {
	return v.participantID
}
