// ABOUTME: Session controller owning connection state, conversation ref and message views
// ABOUTME: Hydration results apply only when still current; stale loads are discarded

package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/2389/agent-scope/internal/chat"
	"github.com/2389/agent-scope/internal/discovery"
	"github.com/2389/agent-scope/internal/history"
)

// eventBuffer is the capacity of the notification channel. Emission
// never blocks; events beyond the buffer are dropped.
const eventBuffer = 16

// MergeStrategy decides how hydrated history and live messages combine
// in Messages.
type MergeStrategy int

const (
	// MergeReplace shows only the live exchange once one exists. This is
	// the default: the live stream is the freshest truth for the open
	// conversation.
	MergeReplace MergeStrategy = iota
	// MergeAppend keeps hydrated history visible beneath the live
	// exchange, de-duplicated by message id with live winning.
	MergeAppend
)

// HistoryLoader hydrates transcripts for server conversations.
type HistoryLoader interface {
	Load(ctx context.Context, ref chat.ConversationRef, opts history.Options) ([]chat.Message, error)
}

// Controller owns one chat session against one gateway. All methods are
// safe for concurrent use; internally a single mutex serializes state,
// mirroring the one-writer model the rest of the console assumes.
type Controller struct {
	loader   HistoryLoader
	feedback FeedbackSender
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	identity *discovery.Identity
	lastErr  error
	baseURL  string
	ref      chat.ConversationRef
	persist  bool
	strategy MergeStrategy
	hydrated []chat.Message
	live     []chat.Message
	loadGen  uint64

	events chan Event
}

// New returns a disconnected controller bound to a fresh ephemeral
// conversation. Persistence starts on and the merge strategy is
// MergeReplace; both have setters for configured overrides. A nil
// logger falls back to slog.Default.
func New(loader HistoryLoader, feedback FeedbackSender, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		loader:   loader,
		feedback: feedback,
		logger:   logger.With("component", "session"),
		state:    StateDisconnected,
		ref:      chat.NewEphemeralRef(),
		persist:  true,
		events:   make(chan Event, eventBuffer),
	}
}

// Events returns the notification channel. Consumers that fall behind
// lose events, never block the session.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// SetMergeStrategy configures how hydrated and live messages combine.
func (c *Controller) SetMergeStrategy(s MergeStrategy) {
	c.mu.Lock()
	c.strategy = s
	c.mu.Unlock()
}

// Snapshot is a consistent view of the session for rendering.
type Snapshot struct {
	State    State
	Identity *discovery.Identity
	Ref      chat.ConversationRef
	Persist  bool
	BaseURL  string
	LastErr  error
}

// Snapshot returns the current session facts under one lock acquisition.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:    c.state,
		Identity: c.identity,
		Ref:      c.ref,
		Persist:  c.persist,
		BaseURL:  c.baseURL,
		LastErr:  c.lastErr,
	}
}

// State returns the connection state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Identity returns the last resolved identity, or nil. Identities are
// immutable; callers may hold the pointer.
func (c *Controller) Identity() *discovery.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Ref returns the conversation the session is bound to.
func (c *Controller) Ref() chat.ConversationRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ref
}

// Persist reports whether exchanges are persisted server-side.
func (c *Controller) Persist() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persist
}

// BeginDiscovery moves the session to Connecting. The previous identity
// stays visible until the probe settles.
func (c *Controller) BeginDiscovery() {
	c.mu.Lock()
	c.state = StateConnecting
	c.lastErr = nil
	c.mu.Unlock()
	c.emit(Event{Kind: EventStateChanged, State: StateConnecting})
}

// CompleteDiscovery moves the session to Connected with the resolved
// identity and the base URL it answered on, and starts a fresh
// ephemeral conversation.
func (c *Controller) CompleteDiscovery(ident *discovery.Identity, baseURL string) {
	c.mu.Lock()
	c.state = StateConnected
	c.identity = ident
	c.baseURL = baseURL
	c.lastErr = nil
	c.resetConversationLocked()
	ref := c.ref
	c.mu.Unlock()

	c.logger.Info("session connected", "agent", ident.Name, "url", baseURL)
	c.emit(Event{Kind: EventStateChanged, State: StateConnected})
	c.emit(Event{Kind: EventConversationChanged, Ref: ref})
}

// FailDiscovery moves the session to Error, keeping whatever identity
// was resolved before.
func (c *Controller) FailDiscovery(err error) {
	c.mu.Lock()
	c.state = StateError
	c.lastErr = err
	c.mu.Unlock()

	c.logger.Warn("discovery failed", "error", err)
	c.emit(Event{Kind: EventStateChanged, State: StateError, Err: err})
}

// ClearConfig drops the configured service entirely: Disconnected, no
// identity, fresh ephemeral conversation.
func (c *Controller) ClearConfig() {
	c.mu.Lock()
	c.state = StateDisconnected
	c.identity = nil
	c.baseURL = ""
	c.lastErr = nil
	c.resetConversationLocked()
	ref := c.ref
	c.mu.Unlock()

	c.emit(Event{Kind: EventStateChanged, State: StateDisconnected})
	c.emit(Event{Kind: EventConversationChanged, Ref: ref})
}

// SelectConversation binds the session to ref and clears both message
// views. For a server ref with persistence on it launches an async
// hydration; the result applies only if the selection is still current
// when it lands.
func (c *Controller) SelectConversation(ctx context.Context, ref chat.ConversationRef) {
	c.mu.Lock()
	c.ref = ref
	c.hydrated = nil
	c.live = nil
	c.loadGen++
	gen := c.loadGen
	opts := history.Options{Persist: c.persist, BaseURL: c.baseURL}
	shouldLoad := c.state == StateConnected && c.persist && ref.IsServer()
	c.mu.Unlock()

	c.emit(Event{Kind: EventConversationChanged, Ref: ref})

	if !shouldLoad {
		return
	}
	go c.loadHistory(ctx, ref, opts, gen)
}

// NewChat starts a fresh ephemeral conversation and clears both views.
func (c *Controller) NewChat() {
	c.mu.Lock()
	c.resetConversationLocked()
	ref := c.ref
	c.mu.Unlock()
	c.emit(Event{Kind: EventConversationChanged, Ref: ref})
}

// SetPersist switches persistence mode. A real switch always starts a
// fresh ephemeral conversation; an ephemeral draft is never migrated
// into a persisted chat or the other way round.
func (c *Controller) SetPersist(on bool) {
	c.mu.Lock()
	if c.persist == on {
		c.mu.Unlock()
		return
	}
	c.persist = on
	c.resetConversationLocked()
	ref := c.ref
	c.mu.Unlock()
	c.emit(Event{Kind: EventConversationChanged, Ref: ref})
}

// AdoptServerConversation binds the session to the gateway-assigned chat
// id announced during a persisted exchange. The live transcript is kept;
// only the identity of the conversation changes.
func (c *Controller) AdoptServerConversation(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	if c.ref.Kind == chat.RefServer && c.ref.ID == id {
		c.mu.Unlock()
		return
	}
	c.ref = chat.ServerRef(id)
	// Any in-flight load belongs to the previous ref.
	c.loadGen++
	ref := c.ref
	c.mu.Unlock()

	c.logger.Debug("adopted server conversation", "chat", id)
	c.emit(Event{Kind: EventConversationChanged, Ref: ref})
}

// HandleConversationRemoved resets to a fresh ephemeral chat when the
// open conversation was deleted through the directory.
func (c *Controller) HandleConversationRemoved(id string) {
	c.mu.Lock()
	if !c.ref.IsServer() || c.ref.ID != id {
		c.mu.Unlock()
		return
	}
	c.resetConversationLocked()
	ref := c.ref
	c.mu.Unlock()

	c.logger.Info("open conversation was deleted, starting fresh", "chat", id)
	c.emit(Event{Kind: EventConversationChanged, Ref: ref})
}

// AppendLive records a message from the live exchange.
func (c *Controller) AppendLive(msg chat.Message) {
	c.mu.Lock()
	c.live = append(c.live, msg)
	c.mu.Unlock()
}

// Messages returns the renderable transcript under the configured merge
// strategy. With no live messages the hydrated history shows as-is;
// once the live exchange exists it supersedes (MergeReplace) or extends
// (MergeAppend) the hydrated view.
func (c *Controller) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.live) == 0 {
		return append([]chat.Message(nil), c.hydrated...)
	}
	if c.strategy == MergeAppend {
		return mergeAppend(c.hydrated, c.live)
	}
	return append([]chat.Message(nil), c.live...)
}

// mergeAppend concatenates hydrated and live, dropping hydrated entries
// whose id reappears live. Messages without ids are never de-duplicated.
func mergeAppend(hydrated, live []chat.Message) []chat.Message {
	liveIDs := make(map[string]bool, len(live))
	for _, m := range live {
		if m.ID != "" {
			liveIDs[m.ID] = true
		}
	}
	out := make([]chat.Message, 0, len(hydrated)+len(live))
	for _, m := range hydrated {
		if m.ID != "" && liveIDs[m.ID] {
			continue
		}
		out = append(out, m)
	}
	return append(out, live...)
}

func (c *Controller) loadHistory(ctx context.Context, ref chat.ConversationRef, opts history.Options, gen uint64) {
	msgs, err := c.loader.Load(ctx, ref, opts)

	c.mu.Lock()
	if gen != c.loadGen || c.ref != ref {
		c.mu.Unlock()
		c.logger.Debug("discarding stale history result", "ref", ref.String())
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("history load failed", "chat", ref.ID, "error", err)
		c.emit(Event{Kind: EventHistoryFailed, Ref: ref, Err: err})
		return
	}
	c.hydrated = msgs
	c.mu.Unlock()

	c.emit(Event{Kind: EventHistoryApplied, Ref: ref})
}

// resetConversationLocked mints a fresh ephemeral ref and clears both
// views. Callers hold c.mu.
func (c *Controller) resetConversationLocked() {
	c.ref = chat.NewEphemeralRef()
	c.hydrated = nil
	c.live = nil
	c.loadGen++
}

func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Debug("dropping session event", "kind", ev.Kind.String())
	}
}
