// Package session keeps per-user conversation state in process memory.
// State is intentionally volatile: a restart returns everyone to the menu.
package session

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

// State names one position in the conversation flow.
type State string

const (
	// StateMenu is the resting state; command and button routing applies.
	StateMenu State = "menu"
	// StateTopUpAmount means the next text is interpreted as a top-up amount.
	StateTopUpAmount State = "topup_amount"
	// StateBroadcastText means the next text or photo becomes a broadcast draft.
	StateBroadcastText State = "broadcast_text"
	// StateBroadcastConfirm means a draft is staged and awaiting yes/no.
	StateBroadcastConfirm State = "broadcast_confirm"
)

// DraftKind tells how a staged broadcast should be delivered.
type DraftKind string

const (
	DraftText  DraftKind = "text"
	DraftPhoto DraftKind = "photo"
)

// Draft is a staged broadcast, held only while in StateBroadcastConfirm.
type Draft struct {
	Kind     DraftKind
	Text     string
	MediaRef string
}

// Session is one user's conversation position.
type Session struct {
	State State
	Draft *Draft
}

type entry struct {
	mu      sync.Mutex
	session Session
}

// Manager owns all sessions. Each user's updates are serialized through a
// dedicated mutex, so state reads and transitions within one Do call are
// atomic with respect to that user's other updates.
type Manager struct {
	mu       sync.Mutex
	entries  map[int64]*entry
	handlers map[State]tele.HandlerFunc
}

func NewManager() *Manager {
	return &Manager{
		entries:  make(map[int64]*entry),
		handlers: make(map[State]tele.HandlerFunc),
	}
}

func (m *Manager) entryFor(userID int64) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[userID]
	if !ok {
		e = &entry{session: Session{State: StateMenu}}
		m.entries[userID] = e
	}
	return e
}

// Do runs fn with exclusive access to the user's session.
func (m *Manager) Do(userID int64, fn func(s *Session) error) error {
	e := m.entryFor(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(&e.session)
}

// State reports the user's current state; absent users are in the menu.
func (m *Manager) State(userID int64) State {
	e := m.entryFor(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.State
}

// SetState moves the user to state and clears any staged draft unless the
// target state carries one.
func (m *Manager) SetState(userID int64, state State) {
	e := m.entryFor(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.State = state
	if state != StateBroadcastConfirm {
		e.session.Draft = nil
	}
}

// StageDraft stores the draft and moves the user to StateBroadcastConfirm.
func (m *Manager) StageDraft(userID int64, draft Draft) {
	e := m.entryFor(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.State = StateBroadcastConfirm
	e.session.Draft = &draft
}

// TakeDraft removes and returns the staged draft, resetting the user to the
// menu. The second return is false when no draft was staged, which happens
// when a stale confirmation button is pressed twice.
func (m *Manager) TakeDraft(userID int64) (Draft, bool) {
	e := m.entryFor(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	draft := e.session.Draft
	e.session.State = StateMenu
	e.session.Draft = nil
	if draft == nil {
		return Draft{}, false
	}
	return *draft, true
}

// Reset returns the user to the menu, dropping any draft.
func (m *Manager) Reset(userID int64) {
	m.SetState(userID, StateMenu)
}

// Handle registers the handler invoked for text/photo updates arriving while
// a user sits in state.
func (m *Manager) Handle(state State, h tele.HandlerFunc) {
	m.handlers[state] = h
}

// InProgress reports whether the user is mid-flow. Menu-state users are
// routed through commands and buttons instead.
func (m *Manager) InProgress(userID int64) bool {
	return m.State(userID) != StateMenu
}

// ManagerHandler dispatches an update to the handler registered for the
// user's current state. An unhandled state resets to the menu so a user can
// never be stranded.
func (m *Manager) ManagerHandler(c tele.Context) error {
	state := m.State(c.Sender().ID)
	if h, ok := m.handlers[state]; ok {
		return h(c)
	}
	m.Reset(c.Sender().ID)
	return nil
}
