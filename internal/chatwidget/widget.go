// Package chatwidget implements the support chat widget: a small timer-driven
// state machine (idle preview, auto-hide, open/minimized) plus the message log.
package chatwidget

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type State string

const (
	StateClosed    State = "closed"
	StateOpen      State = "open"
	StateMinimized State = "open-minimized"
	StatePreview   State = "preview-shown"
)

const (
	PreviewDelay    = 3000 * time.Millisecond
	PreviewAutoHide = 8000 * time.Millisecond
)

const (
	WelcomeMessage  = "Hi there! I'm the TutorInMinutes assistant. I can help you find the right tutor, answer questions about our services, explain bookings and subject expertise. What would you like to know?"
	FallbackMessage = "I'm having trouble connecting right now. Please try again in a moment, or feel free to browse our tutors directly! 🔄"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrSendInFlight = errors.New("a message is already being sent")
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type Message struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is a copy of the widget state at one point in time.
type Snapshot struct {
	State            State
	Unread           int
	PreviewDismissed bool
	Sending          bool
	Messages         []Message
}

type Option func(*Widget)

func WithClock(c Clock) Option {
	return func(w *Widget) { w.clock = c }
}

func WithLogger(log *logrus.Logger) Option {
	return func(w *Widget) { w.log = log }
}

// WithListener registers fn to receive a snapshot after every change.
// fn is called without the widget lock held.
func WithListener(fn func(Snapshot)) Option {
	return func(w *Widget) { w.listener = fn }
}

// Widget is the chat widget state machine. Safe for concurrent use; timer
// callbacks and sends are serialized by an internal mutex.
type Widget struct {
	clock    Clock
	agent    Agent
	log      *logrus.Logger
	listener func(Snapshot)

	mu               sync.Mutex
	state            State
	previewDismissed bool
	unread           int
	sending          bool
	stopped          bool
	messages         []Message
	nextID           int64

	// gen invalidates callbacks of timers that were cancelled after firing began.
	gen          uint64
	previewTimer Timer
	hideTimer    Timer
}

func New(agent Agent, opts ...Option) *Widget {
	w := &Widget{
		clock: realClock{},
		agent: agent,
		log:   logrus.StandardLogger(),
		state: StateClosed,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.appendLocked(SenderBot, WelcomeMessage)
	return w
}

// Start arms the idle preview timer.
func (w *Widget) Start() {
	w.mu.Lock()
	w.stopped = false
	w.armPreviewLocked()
	w.mu.Unlock()
}

// Stop clears all timers. No timer fires after Stop returns.
func (w *Widget) Stop() {
	w.mu.Lock()
	w.stopped = true
	w.cancelTimersLocked()
	w.mu.Unlock()
}

// Toggle opens a closed widget (or one showing the preview) and closes an open one.
func (w *Widget) Toggle() State {
	w.mu.Lock()
	w.previewDismissed = true
	if w.state == StateOpen || w.state == StateMinimized {
		w.enterClosedLocked()
	} else {
		w.openLocked()
	}
	return w.unlockAndEmit()
}

// ClickPreview opens the widget from the preview bubble.
func (w *Widget) ClickPreview() State {
	w.mu.Lock()
	if w.state != StatePreview {
		state := w.state
		w.mu.Unlock()
		return state
	}
	w.previewDismissed = true
	w.openLocked()
	return w.unlockAndEmit()
}

// DismissPreview hides the preview for the rest of the session.
func (w *Widget) DismissPreview() State {
	w.mu.Lock()
	w.previewDismissed = true
	if w.state == StatePreview || w.state == StateClosed {
		w.enterClosedLocked()
	}
	return w.unlockAndEmit()
}

// ToggleMinimize switches between open and open-minimized.
func (w *Widget) ToggleMinimize() State {
	w.mu.Lock()
	switch w.state {
	case StateOpen:
		w.state = StateMinimized
	case StateMinimized:
		w.state = StateOpen
	default:
		state := w.state
		w.mu.Unlock()
		return state
	}
	return w.unlockAndEmit()
}

// Close closes an open or minimized widget.
func (w *Widget) Close() State {
	w.mu.Lock()
	if w.state != StateOpen && w.state != StateMinimized {
		state := w.state
		w.mu.Unlock()
		return state
	}
	w.enterClosedLocked()
	return w.unlockAndEmit()
}

// Send appends the user message, asks the agent and appends its reply. A
// failed agent call appends FallbackMessage instead; the error is only logged.
// Only one send may be in flight at a time.
func (w *Widget) Send(ctx context.Context, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, ErrEmptyMessage
	}

	w.mu.Lock()
	if w.sending {
		w.mu.Unlock()
		return Message{}, ErrSendInFlight
	}
	w.sending = true
	w.appendLocked(SenderUser, text)
	w.unlockAndEmit()

	reply, err := w.agent.Reply(ctx, text)

	w.mu.Lock()
	var msg Message
	if err != nil {
		w.log.Warnf("Failed to get chat agent reply: %+v", err)
		msg = w.appendLocked(SenderBot, FallbackMessage)
	} else {
		msg = w.appendLocked(SenderBot, reply)
		if w.state == StateClosed || w.state == StatePreview {
			w.unread++
		}
	}
	w.sending = false
	w.unlockAndEmit()

	return msg, nil
}

func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Widget) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Widget) openLocked() {
	w.cancelTimersLocked()
	w.state = StateOpen
	w.unread = 0
}

func (w *Widget) enterClosedLocked() {
	w.cancelTimersLocked()
	w.state = StateClosed
	w.armPreviewLocked()
}

func (w *Widget) armPreviewLocked() {
	if w.stopped || w.previewDismissed || w.state != StateClosed || w.previewTimer != nil {
		return
	}
	gen := w.gen
	w.previewTimer = w.clock.AfterFunc(PreviewDelay, func() { w.showPreview(gen) })
}

func (w *Widget) showPreview(gen uint64) {
	w.mu.Lock()
	if gen != w.gen || w.stopped || w.state != StateClosed || w.previewDismissed {
		w.mu.Unlock()
		return
	}
	w.previewTimer = nil
	w.state = StatePreview
	w.hideTimer = w.clock.AfterFunc(PreviewAutoHide, func() { w.hidePreview(gen) })
	w.unlockAndEmit()
}

func (w *Widget) hidePreview(gen uint64) {
	w.mu.Lock()
	if gen != w.gen || w.stopped || w.state != StatePreview {
		w.mu.Unlock()
		return
	}
	w.hideTimer = nil
	w.previewDismissed = true
	w.state = StateClosed
	w.unlockAndEmit()
}

func (w *Widget) cancelTimersLocked() {
	w.gen++
	if w.previewTimer != nil {
		w.previewTimer.Stop()
		w.previewTimer = nil
	}
	if w.hideTimer != nil {
		w.hideTimer.Stop()
		w.hideTimer = nil
	}
}

func (w *Widget) appendLocked(sender Sender, text string) Message {
	w.nextID++
	msg := Message{
		ID:        w.nextID,
		Text:      text,
		Sender:    sender,
		Timestamp: w.clock.Now(),
	}
	w.messages = append(w.messages, msg)
	return msg
}

func (w *Widget) snapshotLocked() Snapshot {
	msgs := make([]Message, len(w.messages))
	copy(msgs, w.messages)
	return Snapshot{
		State:            w.state,
		Unread:           w.unread,
		PreviewDismissed: w.previewDismissed,
		Sending:          w.sending,
		Messages:         msgs,
	}
}

// unlockAndEmit releases w.mu and hands the resulting snapshot to the listener.
func (w *Widget) unlockAndEmit() State {
	snap := w.snapshotLocked()
	w.mu.Unlock()
	if w.listener != nil {
		w.listener(snap)
	}
	return snap.State
}
