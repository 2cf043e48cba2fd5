package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"tutorinminutes-backend/internal/chatwidget"
)

const chatHelp = `Commands:
  /open        open or close the chat (same as clicking the bubble)
  /preview     click the preview bubble
  /dismiss     dismiss the preview for this session
  /min         minimize or restore the open chat
  /close       close the chat
  /history     print the conversation
  /quit        leave
Anything else is sent to the assistant while the chat is open.`

// Chat drives a chatwidget.Widget from text lines and prints every state
// change, including the ones fired by the preview timers.
type Chat struct {
	widget *chatwidget.Widget

	mu        sync.Mutex
	out       io.Writer
	lastState chatwidget.State
	lastMsgID int64
}

// NewChat builds the widget with a listener that reports transitions to out.
func NewChat(agent chatwidget.Agent, out io.Writer, opts ...chatwidget.Option) *Chat {
	c := &Chat{out: out, lastState: chatwidget.StateClosed}
	opts = append(opts, chatwidget.WithListener(c.onChange))
	c.widget = chatwidget.New(agent, opts...)
	c.lastMsgID = int64(len(c.widget.Snapshot().Messages))
	return c
}

func (c *Chat) Widget() *chatwidget.Widget { return c.widget }

// Run starts the preview timer and reads lines from in until EOF or /quit.
func (c *Chat) Run(ctx context.Context, in io.Reader) error {
	c.widget.Start()
	defer c.widget.Stop()

	c.printf("TutorInMinutes support. Type /open to start chatting, /help for commands.\n")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines, scanErr, _ := readLines(ctx, in)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			if err := c.Exec(ctx, line); err != nil {
				if errors.Is(err, ErrQuit) {
					return nil
				}
				c.printf("error: %v\n", err)
			}
		}
	}
}

// readLines scans in on its own goroutine. The goroutine exits at EOF, or with
// the next line read after ctx is done; done is closed when it has exited.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error, <-chan struct{}) {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
		close(lines)
	}()
	return lines, scanErr, done
}

// Exec runs one line: a slash command or a message for the assistant.
func (c *Chat) Exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	switch strings.ToLower(line) {
	case "/open":
		c.widget.Toggle()
	case "/preview":
		c.widget.ClickPreview()
	case "/dismiss":
		c.widget.DismissPreview()
	case "/min":
		c.widget.ToggleMinimize()
	case "/close":
		c.widget.Close()
	case "/history":
		for _, m := range c.widget.Snapshot().Messages {
			c.printMessage(m)
		}
	case "/help":
		c.printf("%s\n", chatHelp)
	case "/quit", "/exit":
		return ErrQuit
	default:
		if strings.HasPrefix(line, "/") {
			return fmt.Errorf("unknown command %q, try /help", line)
		}
		if c.widget.State() != chatwidget.StateOpen {
			return errors.New("the chat is not open, type /open first")
		}
		if _, err := c.widget.Send(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

// onChange runs on the caller's goroutine or a timer goroutine.
func (c *Chat) onChange(snap chatwidget.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if snap.State != c.lastState {
		c.lastState = snap.State
		fmt.Fprintf(c.out, "[chat] %s\n", describeState(snap))
	}
	for _, m := range snap.Messages {
		if m.ID <= c.lastMsgID {
			continue
		}
		c.lastMsgID = m.ID
		if m.Sender == chatwidget.SenderBot {
			c.writeMessage(m)
		}
	}
}

func describeState(snap chatwidget.Snapshot) string {
	switch snap.State {
	case chatwidget.StatePreview:
		return "TutorBot: Hi! Need help finding a tutor? Click to chat with me! (/preview to open)"
	case chatwidget.StateClosed:
		if snap.Unread > 0 {
			return fmt.Sprintf("closed (%d unread)", snap.Unread)
		}
		return "closed"
	default:
		return string(snap.State)
	}
}

func (c *Chat) printMessage(m chatwidget.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeMessage(m)
}

func (c *Chat) writeMessage(m chatwidget.Message) {
	fmt.Fprintf(c.out, "%s %s: %s\n", m.Timestamp.Format("15:04"), m.Sender, m.Text)
}

func (c *Chat) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
