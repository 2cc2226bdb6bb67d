package widget

import (
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/Rrens/chat-widget/internal/domain"
	"github.com/google/uuid"
)

const (
	sessionPrefix    = "session_"
	sessionSuffixLen = 9
)

// State is the open/closed state of the conversation panel
type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// Session is the conversation of one page view. It is owned by exactly one
// Widget, which serializes every access to it.
type Session struct {
	id            string
	messages      []domain.Message
	hasInteracted bool
	state         State
	awaitingReply bool
	now           func() time.Time
}

// NewSession creates a session with a fresh identifier and an empty log
func NewSession() *Session {
	return newSessionAt(time.Now)
}

func newSessionAt(now func() time.Time) *Session {
	return &Session{
		id:  newSessionID(now()),
		now: now,
	}
}

// newSessionID combines a fixed prefix, the creation time in milliseconds
// and a random base36 suffix.
func newSessionID(at time.Time) string {
	u := uuid.New()
	suffix := strconv.FormatUint(binary.BigEndian.Uint64(u[8:]), 36)
	if len(suffix) < sessionSuffixLen {
		suffix = strings.Repeat("0", sessionSuffixLen-len(suffix)) + suffix
	}
	suffix = suffix[len(suffix)-sessionSuffixLen:]
	return sessionPrefix + strconv.FormatInt(at.UnixMilli(), 10) + "_" + suffix
}

// ID returns the session identifier. It never changes.
func (s *Session) ID() string {
	return s.id
}

// Append adds a message to the end of the log and returns it
func (s *Session) Append(role domain.MessageRole, content string) domain.Message {
	msg := domain.Message{
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

// Len returns the number of logged messages
func (s *Session) Len() int {
	return len(s.messages)
}

// Messages returns a copy of the log in chronological order
func (s *Session) Messages() []domain.Message {
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// History returns the log as role/content pairs, which is what gets
// replayed to the chat backend.
func (s *Session) History() []domain.ChatTurn {
	turns := make([]domain.ChatTurn, 0, len(s.messages))
	for _, m := range s.messages {
		turns = append(turns, m.Turn())
	}
	return turns
}

func (s *Session) HasInteracted() bool { return s.hasInteracted }
func (s *Session) State() State        { return s.state }
func (s *Session) AwaitingReply() bool { return s.awaitingReply }
