// Package session holds the in-process conversation state machine:
// sessions, threads and messages with derived counters kept consistent
// under concurrent mutation.
package session

import (
	"sync"
	"time"

	"github.com/hrygo/tempo/server/service/calendar"
)

// Status tracks the session lifecycle: open on creation, active once the
// first thread exists. Deletion removes the session entirely.
type Status string

const (
	StatusOpen   Status = "open"
	StatusActive Status = "active"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Session owns a set of threads. MessageCount is derived and must equal
// the live sum of messages across its threads at all times.
type Session struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Title         string    `json:"title"`
	Status        Status    `json:"status"`
	MessageCount  int       `json:"messageCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	LastMessageAt time.Time `json:"lastMessageAt"`

	// mu guards this session's counters and its threads' message lists so
	// appends to different sessions never contend.
	mu sync.Mutex
}

// ThreadMetadata carries caller-defined thread attributes.
type ThreadMetadata struct {
	Tags     []string `json:"tags,omitempty"`
	Priority string   `json:"priority,omitempty"`
}

// Thread is an ordered sequence of messages within a session. ParentID
// links reply-chains into a tree; threads are addressed by id, never by
// pointer, so the structure stays acyclic.
type Thread struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"sessionId"`
	ParentID   string         `json:"parentId,omitempty"`
	Collapsed  bool           `json:"collapsed"`
	Metadata   ThreadMetadata `json:"metadata"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	MessageIDs []string       `json:"messageIds"`
}

// MessageMetadata carries the pipeline artifacts attached to an assistant
// reply.
type MessageMetadata struct {
	Events           []calendar.CandidateEvent `json:"events,omitempty"`
	Suggestions      []string                  `json:"suggestions,omitempty"`
	Conflicts        []calendar.Conflict       `json:"conflicts,omitempty"`
	Confidence       float64                   `json:"confidence,omitempty"`
	Model            string                    `json:"model,omitempty"`
	PromptTokens     int                       `json:"promptTokens,omitempty"`
	CompletionTokens int                       `json:"completionTokens,omitempty"`
	Cost             float64                   `json:"cost,omitempty"`
}

// Message belongs to exactly one thread. Content is immutable after
// creation except through UpdateMessage, which also refreshes metadata.
type Message struct {
	ID        string           `json:"id"`
	ThreadID  string           `json:"threadId"`
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

func (s *Session) snapshot() *Session {
	return &Session{
		ID:            s.ID,
		UserID:        s.UserID,
		Title:         s.Title,
		Status:        s.Status,
		MessageCount:  s.MessageCount,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		LastMessageAt: s.LastMessageAt,
	}
}

func (t *Thread) snapshot() *Thread {
	clone := *t
	clone.MessageIDs = append([]string(nil), t.MessageIDs...)
	return &clone
}

func (m *Message) snapshot() *Message {
	clone := *m
	if m.Metadata != nil {
		md := *m.Metadata
		clone.Metadata = &md
	}
	return &clone
}
