package session

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/tempo/internal/errors"
)

// Store is the in-process conversation arena. Sessions, threads and
// messages are addressed by generated ids; the thread tree is kept acyclic
// through ParentID references rather than pointers.
//
// Locking: mu guards the session and thread maps, msgMu the message map,
// and each session carries its own mutex for counter updates. Appends to
// different sessions therefore never contend. Structural changes (create,
// delete) take the write lock. Lock order is mu → session.mu → msgMu.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	threads  map[string]*Thread

	msgMu    sync.RWMutex
	messages map[string]*Message

	logger *slog.Logger
}

// NewStore creates an empty conversation store. Constructed once at
// service start and injected; it starts no background work on its own.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		threads:  make(map[string]*Thread),
		messages: make(map[string]*Message),
		logger:   slog.Default(),
	}
}

// CreateSession creates an open session for the user.
func (s *Store) CreateSession(userID, title string) *Session {
	now := time.Now()
	sess := &Session{
		ID:        shortuuid.New(),
		UserID:    userID,
		Title:     title,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess.snapshot()
}

// GetSession returns a snapshot of the session, or nil when unknown.
func (s *Store) GetSession(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot()
}

// ListSessions returns snapshots of the user's sessions, most recently
// updated first.
func (s *Store) ListSessions(userID string) []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Session
	for _, sess := range s.sessions {
		if sess.UserID != userID {
			continue
		}
		sess.mu.Lock()
		result = append(result, sess.snapshot())
		sess.mu.Unlock()
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result
}

// CreateThread creates a thread in the session. parentID may name an
// existing thread in the same session to form a reply tree, or be empty
// for a root thread. The session transitions to active on its first
// thread.
func (s *Store) CreateThread(sessionID, parentID string, meta ThreadMetadata) (*Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, errors.NotFound("session", sessionID)
	}
	if parentID != "" {
		parent, ok := s.threads[parentID]
		if !ok {
			return nil, errors.NotFound("thread", parentID)
		}
		if parent.SessionID != sessionID {
			return nil, errors.InvalidArgument("parent thread belongs to a different session")
		}
	}

	now := time.Now()
	thread := &Thread{
		ID:        shortuuid.New(),
		SessionID: sessionID,
		ParentID:  parentID,
		Metadata:  meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.threads[thread.ID] = thread

	sess.mu.Lock()
	sess.Status = StatusActive
	sess.UpdatedAt = now
	sess.mu.Unlock()

	return thread.snapshot(), nil
}

// GetThread returns a snapshot of the thread, or nil when unknown.
func (s *Store) GetThread(id string) *Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	thread, ok := s.threads[id]
	if !ok {
		return nil
	}
	sess := s.sessions[thread.SessionID]
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return thread.snapshot()
}

// ListThreads returns the session's threads in creation order.
func (s *Store) ListThreads(sessionID string) []*Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Thread
	for _, thread := range s.threads {
		if thread.SessionID == sessionID {
			sess := s.sessions[sessionID]
			sess.mu.Lock()
			result = append(result, thread.snapshot())
			sess.mu.Unlock()
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// AddMessage atomically appends a message to the thread: the message is
// stored, the thread's UpdatedAt advances, and the owning session's
// MessageCount and LastMessageAt are bumped in the same critical section.
func (s *Store) AddMessage(threadID string, role Role, content string, meta *MessageMetadata) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thread, ok := s.threads[threadID]
	if !ok {
		return nil, errors.NotFound("thread", threadID)
	}
	sess := s.sessions[thread.SessionID]

	now := time.Now()
	msg := &Message{
		ID:        shortuuid.New(),
		ThreadID:  threadID,
		Role:      role,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  meta,
	}

	sess.mu.Lock()
	s.msgMu.Lock()
	s.messages[msg.ID] = msg
	s.msgMu.Unlock()
	thread.MessageIDs = append(thread.MessageIDs, msg.ID)
	thread.UpdatedAt = now
	sess.MessageCount++
	sess.LastMessageAt = now
	sess.UpdatedAt = now
	sess.mu.Unlock()

	return msg.snapshot(), nil
}

// GetMessage returns a snapshot of the message, or nil when unknown.
func (s *Store) GetMessage(id string) *Message {
	s.msgMu.RLock()
	defer s.msgMu.RUnlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil
	}
	return msg.snapshot()
}

// ListMessages returns the thread's messages in append order.
func (s *Store) ListMessages(threadID string) []*Message {
	s.mu.RLock()
	thread, ok := s.threads[threadID]
	if !ok {
		s.mu.RUnlock()
		return nil
	}
	sess := s.sessions[thread.SessionID]
	sess.mu.Lock()
	ids := append([]string(nil), thread.MessageIDs...)
	sess.mu.Unlock()
	s.mu.RUnlock()

	s.msgMu.RLock()
	defer s.msgMu.RUnlock()
	result := make([]*Message, 0, len(ids))
	for _, id := range ids {
		if msg, ok := s.messages[id]; ok {
			result = append(result, msg.snapshot())
		}
	}
	return result
}

// UpdateMessage replaces a message's content and metadata, the only
// sanctioned mutation after creation.
func (s *Store) UpdateMessage(messageID, content string, meta *MessageMetadata) (*Message, error) {
	s.msgMu.Lock()
	defer s.msgMu.Unlock()

	msg, ok := s.messages[messageID]
	if !ok {
		return nil, errors.NotFound("message", messageID)
	}
	msg.Content = content
	msg.Metadata = meta
	msg.UpdatedAt = time.Now()
	return msg.snapshot(), nil
}

// DeleteMessage removes a message and decrements the owning session's
// counter. Returns false when the id is unknown.
func (s *Store) DeleteMessage(messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.msgMu.RLock()
	msg, ok := s.messages[messageID]
	s.msgMu.RUnlock()
	if !ok {
		return false
	}

	thread := s.threads[msg.ThreadID]
	sess := s.sessions[thread.SessionID]

	sess.mu.Lock()
	s.msgMu.Lock()
	delete(s.messages, messageID)
	s.msgMu.Unlock()
	for i, id := range thread.MessageIDs {
		if id == messageID {
			thread.MessageIDs = append(thread.MessageIDs[:i], thread.MessageIDs[i+1:]...)
			break
		}
	}
	thread.UpdatedAt = time.Now()
	sess.MessageCount--
	sess.UpdatedAt = time.Now()
	sess.mu.Unlock()

	return true
}

// DeleteThread removes a thread and cascades deletion of its own messages,
// decrementing the session counter by exactly that thread's message count.
// Child threads are re-rooted (their ParentID is cleared), not deleted.
func (s *Store) DeleteThread(threadID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteThreadLocked(threadID)
}

func (s *Store) deleteThreadLocked(threadID string) bool {
	thread, ok := s.threads[threadID]
	if !ok {
		return false
	}
	sess := s.sessions[thread.SessionID]

	sess.mu.Lock()
	s.msgMu.Lock()
	for _, id := range thread.MessageIDs {
		delete(s.messages, id)
	}
	s.msgMu.Unlock()
	sess.MessageCount -= len(thread.MessageIDs)
	sess.UpdatedAt = time.Now()
	sess.mu.Unlock()

	delete(s.threads, threadID)
	for _, child := range s.threads {
		if child.ParentID == threadID {
			child.ParentID = ""
		}
	}
	return true
}

// DeleteSession removes a session and cascades to all its threads and
// their messages. Returns false when the id is unknown.
func (s *Store) DeleteSession(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}

	for id, thread := range s.threads {
		if thread.SessionID != sessionID {
			continue
		}
		s.msgMu.Lock()
		for _, msgID := range thread.MessageIDs {
			delete(s.messages, msgID)
		}
		s.msgMu.Unlock()
		delete(s.threads, id)
	}
	delete(s.sessions, sessionID)
	return true
}

// SearchMessages returns the session's messages whose content contains the
// query, case-insensitively, in stable append order. Read-only.
func (s *Store) SearchMessages(sessionID, query string) []*Message {
	query = strings.ToLower(query)
	var result []*Message
	for _, thread := range s.ListThreads(sessionID) {
		for _, msg := range s.ListMessages(thread.ID) {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				result = append(result, msg)
			}
		}
	}
	return result
}

// MessagesInRange returns the session's messages created in [from, to),
// in stable append order. Read-only.
func (s *Store) MessagesInRange(sessionID string, from, to time.Time) []*Message {
	var result []*Message
	for _, thread := range s.ListThreads(sessionID) {
		for _, msg := range s.ListMessages(thread.ID) {
			if !msg.CreatedAt.Before(from) && msg.CreatedAt.Before(to) {
				result = append(result, msg)
			}
		}
	}
	return result
}

// CleanupIdle deletes sessions whose last activity is older than the
// cutoff. Invoked by the process supervisor on a schedule, never
// spontaneously. Returns the number of sessions removed.
func (s *Store) CleanupIdle(cutoff time.Time) int {
	s.mu.RLock()
	var idle []string
	for id, sess := range s.sessions {
		sess.mu.Lock()
		last := sess.UpdatedAt
		if sess.LastMessageAt.After(last) {
			last = sess.LastMessageAt
		}
		sess.mu.Unlock()
		if last.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, id := range idle {
		if s.DeleteSession(id) {
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("cleaned up idle sessions", "removed", removed, "cutoff", cutoff)
	}
	return removed
}
