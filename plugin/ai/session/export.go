package session

import (
	"encoding/json"

	"github.com/pkg/errors"

	aierrors "github.com/hrygo/tempo/internal/errors"
)

// ThreadExport bundles a thread with its messages in append order.
type ThreadExport struct {
	Thread   *Thread    `json:"thread"`
	Messages []*Message `json:"messages"`
}

// SessionExport is a complete, self-contained dump of one session.
// Re-importing it into an empty store reproduces identical message
// ordering and counts.
type SessionExport struct {
	Session *Session        `json:"session"`
	Threads []*ThreadExport `json:"threads"`
}

// ExportSession snapshots a session with all threads and messages.
// Returns nil when the session is unknown.
func (s *Store) ExportSession(sessionID string) *SessionExport {
	sess := s.GetSession(sessionID)
	if sess == nil {
		return nil
	}

	export := &SessionExport{Session: sess}
	for _, thread := range s.ListThreads(sessionID) {
		export.Threads = append(export.Threads, &ThreadExport{
			Thread:   thread,
			Messages: s.ListMessages(thread.ID),
		})
	}
	return export
}

// ImportSession loads an exported session into the store, preserving ids,
// timestamps, ordering and derived counters. Fails when a session with the
// same id already exists.
func (s *Store) ImportSession(export *SessionExport) error {
	if export == nil || export.Session == nil {
		return aierrors.InvalidArgument("export is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[export.Session.ID]; ok {
		return aierrors.InvalidArgument("session already exists: " + export.Session.ID)
	}

	sess := export.Session.snapshot()
	s.sessions[sess.ID] = sess

	count := 0
	for _, te := range export.Threads {
		thread := te.Thread.snapshot()
		thread.MessageIDs = thread.MessageIDs[:0]
		for _, msg := range te.Messages {
			m := msg.snapshot()
			s.msgMu.Lock()
			s.messages[m.ID] = m
			s.msgMu.Unlock()
			thread.MessageIDs = append(thread.MessageIDs, m.ID)
			count++
		}
		s.threads[thread.ID] = thread
	}

	// Derived counter must match the live message count.
	sess.MessageCount = count
	return nil
}

// MarshalExport serializes an export for external storage.
func MarshalExport(export *SessionExport) ([]byte, error) {
	data, err := json.Marshal(export)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal session export")
	}
	return data, nil
}

// UnmarshalExport deserializes an export produced by MarshalExport.
func UnmarshalExport(data []byte) (*SessionExport, error) {
	var export SessionExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal session export")
	}
	return &export, nil
}
