package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/tempo/internal/errors"
)

func TestExportImport_RoundTrip(t *testing.T) {
	src := NewStore()
	sessID, rootID := newSessionWithThread(t, src)
	child, err := src.CreateThread(sessID, rootID, ThreadMetadata{Tags: []string{"followup"}})
	require.NoError(t, err)

	_, err = src.AddMessage(rootID, RoleUser, "first", nil)
	require.NoError(t, err)
	_, err = src.AddMessage(rootID, RoleAssistant, "second", &MessageMetadata{Model: "gpt-4o-mini"})
	require.NoError(t, err)
	_, err = src.AddMessage(child.ID, RoleUser, "third", nil)
	require.NoError(t, err)

	export := src.ExportSession(sessID)
	require.NotNil(t, export)

	data, err := MarshalExport(export)
	require.NoError(t, err)
	decoded, err := UnmarshalExport(data)
	require.NoError(t, err)

	dst := NewStore()
	require.NoError(t, dst.ImportSession(decoded))

	sess := dst.GetSession(sessID)
	require.NotNil(t, sess)
	assert.Equal(t, 3, sess.MessageCount)

	threads := dst.ListThreads(sessID)
	require.Len(t, threads, 2)
	assert.Equal(t, rootID, threads[0].ID)
	assert.Equal(t, rootID, threads[1].ParentID)

	messages := dst.ListMessages(rootID)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
	require.NotNil(t, messages[1].Metadata)
	assert.Equal(t, "gpt-4o-mini", messages[1].Metadata.Model)
}

func TestExportSession_Unknown(t *testing.T) {
	assert.Nil(t, NewStore().ExportSession("nope"))
}

func TestImportSession_Validation(t *testing.T) {
	s := NewStore()

	err := s.ImportSession(nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidArgument))

	sessID, _ := newSessionWithThread(t, s)
	export := s.ExportSession(sessID)
	err = s.ImportSession(export)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidArgument))
}
