package session

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanflow/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestIsValidRequiresLoginFlagAndIdentity(t *testing.T) {
	s := newTestStore(t)
	assert.False(t, s.IsValid(), "empty store must be invalid")

	err := s.SetSession(models.Session{
		LoggedIn:  true,
		Username:  "operator",
		UserID:    "1",
		LoginTime: time.Now(),
	}, models.UserInfo{ID: 1, Username: "operator"})
	require.NoError(t, err)
	assert.True(t, s.IsValid())
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	loginTime := time.Date(2024, 6, 18, 9, 30, 0, 0, time.UTC)
	err := s.SetSession(models.Session{
		LoggedIn:  true,
		Username:  "operator",
		UserID:    "42",
		Token:     "tok-abc",
		LoginTime: loginTime,
	}, models.UserInfo{ID: 42, Username: "operator", Token: "tok-abc"})
	require.NoError(t, err)

	sess, err := s.Session()
	require.NoError(t, err)
	assert.True(t, sess.LoggedIn)
	assert.Equal(t, "operator", sess.Username)
	assert.Equal(t, "42", sess.UserID)
	assert.Equal(t, "tok-abc", sess.Token)
	assert.True(t, sess.LoginTime.Equal(loginTime))
	assert.Equal(t, "tok-abc", s.Token())

	// A refreshed token replaces the stored one without a new login.
	require.NoError(t, s.SetToken("tok-def"))
	assert.Equal(t, "tok-def", s.Token())
}

func TestClearRemovesEverything(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SetSession(models.Session{LoggedIn: true, Username: "op"},
		models.UserInfo{Username: "op"}))
	require.NoError(t, s.SaveSelectionState(models.SelectionState{ProcessID: "1"}))
	require.NoError(t, s.SaveCommittedSelection(models.CommittedSelection{
		Process: &models.Process{ID: 1, Name: "切割工序"},
	}))
	require.NoError(t, s.AppendHistory(models.ScanHistoryEntry{ID: 1, Code: "99"}, 50))

	require.NoError(t, s.Clear())

	assert.False(t, s.IsValid())
	_, err := s.SelectionState()
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.CommittedSelection()
	assert.ErrorIs(t, err, ErrNotFound)
	history, err := s.History()
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, s.Token())
}

func TestSelectionStateSurvivesReload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	s, err := Open(dir)
	require.NoError(t, err)
	want := models.SelectionState{ProcessID: "3", BatchID: "600x600", ProductID: "101"}
	require.NoError(t, s.SaveSelectionState(want))
	require.NoError(t, s.Close())

	// Fresh open simulates a full process restart before any reference
	// data has loaded.
	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.SelectionState()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCommittedSelectionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	want := models.CommittedSelection{
		Process:   &models.Process{ID: 3, Name: "上釉工序"},
		Batch:     &models.Batch{Size: "600x600", Products: []models.Product{{ID: 101}}},
		Product:   &models.Product{ID: 101, BatchCode: "B2024-101"},
		Timestamp: time.Date(2024, 6, 18, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveCommittedSelection(want))

	got, err := s.CommittedSelection()
	require.NoError(t, err)
	require.NotNil(t, got.Process)
	assert.Equal(t, int64(3), got.Process.ID)
	require.NotNil(t, got.Product)
	assert.Equal(t, "B2024-101", got.Product.BatchCode)
}

func TestHistoryCapEvictsOldestFirst(t *testing.T) {
	s := newTestStore(t)
	const limit = 5
	for i := 1; i <= limit+1; i++ {
		entry := models.ScanHistoryEntry{
			ID:     int64(i),
			Code:   fmt.Sprintf("code-%d", i),
			Method: models.MethodManual,
		}
		require.NoError(t, s.AppendHistory(entry, limit))
	}

	history, err := s.History()
	require.NoError(t, err)
	require.Len(t, history, limit)
	// Newest first; the very first insertion fell off.
	assert.Equal(t, "code-6", history[0].Code)
	assert.Equal(t, "code-2", history[limit-1].Code)
}

func TestClearHistoryOnly(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SetSession(models.Session{LoggedIn: true, Username: "op"},
		models.UserInfo{Username: "op"}))
	require.NoError(t, s.AppendHistory(models.ScanHistoryEntry{ID: 1, Code: "99"}, 50))

	require.NoError(t, s.ClearHistory())

	history, err := s.History()
	require.NoError(t, err)
	assert.Empty(t, history)
	// The session itself is untouched.
	assert.True(t, s.IsValid())
}
