// Package session is the client's persisted key/value state: login session,
// in-progress and committed selections, and the scan history. It is the Go
// rendition of the browser client's localStorage, backed by badger so a
// process restart restores the operator's place.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"scanflow/internal/models"
)

// Storage keys. These match the names the backend's web frontend keeps in
// localStorage, so state reads the same across both clients.
const (
	keyLoggedIn       = "isLoggedIn"
	keyUsername       = "username"
	keyUserID         = "userId"
	keyUserInfo       = "userInfo"
	keyLoginTime      = "loginTime"
	keyToken          = "token"
	keySelectionState = "processSelectionData"
	keyCommitted      = "currentSelectionData"
	keyScanHistory    = "scanHistory"
)

// allKeys is the clear-all set. Clear must remove derived selection state
// too, never just the login keys.
var allKeys = []string{
	keyLoggedIn, keyUsername, keyUserID, keyUserInfo, keyLoginTime,
	keyToken, keySelectionState, keyCommitted, keyScanHistory,
}

// ErrNotFound is returned when a requested value has never been stored.
var ErrNotFound = errors.New("session: value not found")

// Store is the badger-backed persistence layer shared by all flows.
type Store struct {
	db *badger.DB
}

// Open opens (creating if needed) the store under dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store that lives only for the process. Used by tests
// and by one-shot commands that must not touch the operator's state.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory session store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) set(txn *badger.Txn, key string, value []byte) error {
	return txn.Set([]byte(key), value)
}

func (s *Store) getRaw(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return out, err
}

func (s *Store) getJSON(key string, target any) error {
	raw, err := s.getRaw(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

func (s *Store) setJSON(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return s.set(txn, key, raw)
	})
}

// SetSession persists a full login session. All keys are written inside one
// transaction, in a fixed order, so there is no observable partial state.
func (s *Store) SetSession(sess models.Session, info models.UserInfo) error {
	infoRaw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		logged := "false"
		if sess.LoggedIn {
			logged = "true"
		}
		if err := s.set(txn, keyLoggedIn, []byte(logged)); err != nil {
			return err
		}
		if err := s.set(txn, keyUsername, []byte(sess.Username)); err != nil {
			return err
		}
		if err := s.set(txn, keyUserID, []byte(sess.UserID)); err != nil {
			return err
		}
		if err := s.set(txn, keyUserInfo, infoRaw); err != nil {
			return err
		}
		if err := s.set(txn, keyLoginTime, []byte(sess.LoginTime.Format(time.RFC3339))); err != nil {
			return err
		}
		if sess.Token != "" {
			return s.set(txn, keyToken, []byte(sess.Token))
		}
		return nil
	})
}

// Session reads the persisted session. A store that has never seen a login
// returns ErrNotFound.
func (s *Store) Session() (models.Session, error) {
	var sess models.Session
	logged, err := s.getRaw(keyLoggedIn)
	if err != nil {
		return sess, err
	}
	sess.LoggedIn = string(logged) == "true"
	if name, err := s.getRaw(keyUsername); err == nil {
		sess.Username = string(name)
	}
	if id, err := s.getRaw(keyUserID); err == nil {
		sess.UserID = string(id)
	}
	if tok, err := s.getRaw(keyToken); err == nil {
		sess.Token = string(tok)
	}
	if raw, err := s.getRaw(keyLoginTime); err == nil {
		if t, err := time.Parse(time.RFC3339, string(raw)); err == nil {
			sess.LoginTime = t
		}
	}
	return sess, nil
}

// IsValid reports whether a usable session exists: the login flag must be set
// and the identity blob must be present and non-empty. Anything else counts
// as invalid, including half-written or corrupted state.
func (s *Store) IsValid() bool {
	logged, err := s.getRaw(keyLoggedIn)
	if err != nil || string(logged) != "true" {
		return false
	}
	info, err := s.getRaw(keyUserInfo)
	if err != nil || len(info) == 0 {
		return false
	}
	var blob map[string]any
	if err := json.Unmarshal(info, &blob); err != nil {
		return false
	}
	return true
}

// SetToken replaces the stored auth token, for refresh without a full login.
func (s *Store) SetToken(token string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return s.set(txn, keyToken, []byte(token))
	})
}

// Token returns the stored auth token, if any.
func (s *Store) Token() string {
	raw, err := s.getRaw(keyToken)
	if err != nil {
		return ""
	}
	return string(raw)
}

// Clear removes every known key in one transaction. It is deliberately not
// selective: invalid sessions are purged wholesale, never repaired.
func (s *Store) Clear() error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, k := range allKeys {
			if err := txn.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveSelectionState persists the in-progress form.
func (s *Store) SaveSelectionState(st models.SelectionState) error {
	return s.setJSON(keySelectionState, st)
}

// SelectionState returns the persisted in-progress form.
func (s *Store) SelectionState() (models.SelectionState, error) {
	var st models.SelectionState
	err := s.getJSON(keySelectionState, &st)
	return st, err
}

// SaveCommittedSelection persists the validated selection tuple.
func (s *Store) SaveCommittedSelection(sel models.CommittedSelection) error {
	return s.setJSON(keyCommitted, sel)
}

// CommittedSelection returns the validated selection the scan flow needs.
func (s *Store) CommittedSelection() (models.CommittedSelection, error) {
	var sel models.CommittedSelection
	err := s.getJSON(keyCommitted, &sel)
	return sel, err
}

// AppendHistory prepends an entry and truncates to limit, all in one
// transaction. Insertion order, not the entry timestamp, decides eviction.
func (s *Store) AppendHistory(entry models.ScanHistoryEntry, limit int) error {
	if limit <= 0 {
		limit = 1
	}
	return s.db.Update(func(txn *badger.Txn) error {
		var history []models.ScanHistoryEntry
		item, err := txn.Get([]byte(keyScanHistory))
		if err == nil {
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(raw, &history); err != nil {
				// Unreadable history is dropped, not fatal.
				history = nil
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		history = append([]models.ScanHistoryEntry{entry}, history...)
		if len(history) > limit {
			history = history[:limit]
		}
		raw, err := json.Marshal(history)
		if err != nil {
			return err
		}
		return s.set(txn, keyScanHistory, raw)
	})
}

// History returns the stored entries, newest first. A store with no history
// returns an empty slice, not an error.
func (s *Store) History() ([]models.ScanHistoryEntry, error) {
	var history []models.ScanHistoryEntry
	err := s.getJSON(keyScanHistory, &history)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return history, err
}

// ClearHistory wipes the persisted history unconditionally.
func (s *Store) ClearHistory() error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyScanHistory))
	})
}
