package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	domain "json-user-service/internal/domain/user"
	pkgerrors "json-user-service/pkg/errors"
)

// errUserNotFound is returned by every lookup that misses.
var errUserNotFound = pkgerrors.NewNotFoundError("user", "User not found")

// document is the on-disk layout: {"users": [...]}.
type document struct {
	Users []domain.User `json:"users"`
}

// Store keeps the whole user collection in memory and mirrors it to a single
// JSON file. Every mutation runs locate, mutate, persist under one lock, and
// the in-memory collection only changes once the file write succeeded.
type Store struct {
	path string
	log  *zap.Logger

	mu       sync.RWMutex
	users    []domain.User
	lastHash uint64 // xxhash of the bytes last read from or written to path
}

// Open loads the collection at path. A missing file yields an empty store;
// the file is created by the first mutation.
func Open(path string, log *zap.Logger) (*Store, error) {
	s := &Store{path: path, log: log, users: []domain.User{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("store file not found, starting empty", zap.String("path", path))
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	users, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load store file %s: %w", path, err)
	}

	s.users = users
	s.lastHash = xxhash.Sum64(data)
	log.Info("store loaded", zap.String("path", path), zap.Int("users", len(users)))
	return s, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// List returns a copy of every user in stored order.
func (s *Store) List(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.User, len(s.users))
	for i, u := range s.users {
		out[i] = u.Clone()
	}
	return out, nil
}

// GetByID returns a copy of the user with id.
func (s *Store) GetByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, errUserNotFound
	}
	u := s.users[i].Clone()
	return &u, nil
}

// Create assigns u the next id (max existing + 1, or 1) and appends it.
func (s *Store) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := u.Clone()
	created.ID = s.nextID()

	next := s.snapshot()
	next = append(next, created)
	if err := s.commit(next); err != nil {
		return nil, err
	}

	s.log.Info("user created in store", zap.Int64("id", created.ID))
	out := created.Clone()
	return &out, nil
}

// Update applies mutate to a copy of the user with id and persists the
// result. The id cannot be changed by mutate. An error from mutate aborts
// the update and is returned as is.
func (s *Store) Update(_ context.Context, id int64, mutate func(u *domain.User) error) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, errUserNotFound
	}

	next := s.snapshot()
	if err := mutate(&next[i]); err != nil {
		return nil, err
	}
	next[i].ID = id

	if err := s.commit(next); err != nil {
		return nil, err
	}

	s.log.Info("user updated in store", zap.Int64("id", id))
	out := next[i].Clone()
	return &out, nil
}

// Delete removes the user with id.
func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return errUserNotFound
	}

	next := s.snapshot()
	next = append(next[:i], next[i+1:]...)
	if err := s.commit(next); err != nil {
		return err
	}

	s.log.Info("user deleted in store", zap.Int64("id", id))
	return nil
}

// Reload re-reads the file when its content differs from what the store last
// read or wrote. It reports whether the in-memory collection was replaced.
// On a parse error the current collection is kept.
func (s *Store) Reload() (bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false, fmt.Errorf("failed to read store file: %w", err)
	}

	hash := xxhash.Sum64(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if hash == s.lastHash {
		return false, nil
	}

	users, err := Decode(data)
	if err != nil {
		return false, fmt.Errorf("failed to parse store file: %w", err)
	}

	s.users = users
	s.lastHash = hash
	s.log.Info("store reloaded from disk", zap.String("path", s.path), zap.Int("users", len(users)))
	return true, nil
}

// commit writes next to disk and, on success, makes it the live collection.
// The caller must hold s.mu for writing.
func (s *Store) commit(next []domain.User) error {
	hash, err := WriteFile(s.path, next)
	if err != nil {
		s.log.Error("failed to persist store", zap.String("path", s.path), zap.Error(err))
		return pkgerrors.NewInternalError("failed to persist store", err)
	}
	s.users = next
	s.lastHash = hash
	return nil
}

func (s *Store) snapshot() []domain.User {
	next := make([]domain.User, len(s.users), len(s.users)+1)
	for i, u := range s.users {
		next[i] = u.Clone()
	}
	return next
}

func (s *Store) indexOf(id int64) int {
	for i := range s.users {
		if s.users[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) nextID() int64 {
	var maxID int64
	for _, u := range s.users {
		maxID = max(maxID, u.ID)
	}
	return maxID + 1
}

// Encode renders users as the store document, indented by two spaces.
func Encode(users []domain.User) ([]byte, error) {
	if users == nil {
		users = []domain.User{}
	}
	return json.MarshalIndent(document{Users: users}, "", "  ")
}

// Decode parses a store document. Ids must be positive and unique.
func Decode(data []byte) ([]domain.User, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid store document: %w", err)
	}

	seen := make(map[int64]struct{}, len(doc.Users))
	for _, u := range doc.Users {
		if u.ID <= 0 {
			return nil, fmt.Errorf("invalid store document: user id %d is not positive", u.ID)
		}
		if _, dup := seen[u.ID]; dup {
			return nil, fmt.Errorf("invalid store document: duplicate user id %d", u.ID)
		}
		seen[u.ID] = struct{}{}
	}

	if doc.Users == nil {
		doc.Users = []domain.User{}
	}
	return doc.Users, nil
}

// WriteFile replaces path with the encoded users. The document is written to
// a temporary file in the same directory and renamed over path. It returns
// the xxhash of the written bytes.
func WriteFile(path string, users []domain.User) (uint64, error) {
	data, err := Encode(users)
	if err != nil {
		return 0, fmt.Errorf("failed to encode users: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return 0, fmt.Errorf("failed to replace store file: %w", err)
	}

	return xxhash.Sum64(data), nil
}
