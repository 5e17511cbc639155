// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history provides chat history persistence for questrun.
//
// Histories are grouped into namespaces, one per session identity. Each
// namespace is stored as a single JSON file holding the full ordered list,
// newest first. Every operation takes the namespace explicitly; the store
// has no notion of a "current" session.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/questrun/internal/util"
)

// =============================================================================
// RECORD TYPES
// =============================================================================

// History is one persisted conversation.
type History struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is a single chat turn.
type Message struct {
	Role        string       `json:"role"` // "user" or "assistant"
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is file metadata carried on a message. Only metadata is
// persisted; raw content never reaches the store.
type Attachment struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// =============================================================================
// CONSTANTS AND ERRORS
// =============================================================================

const (
	// TitleMaxRunes is the rune budget for a derived history title.
	TitleMaxRunes = 30

	// MinMessagesToSave is the message-count threshold below which Create
	// declines to persist a conversation. A greeting exchange alone is
	// not worth a history entry.
	MinMessagesToSave = 3

	// DefaultMaxPerNamespace caps histories kept per session.
	DefaultMaxPerNamespace = 100
)

// ErrHistoryNotFound is returned when a history doesn't exist.
// Use errors.Is(err, ErrHistoryNotFound) to check for this error.
var ErrHistoryNotFound = &HistoryError{Message: "history not found"}

// ErrEmptyTitle is returned by RenameTitle for blank titles.
var ErrEmptyTitle = &HistoryError{Message: "title must not be empty"}

// ErrTooFewMessages is returned by Create when the conversation is below
// the save threshold.
var ErrTooFewMessages = &HistoryError{Message: "conversation too short to save"}

// HistoryError represents a history-related error.
// It implements the error interface and can be compared using errors.Is.
type HistoryError struct {
	Message string
}

// Error implements the error interface.
func (e *HistoryError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing history errors.
func (e *HistoryError) Is(target error) bool {
	t, ok := target.(*HistoryError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// STORE
// =============================================================================

// Store handles namespaced history persistence.
type Store struct {
	mu sync.Mutex

	// BaseDir is the directory holding one JSON file per namespace.
	BaseDir string

	// MaxPerNamespace limits stored histories per namespace (0 = unlimited).
	MaxPerNamespace int
}

// NewStore creates a store rooted at the default data directory
// (~/.questrun/histories).
func NewStore() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewStoreWithDir(filepath.Join(homeDir, ".questrun", "histories"))
}

// NewStoreWithDir creates a store with a custom directory.
func NewStoreWithDir(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &Store{
		BaseDir:         baseDir,
		MaxPerNamespace: DefaultMaxPerNamespace,
	}, nil
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// List returns every history in the namespace, newest first. A missing or
// corrupt namespace file reads as an empty list, never an error.
func (s *Store) List(namespace string) ([]History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(namespace), nil
}

// Get retrieves a single history by ID.
func (s *Store) Get(namespace, id string) (*History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range s.load(namespace) {
		if h.ID == id {
			return &h, nil
		}
	}
	return nil, ErrHistoryNotFound
}

// Recent returns up to limit histories ordered by UpdatedAt descending.
// A non-positive limit returns the full list.
func (s *Store) Recent(namespace string, limit int) ([]History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load(namespace)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Namespaces lists every namespace that has a file on disk.
func (s *Store) Namespaces() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return names, nil
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// Create derives a new history from a conversation and prepends it to the
// namespace. Conversations at or below the greeting threshold return
// ErrTooFewMessages. The title comes from the first user message,
// truncated to TitleMaxRunes runes with a trailing ellipsis.
func (s *Store) Create(namespace string, messages []Message) (*History, error) {
	if len(messages) < MinMessagesToSave {
		return nil, ErrTooFewMessages
	}

	now := time.Now()
	h := &History{
		ID:        generateHistoryID(),
		Title:     deriveTitle(messages),
		Messages:  messages,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Upsert(namespace, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Upsert saves a history: an existing ID is replaced in place, a new one
// is prepended. The whole namespace file is rewritten atomically.
func (s *Store) Upsert(namespace string, h *History) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = generateHistoryID()
	}
	h.UpdatedAt = time.Now()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = h.UpdatedAt
	}

	list := s.load(namespace)
	replaced := false
	for i := range list {
		if list[i].ID == h.ID {
			list[i] = *h
			replaced = true
			break
		}
	}
	if !replaced {
		list = append([]History{*h}, list...)
	}

	if s.MaxPerNamespace > 0 && len(list) > s.MaxPerNamespace {
		list = s.trimOldest(list)
	}

	return s.save(namespace, list)
}

// Remove deletes a history by ID.
func (s *Store) Remove(namespace, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load(namespace)
	for i := range list {
		if list[i].ID == id {
			list = append(list[:i], list[i+1:]...)
			return s.save(namespace, list)
		}
	}
	return ErrHistoryNotFound
}

// RenameTitle sets a new title on a history. Whitespace-only titles are
// rejected; the stored title is the trimmed input.
func (s *Store) RenameTitle(namespace, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load(namespace)
	for i := range list {
		if list[i].ID == id {
			list[i].Title = title
			list[i].UpdatedAt = time.Now()
			return s.save(namespace, list)
		}
	}
	return ErrHistoryNotFound
}

// ClearNamespace removes every history in the namespace.
func (s *Store) ClearNamespace(namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.filePath(namespace)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Prune trims the namespace down to max histories, dropping the oldest by
// UpdatedAt. Returns how many were removed.
func (s *Store) Prune(namespace string, max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load(namespace)
	if len(list) <= max {
		return 0, nil
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	removed := len(list) - max
	list = list[:max]
	if err := s.save(namespace, list); err != nil {
		return 0, err
	}
	return removed, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// load reads the namespace file. Missing and corrupt files both yield an
// empty list. Caller holds the lock.
func (s *Store) load(namespace string) []History {
	data, err := os.ReadFile(s.filePath(namespace))
	if err != nil {
		return nil
	}

	var list []History
	if err := json.Unmarshal(data, &list); err != nil {
		// Skip corrupted files
		return nil
	}
	return list
}

// save rewrites the namespace file atomically. Caller holds the lock.
func (s *Store) save(namespace string, list []History) error {
	if list == nil {
		list = []History{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal histories: %w", err)
	}
	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	return util.AtomicWriteFile(s.filePath(namespace), data, 0644)
}

// trimOldest drops the oldest entries by UpdatedAt until the namespace is
// back at its cap.
func (s *Store) trimOldest(list []History) []History {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	return list[:s.MaxPerNamespace]
}

// filePath returns the file path for a namespace.
func (s *Store) filePath(namespace string) string {
	return filepath.Join(s.BaseDir, sanitizeNamespace(namespace)+".json")
}

// sanitizeNamespace keeps namespace-derived filenames inside BaseDir.
func sanitizeNamespace(namespace string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_")
	cleaned := replacer.Replace(namespace)
	if cleaned == "" {
		return "default"
	}
	return cleaned
}

// deriveTitle builds a title from the first user message.
func deriveTitle(messages []Message) string {
	for _, m := range messages {
		if m.Role == "user" && strings.TrimSpace(m.Content) != "" {
			content := strings.ReplaceAll(m.Content, "\n", " ")
			content = strings.ReplaceAll(content, "\r", "")
			return util.TruncateRunesEllipsis(content, TitleMaxRunes)
		}
	}
	return "New conversation"
}

// generateHistoryID creates a unique history ID.
func generateHistoryID() string {
	return "hist_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
