package approval

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no review item exists for an id.
	ErrNotFound = errors.New("review item not found")
	// ErrResolved is returned when resolving an item that is no longer pending.
	ErrResolved = errors.New("review item already resolved")
)

var validID = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// validateID rejects ids that could escape the queue directory.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("id must not be empty")
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("id must not contain '..'")
	}
	if !validID.MatchString(id) {
		return fmt.Errorf("id contains invalid characters: only alphanumeric, dash, underscore, and dot are allowed")
	}
	return nil
}

// Status is the lifecycle state of a review item.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusExpired  Status = "expired"
)

// Item is one action waiting on, or resolved by, a human reviewer. It is
// keyed by the receipt id of the decision that asked for review.
type Item struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	AgentID     string     `json:"agent_id,omitempty"`
	SessionID   string     `json:"session_id,omitempty"`
	Tool        string     `json:"tool"`
	Policy      string     `json:"policy"`
	Risk        int        `json:"risk"`
	Explanation string     `json:"explanation,omitempty"`
	Reviewer    string     `json:"reviewer,omitempty"`
	Note        string     `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// Store is a directory of one JSON file per review item.
type Store struct {
	dir string
	ttl time.Duration
	now func() time.Time
	mu  sync.Mutex
}

// NewStore creates a Store under dir. Pending items older than ttl are
// reported as expired; ttl <= 0 disables expiry.
func NewStore(dir string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create review directory: %w", err)
	}
	return &Store{dir: dir, ttl: ttl, now: time.Now}, nil
}

// DefaultDir returns ~/.agentgate/pending.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "agentgate-pending")
	}
	return filepath.Join(home, ".agentgate", "pending")
}

// Enqueue stores a pending item. Re-enqueueing an existing id is a no-op.
func (s *Store) Enqueue(it Item) error {
	if err := validateID(it.ID); err != nil {
		return fmt.Errorf("invalid review id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(it.ID)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	it.Status = StatusPending
	it.CreatedAt = s.now().UTC()
	it.ResolvedAt = nil
	it.ExpiresAt = nil
	if s.ttl > 0 {
		exp := it.CreatedAt.Add(s.ttl)
		it.ExpiresAt = &exp
	}
	return s.writeAtomic(path, it)
}

// Approve resolves a pending item as approved.
func (s *Store) Approve(id, reviewer, note string) (*Item, error) {
	return s.resolve(id, StatusApproved, reviewer, note)
}

// Deny resolves a pending item as denied.
func (s *Store) Deny(id, reviewer, note string) (*Item, error) {
	return s.resolve(id, StatusDenied, reviewer, note)
}

func (s *Store) resolve(id string, to Status, reviewer, note string) (*Item, error) {
	if err := validateID(id); err != nil {
		return nil, fmt.Errorf("invalid review id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	it, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if it.Status != StatusPending {
		return it, fmt.Errorf("review %q is %s: %w", id, it.Status, ErrResolved)
	}

	now := s.now().UTC()
	it.Status = to
	it.Reviewer = reviewer
	it.Note = note
	it.ResolvedAt = &now
	if err := s.writeAtomic(s.path(id), *it); err != nil {
		return nil, err
	}
	return it, nil
}

// Get returns the item for id, marking it expired if its deadline passed.
func (s *Store) Get(id string) (*Item, error) {
	if err := validateID(id); err != nil {
		return nil, fmt.Errorf("invalid review id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

// List returns items with the given status (all when status is empty),
// oldest first.
func (s *Store) List(status Status) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var items []Item
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		it, err := s.load(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		if status == "" || it.Status == status {
			items = append(items, *it)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// Cleanup removes every item file in the store.
func (s *Store) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Prune removes resolved and expired items, keeping those still pending.
// It returns the number of items removed.
func (s *Store) Prune() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		it, err := s.load(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil || it.Status == StatusPending {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// load reads an item and applies expiry. Callers hold mu.
func (s *Store) load(id string) (*Item, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("review %q: %w", id, ErrNotFound)
		}
		return nil, err
	}

	var it Item
	if err := json.Unmarshal(data, &it); err != nil {
		return nil, fmt.Errorf("review %q: %w", id, err)
	}

	if it.Status == StatusPending && it.ExpiresAt != nil && s.now().UTC().After(*it.ExpiresAt) {
		it.Status = StatusExpired
		it.ResolvedAt = it.ExpiresAt
		if err := s.writeAtomic(s.path(id), it); err != nil {
			return nil, err
		}
	}
	return &it, nil
}

func (s *Store) writeAtomic(path string, it Item) error {
	data, err := json.MarshalIndent(it, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
