package transaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no transaction matches the id for the
// given owner.
var ErrNotFound = errors.New("transaction not found")

// Store persists transactions in a single JSON file. A mutex serializes
// access within this process; multi-writer consistency across processes
// is out of scope.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore returns a store backed by the given file. The file is
// created on first write; a missing file reads as an empty ledger.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{path: path}, nil
}

// List returns the owner's transactions matching the filter, newest
// date first.
func (s *Store) List(ownerID string, filter Filter) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return nil, err
	}

	result := []Transaction{}
	for _, tx := range all {
		if tx.UserID != ownerID {
			continue
		}
		if filter.Category != "" && filter.Category != "All" && tx.Category != filter.Category {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if !matchesDateRange(tx.Date, filter.StartDate, filter.EndDate) {
			continue
		}
		result = append(result, tx)
	}

	sort.SliceStable(result, func(i, j int) bool {
		di, _ := parseDate(result[i].Date)
		dj, _ := parseDate(result[j].Date)
		return di.After(dj)
	})
	return result, nil
}

// Get returns one transaction by id, scoped to the owner.
func (s *Store) Get(ownerID, id string) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return Transaction{}, err
	}
	for _, tx := range all {
		if tx.ID == id && tx.UserID == ownerID {
			return tx, nil
		}
	}
	return Transaction{}, ErrNotFound
}

// Create assigns an id and timestamps and appends the transaction.
func (s *Store) Create(ownerID string, tx Transaction) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return Transaction{}, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	tx.ID = uuid.NewString()
	tx.UserID = ownerID
	tx.CreatedAt = now
	tx.UpdatedAt = now
	if tx.Tags == nil {
		tx.Tags = []string{}
	}

	all = append(all, tx)
	if err := s.writeAll(all); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// Replace overwrites an existing transaction, preserving its identity
// and creation time and bumping the update time.
func (s *Store) Replace(ownerID string, tx Transaction) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return Transaction{}, err
	}

	for i, existing := range all {
		if existing.ID != tx.ID || existing.UserID != ownerID {
			continue
		}
		tx.UserID = existing.UserID
		tx.CreatedAt = existing.CreatedAt
		tx.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
		all[i] = tx
		if err := s.writeAll(all); err != nil {
			return Transaction{}, err
		}
		return tx, nil
	}
	return Transaction{}, ErrNotFound
}

// Delete removes a transaction by id, scoped to the owner.
func (s *Store) Delete(ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return err
	}

	for i, tx := range all {
		if tx.ID == id && tx.UserID == ownerID {
			all = append(all[:i], all[i+1:]...)
			return s.writeAll(all)
		}
	}
	return ErrNotFound
}

func (s *Store) readAll() ([]Transaction, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Transaction{}, nil
		}
		return nil, fmt.Errorf("reading transactions file: %w", err)
	}

	var all []Transaction
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decoding transactions file: %w", err)
	}
	return all, nil
}

func (s *Store) writeAll(all []Transaction) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding transactions: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing transactions file: %w", err)
	}
	return nil
}

func matchesDateRange(date, start, end string) bool {
	if start == "" || end == "" {
		return true
	}
	d, ok := parseDate(date)
	if !ok {
		return false
	}
	from, okFrom := parseDate(start)
	to, okTo := parseDate(end)
	if !okFrom || !okTo {
		return true
	}
	return !d.Before(from) && !d.After(to)
}
