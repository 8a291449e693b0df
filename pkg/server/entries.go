package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/harrisonrobin/tarefas/pkg/cache"
)

// Record is one stored entry. Fields are kept as raw JSON so that values a
// client sends come back byte for byte, including fields this server does
// not know about.
type Record map[string]json.RawMessage

// ID returns the record id. Numeric ids are rendered as their literal.
func (r Record) ID() string {
	raw, ok := r["id"]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// Field returns a string field, or "" when absent or not a string.
func (r Record) Field(key string) string {
	var s string
	if raw, ok := r[key]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

var errNotFound = errors.New("entry not found")

// EntryStore keeps the whole entry list under one slot key.
type EntryStore struct {
	mu   sync.Mutex
	slot cache.Slot
	key  string
}

func NewEntryStore(slot cache.Slot, key string) *EntryStore {
	return &EntryStore{slot: slot, key: key}
}

// Init creates an empty list when none exists yet.
func (s *EntryStore) Init() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok, err := s.slot.Get(s.key)
	if err != nil || ok {
		return false, err
	}
	return true, s.writeLocked([]Record{})
}

func (s *EntryStore) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *EntryStore) ReplaceAll(records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(records)
}

func (s *EntryStore) Get(id string) (Record, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.ID() == id {
			return r, nil
		}
	}
	return nil, errNotFound
}

// Merge overwrites the given fields of entry id and returns the result.
func (s *EntryStore) Merge(id string, fields Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	for i, r := range records {
		if r.ID() != id {
			continue
		}
		for k, v := range fields {
			r[k] = v
		}
		records[i] = r
		if err := s.writeLocked(records); err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, errNotFound
}

func (s *EntryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.readLocked()
	if err != nil {
		return err
	}
	kept := records[:0]
	for _, r := range records {
		if r.ID() != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return errNotFound
	}
	return s.writeLocked(kept)
}

func (s *EntryStore) readLocked() ([]Record, error) {
	b, ok, err := s.slot.Get(s.key)
	if err != nil {
		return nil, err
	}
	if !ok || len(b) == 0 {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (s *EntryStore) writeLocked(records []Record) error {
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	return s.slot.Put(s.key, b)
}
