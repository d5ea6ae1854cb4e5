package records

import (
	"context"
	"sync"

	"alertpipe/internal/types"
)

// Compile-time assertion that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store used by tests and local development.
// Safe for concurrent use.
type MemoryStore struct {
	mu            sync.RWMutex
	checks        map[string]*types.Check
	states        map[string]*types.CheckState
	contacts      map[string]*types.Contact
	checkContacts map[string][]string // check id -> contact ids
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		checks:        make(map[string]*types.Check),
		states:        make(map[string]*types.CheckState),
		contacts:      make(map[string]*types.Contact),
		checkContacts: make(map[string][]string),
	}
}

// PutCheck stores a check.
func (s *MemoryStore) PutCheck(c *types.Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[c.ID] = c
}

// PutState stores a check state.
func (s *MemoryStore) PutState(cs *types.CheckState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[cs.ID] = cs
}

// PutContact stores a contact.
func (s *MemoryStore) PutContact(c *types.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[c.ID] = c
}

// Subscribe links a contact to a check so ContactsForCheck returns it.
func (s *MemoryStore) Subscribe(checkID, contactID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkContacts[checkID] = append(s.checkContacts[checkID], contactID)
}

// CheckByID implements Store.
func (s *MemoryStore) CheckByID(_ context.Context, id string) (*types.Check, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.checks[id]
	if !ok {
		return nil, notFoundCheck(id)
	}
	return c, nil
}

// StateByID implements Store.
func (s *MemoryStore) StateByID(_ context.Context, id string) (*types.CheckState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.states[id]
	if !ok {
		return nil, notFoundState(id)
	}
	return cs, nil
}

// ContactsForCheck implements Store.
func (s *MemoryStore) ContactsForCheck(_ context.Context, checkID string) ([]*types.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.Contact
	for _, id := range s.checkContacts[checkID] {
		if c, ok := s.contacts[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}
