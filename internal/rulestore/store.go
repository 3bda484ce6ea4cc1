package rulestore

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/razvanmacovei/untrack-operator/internal/registry"
)

// Store is a thread-safe in-memory rule store shared between the controller
// and the gateway. Writers rebuild an immutable registry; readers load the
// current one without locking.
type Store struct {
	mu   sync.Mutex
	base []registry.Rule
	sets map[string]*RuleSet // key: "namespace/name"

	current atomic.Pointer[registry.Registry]
}

// New creates a store whose registry starts with the given base rules.
func New(base []registry.Rule) (*Store, error) {
	s := &Store{sets: make(map[string]*RuleSet)}
	if err := s.SetBase(base); err != nil {
		return nil, err
	}
	return s, nil
}

// SetBase replaces the base rules, which always precede resource rules.
func (s *Store) SetBase(rules []registry.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.base
	s.base = append([]registry.Rule(nil), rules...)
	if err := s.rebuildLocked(); err != nil {
		s.base = prev
		return err
	}
	return nil
}

// Set adds or replaces a rule set. The registry is left unchanged if the
// set does not compile.
func (s *Store) Set(set *RuleSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := set.key()
	prev, had := s.sets[key]
	s.sets[key] = set
	if err := s.rebuildLocked(); err != nil {
		if had {
			s.sets[key] = prev
		} else {
			delete(s.sets, key)
		}
		return err
	}
	return nil
}

// Delete removes a rule set. It reports whether the set was present.
func (s *Store) Delete(namespace, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := namespace + "/" + name
	if _, ok := s.sets[key]; !ok {
		return false
	}
	delete(s.sets, key)
	// Removing rules from a set of valid rules cannot fail to compile.
	_ = s.rebuildLocked()
	return true
}

// Registry returns the current registry snapshot.
func (s *Store) Registry() *registry.Registry {
	return s.current.Load()
}

// Count returns the number of rule sets in the store.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sets)
}

// Len returns the number of entries in the current registry.
func (s *Store) Len() int {
	return s.Registry().Len()
}

// rebuildLocked orders base rules first, then rule sets by key.
func (s *Store) rebuildLocked() error {
	keys := make([]string, 0, len(s.sets))
	for k := range s.sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rules := append([]registry.Rule(nil), s.base...)
	for _, k := range keys {
		rules = append(rules, s.sets[k].Rules...)
	}

	reg, err := registry.New(rules)
	if err != nil {
		return fmt.Errorf("rebuild registry: %w", err)
	}
	s.current.Store(reg)
	return nil
}
