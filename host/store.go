package host

import "sync"

// Entry is one named value in a MapStore.
type Entry struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// MapStore is an in-memory settings store. It is safe for concurrent use and
// lists names in the order they were first set.
type MapStore struct {
	lock       sync.RWMutex
	params     map[string]float64
	paramOrder []string
	states     map[string]float64
	stateOrder []string
}

// NewMapStore creates an empty store.
func NewMapStore() *MapStore {
	return &MapStore{
		params: make(map[string]float64),
		states: make(map[string]float64),
	}
}

// Parameter returns the parameter value, or 0 if it was never set.
func (s *MapStore) Parameter(name string) float64 {
	v, _ := s.LookupParameter(name)
	return v
}

// LookupParameter returns the parameter value and whether it exists.
func (s *MapStore) LookupParameter(name string) (float64, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	v, ok := s.params[name]

	return v, ok
}

// SetParameter sets a parameter value.
func (s *MapStore) SetParameter(name string, value float64) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.params[name]; !ok {
		s.paramOrder = append(s.paramOrder, name)
	}

	s.params[name] = value
}

// State returns a display state and whether it exists.
func (s *MapStore) State(name string) (float64, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	v, ok := s.states[name]

	return v, ok
}

// SetState sets a display state.
func (s *MapStore) SetState(name string, value float64) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.states[name]; !ok {
		s.stateOrder = append(s.stateOrder, name)
	}

	s.states[name] = value
}

// Parameters returns a snapshot of all parameters.
func (s *MapStore) Parameters() []Entry {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return snapshot(s.paramOrder, s.params)
}

// States returns a snapshot of all display states.
func (s *MapStore) States() []Entry {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return snapshot(s.stateOrder, s.states)
}

func snapshot(order []string, values map[string]float64) []Entry {
	entries := make([]Entry, 0, len(order))
	for _, name := range order {
		entries = append(entries, Entry{Name: name, Value: values[name]})
	}

	return entries
}
