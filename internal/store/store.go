// Package store holds the canonical ordered collection of scene objects and
// the current selection.
//
// A Store is owned by a single editor session and is not safe for concurrent
// use; callers serialize access through the session's event loop.
package store

import (
	"github.com/rfaga/storyteller/internal/document"
	"github.com/rfaga/storyteller/internal/typeid"
)

// Listener receives the full ordered object sequence after each mutation.
// The slice is shared between listeners and must not be modified.
type Listener func(objects []document.Object)

type Store struct {
	objects   []document.Object
	index     map[string]int // id -> position in objects
	selected  string
	listeners []Listener
	newID     func() string
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the typeid-based id source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func New(opts ...Option) *Store {
	s := &Store{
		index: make(map[string]int),
		newID: typeid.NewObjectID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a listener. Listeners run synchronously, in
// registration order, once per mutating call.
func (s *Store) Subscribe(fn Listener) {
	s.listeners = append(s.listeners, fn)
}

// Add appends an object and returns it as stored. An empty or already-used
// id is replaced with a fresh one.
func (s *Store) Add(obj document.Object) document.Object {
	obj = obj.Normalize()
	if _, taken := s.index[obj.ID]; obj.ID == "" || taken {
		obj.ID = s.freshID()
	}
	s.index[obj.ID] = len(s.objects)
	s.objects = append(s.objects, obj)
	s.notify()
	return obj
}

// Update applies patch to the object with the given id. Unknown ids are a
// no-op and report false.
func (s *Store) Update(id string, patch document.Patch) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.objects[i] = patch.Apply(s.objects[i])
	s.notify()
	return true
}

// Remove deletes the object with the given id, clearing the selection if it
// pointed at it. Unknown ids report false.
func (s *Store) Remove(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.objects = append(s.objects[:i], s.objects[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.objects); j++ {
		s.index[s.objects[j].ID] = j
	}
	if s.selected == id {
		s.selected = ""
	}
	s.notify()
	return true
}

// ReplaceAll swaps the whole sequence and clears the selection. Objects with
// empty or repeated ids are given fresh ones so ids stay unique.
func (s *Store) ReplaceAll(objects []document.Object) {
	next := make([]document.Object, 0, len(objects))
	index := make(map[string]int, len(objects))
	for _, obj := range objects {
		obj = obj.Normalize()
		if _, taken := index[obj.ID]; obj.ID == "" || taken {
			obj.ID = s.freshIDExcluding(index)
		}
		index[obj.ID] = len(next)
		next = append(next, obj)
	}
	s.objects = next
	s.index = index
	s.selected = ""
	s.notify()
}

// Get returns the object with the given id.
func (s *Store) Get(id string) (document.Object, bool) {
	i, ok := s.index[id]
	if !ok {
		return document.Object{}, false
	}
	return s.objects[i], true
}

// All returns a copy of the objects in insertion order.
func (s *Store) All() []document.Object {
	out := make([]document.Object, len(s.objects))
	copy(out, s.objects)
	return out
}

func (s *Store) Len() int { return len(s.objects) }

// Select marks id as the selected object. Unknown ids leave the selection
// unchanged and report false.
func (s *Store) Select(id string) bool {
	if _, ok := s.index[id]; !ok {
		return false
	}
	s.selected = id
	return true
}

// Selected returns the selected object id, if any.
func (s *Store) Selected() (string, bool) {
	return s.selected, s.selected != ""
}

// SelectedObject returns the selected object, if any.
func (s *Store) SelectedObject() (document.Object, bool) {
	if s.selected == "" {
		return document.Object{}, false
	}
	return s.Get(s.selected)
}

func (s *Store) ClearSelection() {
	s.selected = ""
}

func (s *Store) freshID() string {
	return s.freshIDExcluding(s.index)
}

func (s *Store) freshIDExcluding(taken map[string]int) string {
	for {
		id := s.newID()
		if _, ok := taken[id]; !ok {
			return id
		}
	}
}

func (s *Store) notify() {
	if len(s.listeners) == 0 {
		return
	}
	snapshot := s.All()
	for _, fn := range s.listeners {
		fn(snapshot)
	}
}
