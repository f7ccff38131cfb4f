package mcp

import (
	"errors"
	"fmt"
	"sync"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/session"
)

// ErrUnknownSession is returned for ids the registry does not hold, including
// sessions that were evicted.
var ErrUnknownSession = errors.New("unknown session")

// ErrRegistryFull is returned when every held session is busy rebuilding and
// none can be evicted.
var ErrRegistryFull = errors.New("session registry is full")

// Registry is a thread-safe least recently used set of signing sessions.
// Evicted sessions are closed.
type Registry struct {
	mutex    sync.Mutex
	capacity int
	items    map[string]*registryNode
	head     *registryNode // Most recently used
	tail     *registryNode // Least recently used
	opened   int64
	evicted  int64
}

type registryNode struct {
	session *session.Session
	prev    *registryNode
	next    *registryNode
}

// RegistryStats describes the registry.
type RegistryStats struct {
	Size     int   `json:"current_size"`
	Capacity int   `json:"max_capacity"`
	Opened   int64 `json:"opened"`
	Evicted  int64 `json:"evicted"`
}

// NewRegistry creates a registry holding at most capacity sessions.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = 16
	}

	r := &Registry{
		capacity: capacity,
		items:    make(map[string]*registryNode),
	}
	r.head = &registryNode{}
	r.tail = &registryNode{}
	r.head.next = r.tail
	r.tail.prev = r.head
	return r
}

// Add registers s as the most recently used session, evicting the least
// recently used idle session when the registry is full.
func (r *Registry) Add(s *session.Session) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if node, exists := r.items[s.ID]; exists {
		node.session = s
		r.moveToFront(node)
		return nil
	}

	if len(r.items) >= r.capacity && !r.evictIdle() {
		return fmt.Errorf("%w: %d sessions are rebuilding", ErrRegistryFull, len(r.items))
	}

	node := &registryNode{session: s}
	r.addToFront(node)
	r.items[s.ID] = node
	r.opened++
	return nil
}

// Get returns the session with id and marks it as recently used.
func (r *Registry) Get(id string) (*session.Session, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	node, exists := r.items[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	r.moveToFront(node)
	return node.session, nil
}

// Remove closes and forgets the session with id.
func (r *Registry) Remove(id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	node, exists := r.items[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	r.removeNode(node)
	delete(r.items, id)
	node.session.Close()
	return nil
}

// Clear closes every session.
func (r *Registry) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, node := range r.items {
		node.session.Close()
	}
	r.items = make(map[string]*registryNode)
	r.head.next = r.tail
	r.tail.prev = r.head
}

// Len returns the number of held sessions.
func (r *Registry) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.items)
}

// IDs returns the held session ids from most to least recently used.
func (r *Registry) IDs() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ids := make([]string, 0, len(r.items))
	for current := r.head.next; current != r.tail; current = current.next {
		ids = append(ids, current.session.ID)
	}
	return ids
}

// Stats returns registry statistics.
func (r *Registry) Stats() RegistryStats {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return RegistryStats{
		Size:     len(r.items),
		Capacity: r.capacity,
		Opened:   r.opened,
		Evicted:  r.evicted,
	}
}

func (r *Registry) moveToFront(node *registryNode) {
	r.removeNode(node)
	r.addToFront(node)
}

func (r *Registry) addToFront(node *registryNode) {
	node.prev = r.head
	node.next = r.head.next
	r.head.next.prev = node
	r.head.next = node
}

func (r *Registry) removeNode(node *registryNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

// evictIdle drops the least recently used session that is not rebuilding.
func (r *Registry) evictIdle() bool {
	for lru := r.tail.prev; lru != r.head; lru = lru.prev {
		if lru.session.Rebuilding() {
			continue
		}
		r.removeNode(lru)
		delete(r.items, lru.session.ID)
		lru.session.Close()
		r.evicted++
		return true
	}
	return false
}
