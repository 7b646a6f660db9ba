package session

import (
	"sync"

	"github.com/jfperusse/chainlit/internal/domain"
	"github.com/jfperusse/chainlit/internal/metrics"
)

// Cell is the shared holder of the current authenticated user.
//
// It starts in StateUnknown and is mutated only through Set and Clear,
// so a consumer can always distinguish "no read completed yet" from
// "read completed and there is no user". Instances are independent;
// construct one per client session.
type Cell struct {
	mu     sync.RWMutex
	state  domain.AuthState
	user   *domain.User
	subs   map[int]func(domain.AuthState, *domain.User)
	nextID int
}

func NewCell() *Cell {
	return &Cell{
		state: domain.StateUnknown,
		subs:  make(map[int]func(domain.AuthState, *domain.User)),
	}
}

// State returns the current session state.
func (c *Cell) State() domain.AuthState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// User returns the current user, nil unless the state is Authenticated.
func (c *Cell) User() *domain.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// Set overwrites the cell with user and moves it to Authenticated.
func (c *Cell) Set(user *domain.User) {
	c.transition(domain.StateAuthenticated, user)
}

// Clear forces the cell to Unauthenticated, dropping any previous user.
func (c *Cell) Clear() {
	c.transition(domain.StateUnauthenticated, nil)
}

// Subscribe registers fn to run after every transition. The returned
// function removes the subscription; calling it more than once is safe.
// Callbacks run sequentially on the goroutine driving the transition.
func (c *Cell) Subscribe(fn func(domain.AuthState, *domain.User)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *Cell) transition(state domain.AuthState, user *domain.User) {
	c.mu.Lock()
	c.state = state
	c.user = user
	subs := make([]func(domain.AuthState, *domain.User), 0, len(c.subs))
	for id := 0; id < c.nextID; id++ {
		if fn, ok := c.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	c.mu.Unlock()

	metrics.SessionTransitions.WithLabelValues(state.String()).Inc()

	for _, fn := range subs {
		fn(state, user)
	}
}
