package session

import (
	"context"

	"github.com/jfperusse/chainlit/internal/domain"
	"github.com/jfperusse/chainlit/internal/fetch"
)

// UserResource is the who-am-I read the sync reacts to.
type UserResource interface {
	Subscribe(fn func(fetch.Snapshot[*domain.User])) func()
	Mutate(ctx context.Context) fetch.Snapshot[*domain.User]
	Get(ctx context.Context) fetch.Snapshot[*domain.User]
}

// Sync keeps a Cell consistent with the outcome of a who-am-I resource.
//
// Only terminal outcomes move the cell: a successful read overwrites it
// with the fetched user, a failed read forces it to Unauthenticated. An
// in-flight re-validation leaves the previous value untouched. Failures
// are absorbed here; consumers observe session state, never fetch errors.
type Sync struct {
	cell        *Cell
	resource    UserResource
	unsubscribe func()
}

// NewSync wires resource to cell and starts reacting immediately.
// Call Close to detach.
func NewSync(cell *Cell, resource UserResource) *Sync {
	s := &Sync{cell: cell, resource: resource}
	s.unsubscribe = resource.Subscribe(s.react)
	return s
}

// User returns the current session user, nil when not authenticated.
func (s *Sync) User() *domain.User {
	return s.cell.User()
}

// State returns the current session state.
func (s *Sync) State() domain.AuthState {
	return s.cell.State()
}

// Refresh forces a re-validation of the who-am-I read. The cell is
// updated through the subscription before Refresh returns.
func (s *Sync) Refresh(ctx context.Context) {
	s.resource.Mutate(ctx)
}

// Prime performs the initial read unless a fresh value is already cached.
func (s *Sync) Prime(ctx context.Context) {
	s.resource.Get(ctx)
}

// Close detaches the sync from the resource. The cell keeps its last state.
func (s *Sync) Close() {
	s.unsubscribe()
}

func (s *Sync) react(snap fetch.Snapshot[*domain.User]) {
	if snap.Loading {
		return
	}

	switch snap.Outcome {
	case fetch.OutcomeSuccess:
		if snap.Data == nil {
			s.cell.Clear()
			return
		}
		s.cell.Set(snap.Data)
	case fetch.OutcomeFailure:
		s.cell.Clear()
	}
}
