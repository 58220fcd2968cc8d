package memory

import (
	"context"
	"sync"

	"github.com/dejobratic/centralcompras/internal/orders/ports"
)

// StoreDirectory maps store ids to their state.
type StoreDirectory struct {
	mu     sync.RWMutex
	states map[int64]string
}

func NewStoreDirectory() *StoreDirectory {
	return &StoreDirectory{states: make(map[int64]string)}
}

// Put registers or replaces the state of a store.
func (d *StoreDirectory) Put(storeID int64, state string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states[storeID] = state
}

func (d *StoreDirectory) StoreState(_ context.Context, storeID int64) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	state, ok := d.states[storeID]
	if !ok {
		return "", ports.ErrNotFound
	}
	return state, nil
}
