package monitor

import (
	"slices"
	"strings"
	"sync"

	"github.com/oshokin/usage-alarms/internal/domain/alarm"
)

// Board keeps the latest snapshot published by the engine. Readers get
// copies so the engine never shares its state.
type Board struct {
	// snapshot is the latest published snapshot.
	snapshot *alarm.Snapshot
	// mu protects concurrent access to snapshot.
	mu sync.RWMutex
}

// NewBoard creates an empty board for serviceID.
func NewBoard(serviceID string) *Board {
	return &Board{
		snapshot: &alarm.Snapshot{ServiceID: serviceID},
	}
}

// Publish replaces the snapshot. Alarms are stored sorted by kind.
func (b *Board) Publish(snapshot *alarm.Snapshot) {
	cloned := snapshot.Clone()
	slices.SortFunc(cloned.Alarms, func(x, y *alarm.Status) int {
		return strings.Compare(string(x.Kind), string(y.Kind))
	})

	b.mu.Lock()
	defer b.mu.Unlock()

	b.snapshot = cloned
}

// Snapshot returns a copy of the latest snapshot.
func (b *Board) Snapshot() *alarm.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.snapshot.Clone()
}
