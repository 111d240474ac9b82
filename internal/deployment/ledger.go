// Package deployment records technician dispatches against equipment.
// The ledger is owned by the HTTP layer and handed to it explicitly; there is
// no package-level state.
package deployment

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Technician crew bounds per dispatch.
const (
	MinTechnicians = 1
	MaxTechnicians = 5
)

var (
	// ErrInvalidTechnicians is returned for crew sizes outside 1–5.
	ErrInvalidTechnicians = errors.New("technicians must be between 1 and 5")
	// ErrMissingEquipment is returned when a dispatch names no equipment.
	ErrMissingEquipment = errors.New("equipment id is required")
)

// Deployment is one recorded dispatch.
type Deployment struct {
	ID          string    `json:"id"`
	EquipmentID string    `json:"equipment_id"`
	Technicians int       `json:"technicians"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Ledger is a mutex-guarded, append-only list of deployments.
type Ledger struct {
	mu          sync.RWMutex
	deployments []Deployment
	total       int
	clock       clockwork.Clock
}

// NewLedger creates an empty ledger. A nil clock uses the real clock.
func NewLedger(clock clockwork.Clock) *Ledger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Ledger{clock: clock}
}

// Record appends a deployment after validating it.
func (l *Ledger) Record(equipmentID string, technicians int, note string) (Deployment, error) {
	if equipmentID == "" {
		return Deployment{}, ErrMissingEquipment
	}
	if technicians < MinTechnicians || technicians > MaxTechnicians {
		return Deployment{}, fmt.Errorf("%w: got %d", ErrInvalidTechnicians, technicians)
	}

	d := Deployment{
		ID:          uuid.NewString(),
		EquipmentID: equipmentID,
		Technicians: technicians,
		Note:        note,
		CreatedAt:   l.clock.Now().UTC(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.deployments = append(l.deployments, d)
	l.total += technicians
	return d, nil
}

// List returns every deployment, oldest first.
func (l *Ledger) List() []Deployment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.deployments)
}

// Total is the number of technicians dispatched across all deployments.
func (l *Ledger) Total() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// ForEquipment sums technicians dispatched to one equipment ID.
func (l *Ledger) ForEquipment(equipmentID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, d := range l.deployments {
		if d.EquipmentID == equipmentID {
			n += d.Technicians
		}
	}
	return n
}
