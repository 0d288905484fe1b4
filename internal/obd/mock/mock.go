package mock

import (
	"context"
	"errors"
	"sync"

	"servicebook/internal/models"
	"servicebook/internal/obd"
)

// DefaultOdometer is the reading reported by New when none is given.
const DefaultOdometer = 48213.4

var errNotRunning = errors.New("mock OBD provider not started")

// MockOBD is a deterministic implementation of obd.Provider used for demo and testing.
type MockOBD struct {
	mu       sync.RWMutex
	running  bool
	odometer float64
	errors   []models.DTCEntry
}

// New returns a provider reporting the given odometer and trouble codes.
// Without codes it reports a single misfire, so the demo has something to file.
func New(odometer float64, codes ...models.DTCEntry) *MockOBD {
	if codes == nil {
		codes = []models.DTCEntry{
			{Code: "P0301", Description: obd.DescribeDTC("P0301")},
		}
	}
	return &MockOBD{
		odometer: odometer,
		errors:   codes,
	}
}

var _ obd.Provider = (*MockOBD)(nil)

func (m *MockOBD) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	return nil
}

func (m *MockOBD) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
}

func (m *MockOBD) GetOdometer() (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.running {
		return 0, errNotRunning
	}
	return m.odometer, nil
}

func (m *MockOBD) GetErrors() ([]models.DTCEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.running {
		return nil, errNotRunning
	}
	copyErr := make([]models.DTCEntry, len(m.errors))
	copy(copyErr, m.errors)
	return copyErr, nil
}

// IsConnected for MockOBD always returns true while running.
func (m *MockOBD) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}
