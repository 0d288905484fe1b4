package obd

import (
	"context"

	"servicebook/internal/models"
)

// Provider abstracts access to an OBD-II adapter.
// It handles finding the device, initialising it, and reading values.
type Provider interface {
	Start(ctx context.Context) error
	Stop()
	// GetOdometer returns the odometer reading in kilometres.
	GetOdometer() (float64, error)
	GetErrors() ([]models.DTCEntry, error)
	IsConnected() bool
}
