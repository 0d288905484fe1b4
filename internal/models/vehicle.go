package models

import "time"

// VehicleRecord holds what the tracker knows about one vehicle.
// The zero value is the state of a vehicle that was never referenced.
type VehicleRecord struct {
	VehicleID string
	Mileage   float64
	Scheduled *time.Time
	Issues    []string
}

// HasSchedule reports whether a maintenance date has been set.
func (r VehicleRecord) HasSchedule() bool {
	return r.Scheduled != nil
}
