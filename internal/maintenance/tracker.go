package maintenance

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"servicebook/internal/models"

	"go.uber.org/zap"
)

// DefaultInterval is the distance between two maintenance visits.
const DefaultInterval = 3000.0

// DateLayout is used for every date printed in a notice.
const DateLayout = time.UnixDate

// ErrInvalidArgument is returned when an operation receives an unusable argument.
var ErrInvalidArgument = errors.New("invalid argument")

// Store is the whole tracker surface, for callers that want a test double.
type Store interface {
	RecordMaintenance(vehicleID, kind string, date time.Time, description string, cost float64) error
	ScheduleMaintenanceTask(vehicleID string, date time.Time)
	ProcessRepairRequest(vehicleID, issue string)
	GenerateMaintenanceReminder(vehicleID string)
	MonitorSparePartsAvailability()
	TrackVehicleMileage(vehicleID string, mileage float64)
	GenerateMaintenanceReport(vehicleID string) []string
	ManageMaintenanceSchedule(vehicleID string, date time.Time) float64
	TrackWarrantyInformation(vehicleID string)
	TrackRepairStatus(vehicleID string) []string
	Record(vehicleID string) models.VehicleRecord
}

// Tracker keeps maintenance state per vehicle in memory and prints a
// notice for every operation.
type Tracker struct {
	mu       sync.RWMutex
	out      io.Writer
	logger   *zap.Logger
	interval float64
	records  map[string]*models.VehicleRecord
}

var _ Store = (*Tracker)(nil)

// Option configures a Tracker.
type Option func(*Tracker)

// WithInterval overrides DefaultInterval.
func WithInterval(miles float64) Option {
	return func(t *Tracker) {
		t.interval = miles
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		t.logger = l
	}
}

// New creates a Tracker writing notices to out.
func New(out io.Writer, opts ...Option) *Tracker {
	t := &Tracker{
		out:      out,
		logger:   zap.NewNop(),
		interval: DefaultInterval,
		records:  make(map[string]*models.VehicleRecord),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordMaintenance announces a maintenance activity. Nothing is stored.
func (t *Tracker) RecordMaintenance(vehicleID, kind string, date time.Time, description string, cost float64) error {
	if vehicleID == "" {
		return fmt.Errorf("record maintenance: empty vehicle id: %w", ErrInvalidArgument)
	}
	t.logger.Debug("maintenance recorded",
		zap.String("vehicle", vehicleID),
		zap.String("kind", kind),
		zap.Time("date", date),
		zap.Float64("cost", cost))
	t.notice("Maintenance recorded for vehicle %s: %s", vehicleID, description)
	return nil
}

func (t *Tracker) ScheduleMaintenanceTask(vehicleID string, date time.Time) {
	t.setSchedule(vehicleID, date)
	t.notice("Maintenance scheduled for vehicle %s on %s", vehicleID, date.Format(DateLayout))
}

// ProcessRepairRequest appends issue to the vehicle's repair list. Repeated
// descriptions are kept.
func (t *Tracker) ProcessRepairRequest(vehicleID, issue string) {
	t.mu.Lock()
	r := t.record(vehicleID)
	r.Issues = append(r.Issues, issue)
	t.mu.Unlock()

	t.logger.Debug("repair request stored", zap.String("vehicle", vehicleID), zap.String("issue", issue))
	t.notice("Repair request processed for vehicle %s: %s", vehicleID, issue)
}

func (t *Tracker) GenerateMaintenanceReminder(vehicleID string) {
	t.notice("Maintenance reminder generated for vehicle %s", vehicleID)
}

func (t *Tracker) MonitorSparePartsAvailability() {
	t.notice("Monitoring spare parts availability...")
}

// TrackVehicleMileage overwrites the stored mileage. Decreasing values are accepted.
func (t *Tracker) TrackVehicleMileage(vehicleID string, mileage float64) {
	t.mu.Lock()
	r := t.record(vehicleID)
	if mileage < r.Mileage {
		t.logger.Warn("mileage decreased",
			zap.String("vehicle", vehicleID),
			zap.Float64("previous", r.Mileage),
			zap.Float64("mileage", mileage))
	}
	r.Mileage = mileage
	t.mu.Unlock()

	t.notice("Vehicle mileage tracked for %s: %s", vehicleID, FormatMileage(mileage))
}

// GenerateMaintenanceReport prints and returns the vehicle's repair issues.
func (t *Tracker) GenerateMaintenanceReport(vehicleID string) []string {
	issues := t.issues(vehicleID)
	t.notice("Maintenance report for vehicle %s:", vehicleID)
	t.notice("Repair Status: %s", FormatIssues(issues))
	return issues
}

// ManageMaintenanceSchedule overwrites the schedule date and returns the
// mileage at which the next maintenance is due. The result is not stored.
func (t *Tracker) ManageMaintenanceSchedule(vehicleID string, date time.Time) float64 {
	t.setSchedule(vehicleID, date)
	next := t.NextMaintenanceMileage(vehicleID)
	t.notice("Next maintenance for vehicle %s should be scheduled when the mileage reaches: %s",
		vehicleID, FormatMileage(next))
	return next
}

func (t *Tracker) TrackWarrantyInformation(vehicleID string) {
	t.notice("Tracking warranty information for vehicle %s", vehicleID)
}

// TrackRepairStatus returns the same issues as GenerateMaintenanceReport.
func (t *Tracker) TrackRepairStatus(vehicleID string) []string {
	issues := t.issues(vehicleID)
	t.notice("Repair status for vehicle %s: %s", vehicleID, FormatIssues(issues))
	return issues
}

// NextMaintenanceMileage is the stored mileage plus the interval, without any notice.
func (t *Tracker) NextMaintenanceMileage(vehicleID string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var mileage float64
	if r, ok := t.records[vehicleID]; ok {
		mileage = r.Mileage
	}
	return mileage + t.interval
}

// Record returns a copy of the vehicle's record, or the defaults when the
// vehicle was never referenced.
func (t *Tracker) Record(vehicleID string) models.VehicleRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[vehicleID]
	if !ok {
		return models.VehicleRecord{VehicleID: vehicleID, Issues: []string{}}
	}
	out := models.VehicleRecord{
		VehicleID: r.VehicleID,
		Mileage:   r.Mileage,
		Issues:    append([]string{}, r.Issues...),
	}
	if r.Scheduled != nil {
		d := *r.Scheduled
		out.Scheduled = &d
	}
	return out
}

func (t *Tracker) setSchedule(vehicleID string, date time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.record(vehicleID)
	r.Scheduled = &date
}

func (t *Tracker) issues(vehicleID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[vehicleID]
	if !ok {
		return []string{}
	}
	return append([]string{}, r.Issues...)
}

// record must be called with mu held for writing.
func (t *Tracker) record(vehicleID string) *models.VehicleRecord {
	r, ok := t.records[vehicleID]
	if !ok {
		r = &models.VehicleRecord{VehicleID: vehicleID}
		t.records[vehicleID] = r
	}
	return r
}

func (t *Tracker) notice(format string, args ...any) {
	fmt.Fprintf(t.out, format+"\n", args...)
}

// FormatMileage prints a mileage with the shortest exact decimal form.
func FormatMileage(m float64) string {
	return strconv.FormatFloat(m, 'f', -1, 64)
}

// FormatIssues prints issues as a bracketed, comma separated list.
func FormatIssues(issues []string) string {
	return "[" + strings.Join(issues, ", ") + "]"
}
