package maintenance

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var day = time.Date(2026, time.October, 16, 9, 30, 0, 0, time.UTC)

func newTracker(opts ...Option) (*Tracker, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(&buf, opts...), &buf
}

func TestUnknownVehicleHasEmptyReport(t *testing.T) {
	tr, _ := newTracker()

	report := tr.GenerateMaintenanceReport("V3")
	require.NotNil(t, report)
	assert.Empty(t, report)

	status := tr.TrackRepairStatus("V3")
	require.NotNil(t, status)
	assert.Empty(t, status)

	rec := tr.Record("V3")
	assert.Equal(t, 0.0, rec.Mileage)
	assert.False(t, rec.HasSchedule())
	assert.Empty(t, rec.Issues)
}

func TestProcessRepairRequestAppendsInOrder(t *testing.T) {
	tr, _ := newTracker()

	tr.ProcessRepairRequest("V2", "brake noise")
	tr.ProcessRepairRequest("V2", "oil leak")

	assert.Equal(t, []string{"brake noise", "oil leak"}, tr.GenerateMaintenanceReport("V2"))
	assert.Equal(t, []string{"brake noise", "oil leak"}, tr.TrackRepairStatus("V2"))
}

func TestProcessRepairRequestKeepsDuplicates(t *testing.T) {
	tr, _ := newTracker()

	for i := 0; i < 3; i++ {
		tr.ProcessRepairRequest("V2", "rattle")
	}

	assert.Len(t, tr.GenerateMaintenanceReport("V2"), 3)
}

func TestIssuesAreIsolatedPerVehicle(t *testing.T) {
	tr, _ := newTracker()

	tr.ProcessRepairRequest("A", "flat tyre")
	tr.ProcessRepairRequest("B", "cracked mirror")

	assert.Equal(t, []string{"flat tyre"}, tr.GenerateMaintenanceReport("A"))
	assert.Equal(t, []string{"cracked mirror"}, tr.GenerateMaintenanceReport("B"))
}

func TestReportReturnsCopy(t *testing.T) {
	tr, _ := newTracker()
	tr.ProcessRepairRequest("V1", "squeak")

	report := tr.GenerateMaintenanceReport("V1")
	report[0] = "changed"

	assert.Equal(t, []string{"squeak"}, tr.GenerateMaintenanceReport("V1"))
}

func TestManageMaintenanceSchedule(t *testing.T) {
	tests := []struct {
		name     string
		mileage  *float64
		opts     []Option
		expected float64
	}{
		{name: "never tracked", expected: 3000},
		{name: "tracked", mileage: ptr(15000), expected: 18000},
		{name: "fractional", mileage: ptr(1200.5), expected: 4200.5},
		{name: "custom interval", mileage: ptr(15000), opts: []Option{WithInterval(5000)}, expected: 20000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := newTracker(tt.opts...)
			if tt.mileage != nil {
				tr.TrackVehicleMileage("V1", *tt.mileage)
			}
			assert.Equal(t, tt.expected, tr.ManageMaintenanceSchedule("V1", day))
		})
	}
}

func TestManageMaintenanceScheduleIgnoresDate(t *testing.T) {
	tr, _ := newTracker()
	tr.TrackVehicleMileage("V1", 15000)

	assert.Equal(t, 18000.0, tr.ManageMaintenanceSchedule("V1", day))
	assert.Equal(t, 18000.0, tr.ManageMaintenanceSchedule("V1", day.AddDate(5, 0, 0)))
	// not stored
	assert.Equal(t, 15000.0, tr.Record("V1").Mileage)
}

func TestScheduleLaterCallWins(t *testing.T) {
	tr, _ := newTracker()
	later := day.Add(48 * time.Hour)

	tr.ScheduleMaintenanceTask("V1", day)
	tr.ManageMaintenanceSchedule("V1", later)
	rec := tr.Record("V1")
	require.True(t, rec.HasSchedule())
	assert.True(t, rec.Scheduled.Equal(later))

	tr.ScheduleMaintenanceTask("V1", day)
	assert.True(t, tr.Record("V1").Scheduled.Equal(day))
}

func TestScheduleIsIdempotent(t *testing.T) {
	tr, _ := newTracker()

	tr.ScheduleMaintenanceTask("V1", day)
	first := tr.Record("V1")
	tr.ScheduleMaintenanceTask("V1", day)

	assert.Equal(t, first, tr.Record("V1"))
}

func TestTrackVehicleMileageAllowsDecrease(t *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)
	tr, _ := newTracker(WithLogger(zap.New(core)))

	tr.TrackVehicleMileage("V1", 20000)
	tr.TrackVehicleMileage("V1", 100)

	assert.Equal(t, 100.0, tr.Record("V1").Mileage)
	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "mileage decreased", recorded.All()[0].Message)
}

func TestRecordMaintenanceDoesNotStore(t *testing.T) {
	tr, buf := newTracker()

	require.NoError(t, tr.RecordMaintenance("V1", "Oil Change", day, "synthetic 5W-30", 89.9))

	assert.Equal(t, "Maintenance recorded for vehicle V1: synthetic 5W-30\n", buf.String())
	assert.Empty(t, tr.records)
}

func TestRecordMaintenanceRejectsEmptyVehicle(t *testing.T) {
	tr, buf := newTracker()

	err := tr.RecordMaintenance("", "Oil Change", day, "x", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Empty(t, buf.String())
}

func TestNotices(t *testing.T) {
	tr, buf := newTracker()

	tr.ScheduleMaintenanceTask("V1", day)
	tr.ProcessRepairRequest("V1", "brake noise")
	tr.GenerateMaintenanceReminder("V1")
	tr.MonitorSparePartsAvailability()
	tr.TrackVehicleMileage("V1", 15000)
	tr.GenerateMaintenanceReport("V1")
	tr.ManageMaintenanceSchedule("V1", day)
	tr.TrackWarrantyInformation("V1")
	tr.TrackRepairStatus("V1")

	expected := "Maintenance scheduled for vehicle V1 on Fri Oct 16 09:30:00 UTC 2026\n" +
		"Repair request processed for vehicle V1: brake noise\n" +
		"Maintenance reminder generated for vehicle V1\n" +
		"Monitoring spare parts availability...\n" +
		"Vehicle mileage tracked for V1: 15000\n" +
		"Maintenance report for vehicle V1:\n" +
		"Repair Status: [brake noise]\n" +
		"Next maintenance for vehicle V1 should be scheduled when the mileage reaches: 18000\n" +
		"Tracking warranty information for vehicle V1\n" +
		"Repair status for vehicle V1: [brake noise]\n"
	assert.Equal(t, expected, buf.String())
}

func TestReadOnlyNoticesDoNotCreateRecords(t *testing.T) {
	tr, _ := newTracker()

	tr.GenerateMaintenanceReminder("V9")
	tr.MonitorSparePartsAvailability()
	tr.TrackWarrantyInformation("V9")
	tr.GenerateMaintenanceReport("V9")
	tr.TrackRepairStatus("V9")

	assert.Empty(t, tr.records)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "15000", FormatMileage(15000))
	assert.Equal(t, "15000.5", FormatMileage(15000.5))
	assert.Equal(t, "[]", FormatIssues(nil))
	assert.Equal(t, "[a, b]", FormatIssues([]string{"a", "b"}))
}

func ptr(f float64) *float64 { return &f }
