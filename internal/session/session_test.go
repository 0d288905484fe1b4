package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servicebook/internal/maintenance"
	"servicebook/internal/models"
	"servicebook/internal/obd/mock"
)

const input = "V1\n12000\nsynthetic oil\n89.90\nbrake noise\n15000\n"

func fixedClock() time.Time {
	return time.Date(2026, time.October, 16, 9, 30, 0, 0, time.UTC)
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRunTranscript(t *testing.T) {
	var out bytes.Buffer
	tracker := maintenance.New(&out)
	s := New(tracker, strings.NewReader(input), &out, WithClock(fixedClock))

	res, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "V1", res.VehicleID)
	assert.Equal(t, 12000.0, res.InitialMileage)
	assert.Equal(t, 89.9, res.Cost)
	assert.Equal(t, 15000.0, res.UpdatedMileage)
	assert.Equal(t, 18000.0, res.NextMaintenance)

	rec := tracker.Record("V1")
	assert.Equal(t, 15000.0, rec.Mileage)
	assert.Equal(t, []string{"brake noise"}, rec.Issues)
	require.True(t, rec.HasSchedule())
	assert.True(t, rec.Scheduled.Equal(fixedClock()))

	newGoldie(t).Assert(t, "session", out.Bytes())
}

func TestRunWithProvider(t *testing.T) {
	provider := mock.New(48213.5)
	require.NoError(t, provider.Start(context.Background()))
	defer provider.Stop()

	var out bytes.Buffer
	tracker := maintenance.New(&out)
	s := New(tracker, strings.NewReader(input), &out, WithClock(fixedClock), WithProvider(provider))

	res, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 48213.5, res.UpdatedMileage)
	assert.Equal(t, 51213.5, res.NextMaintenance)
	assert.Len(t, res.Codes, 1)
	assert.Equal(t, []string{"brake noise", "P0301: Cylinder 1 Misfire Detected"}, tracker.Record("V1").Issues)

	newGoldie(t).Assert(t, "session_obd", out.Bytes())
}

func TestRunPromptsWhenOdometerUnavailable(t *testing.T) {
	provider := mock.New(0, []models.DTCEntry{}...)
	require.NoError(t, provider.Start(context.Background()))

	var out bytes.Buffer
	s := New(maintenance.New(&out), strings.NewReader(input), &out,
		WithClock(fixedClock), WithProvider(provider))

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 15000.0, res.UpdatedMileage)
	assert.Empty(t, res.Codes)
	assert.Contains(t, out.String(), PromptUpdatedMileage)
}

func TestRunWithStoppedProviderFallsBack(t *testing.T) {
	provider := mock.New(1000)

	var out bytes.Buffer
	tracker := maintenance.New(&out)
	s := New(tracker, strings.NewReader(input), &out, WithClock(fixedClock), WithProvider(provider))

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 15000.0, res.UpdatedMileage)
	assert.Equal(t, []string{"brake noise"}, tracker.Record("V1").Issues)
}

func TestRunRejectsNonNumericInput(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		prompt string
		value  string
	}{
		{name: "initial mileage", input: "V1\ntwelve\n", prompt: PromptInitialMileage, value: "twelve"},
		{name: "cost", input: "V1\n100\noil\n$90\n", prompt: PromptCost, value: "$90"},
		{name: "updated mileage", input: "V1\n100\noil\n90\nnoise\n15k\n", prompt: PromptUpdatedMileage, value: "15k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			s := New(maintenance.New(&out), strings.NewReader(tt.input), &out, WithClock(fixedClock))

			res, err := s.Run(context.Background())
			require.Error(t, err)
			assert.Nil(t, res)

			var parseErr *InputParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, tt.prompt, parseErr.Prompt)
			assert.Equal(t, tt.value, parseErr.Input)
		})
	}
}

func TestRunTruncatedInput(t *testing.T) {
	var out bytes.Buffer
	s := New(maintenance.New(&out), strings.NewReader("V1\n100\n"), &out, WithClock(fixedClock))

	_, err := s.Run(context.Background())
	require.Error(t, err)

	var parseErr *InputParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, PromptDescription, parseErr.Prompt)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestRunEmptyVehicleID(t *testing.T) {
	var out bytes.Buffer
	s := New(maintenance.New(&out), strings.NewReader("\n100\noil\n90\n"), &out, WithClock(fixedClock))

	_, err := s.Run(context.Background())
	assert.True(t, errors.Is(err, maintenance.ErrInvalidArgument))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	s := New(maintenance.New(&out), strings.NewReader(input), &out)

	_, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}

func TestRunAcceptsWindowsLineEndings(t *testing.T) {
	var out bytes.Buffer
	tracker := maintenance.New(&out)
	crlf := strings.ReplaceAll(input, "\n", "\r\n")
	s := New(tracker, strings.NewReader(crlf), &out, WithClock(fixedClock))

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "V1", res.VehicleID)
	assert.Equal(t, []string{"brake noise"}, tracker.Record("V1").Issues)
}
