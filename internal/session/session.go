package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"servicebook/internal/maintenance"
	"servicebook/internal/models"
	"servicebook/internal/obd"
	"servicebook/pkg/log"

	"go.uber.org/zap"
)

const (
	PromptVehicleID      = "Enter vehicle ID:"
	PromptInitialMileage = "Enter initial mileage:"
	PromptDescription    = "Enter maintenance description:"
	PromptCost           = "Enter cost:"
	PromptIssue          = "Enter repair issue description:"
	PromptUpdatedMileage = "Enter updated mileage:"
)

// DefaultKind is the maintenance kind recorded by a session.
const DefaultKind = "Oil Change"

// InputParseError reports input that could not be read as the prompt expected.
type InputParseError struct {
	Prompt string
	Input  string
	Err    error
}

func (e *InputParseError) Error() string {
	if e.Err == io.ErrUnexpectedEOF {
		return fmt.Sprintf("no input for %q", e.Prompt)
	}
	return fmt.Sprintf("invalid input %q for %q: %v", e.Input, e.Prompt, e.Err)
}

func (e *InputParseError) Unwrap() error {
	return e.Err
}

// Result is what one session entered and computed.
type Result struct {
	VehicleID       string
	InitialMileage  float64
	Description     string
	Cost            float64
	Issue           string
	Codes           []models.DTCEntry
	UpdatedMileage  float64
	NextMaintenance float64
}

// Session drives one pass over every tracker operation from interactive input.
type Session struct {
	store    maintenance.Store
	in       *bufio.Scanner
	out      io.Writer
	provider obd.Provider
	now      func() time.Time
}

type Option func(*Session)

// WithProvider adds trouble codes and the odometer reading of a started provider.
func WithProvider(p obd.Provider) Option {
	return func(s *Session) {
		s.provider = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

func New(store maintenance.Store, in io.Reader, out io.Writer, opts ...Option) *Session {
	s := &Session{
		store: store,
		in:    bufio.NewScanner(in),
		out:   out,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run prompts in fixed order and applies every operation once.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	res := &Result{}
	var err error

	if res.VehicleID, err = s.readLine(ctx, PromptVehicleID); err != nil {
		return nil, err
	}
	if res.InitialMileage, err = s.readNumber(ctx, PromptInitialMileage); err != nil {
		return nil, err
	}
	if res.Description, err = s.readLine(ctx, PromptDescription); err != nil {
		return nil, err
	}
	if res.Cost, err = s.readNumber(ctx, PromptCost); err != nil {
		return nil, err
	}

	id := res.VehicleID
	if err := s.store.RecordMaintenance(id, DefaultKind, s.now(), res.Description, res.Cost); err != nil {
		return nil, err
	}
	s.store.ScheduleMaintenanceTask(id, s.now())

	if res.Issue, err = s.readLine(ctx, PromptIssue); err != nil {
		return nil, err
	}
	s.store.ProcessRepairRequest(id, res.Issue)
	res.Codes = s.troubleCodes()
	for _, code := range res.Codes {
		s.store.ProcessRepairRequest(id, code.String())
	}

	s.store.GenerateMaintenanceReminder(id)
	s.store.MonitorSparePartsAvailability()

	if res.UpdatedMileage, err = s.updatedMileage(ctx); err != nil {
		return nil, err
	}
	s.store.TrackVehicleMileage(id, res.UpdatedMileage)
	s.store.GenerateMaintenanceReport(id)
	res.NextMaintenance = s.store.ManageMaintenanceSchedule(id, s.now())
	s.store.TrackWarrantyInformation(id)
	s.store.TrackRepairStatus(id)

	log.Debug("session complete",
		zap.String("vehicle", id),
		zap.Float64("initial_mileage", res.InitialMileage),
		zap.Float64("next_maintenance", res.NextMaintenance))
	return res, nil
}

func (s *Session) troubleCodes() []models.DTCEntry {
	if s.provider == nil {
		return nil
	}
	codes, err := s.provider.GetErrors()
	if err != nil {
		log.Warn("failed to read trouble codes", zap.Error(err))
		return nil
	}
	return codes
}

func (s *Session) updatedMileage(ctx context.Context) (float64, error) {
	if s.provider != nil {
		km, err := s.provider.GetOdometer()
		if err == nil && km > 0 {
			fmt.Fprintf(s.out, "Updated mileage read from vehicle: %s\n", maintenance.FormatMileage(km))
			return km, nil
		}
		if err != nil {
			log.Warn("failed to read odometer, asking instead", zap.Error(err))
		}
	}
	return s.readNumber(ctx, PromptUpdatedMileage)
}

func (s *Session) readLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintln(s.out, prompt)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", fmt.Errorf("read %q: %w", prompt, err)
		}
		return "", &InputParseError{Prompt: prompt, Err: io.ErrUnexpectedEOF}
	}
	return strings.TrimRight(s.in.Text(), "\r"), nil
}

func (s *Session) readNumber(ctx context.Context, prompt string) (float64, error) {
	line, err := s.readLine(ctx, prompt)
	if err != nil {
		return 0, err
	}
	input := strings.TrimSpace(line)
	v, err := strconv.ParseFloat(input, 64)
	if err != nil {
		return 0, &InputParseError{Prompt: prompt, Input: input, Err: err}
	}
	return v, nil
}
