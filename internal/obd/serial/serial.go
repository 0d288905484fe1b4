package serial

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"

	"servicebook/internal/models"
	"servicebook/internal/obd"
	"servicebook/pkg/log"

	"github.com/tarm/serial"
	"go.uber.org/zap"
)

const DefaultDelay = 100 * time.Millisecond

const (
	CommandReset           = "ATZ"
	CommandEchoOff         = "ATE0"
	CommandLineFeedsOff    = "ATL0"
	CommandHeadersOff      = "ATH0"
	CommandSpacesOn        = "ATS1"
	CommandSetProtocolAuto = "ATSP0"
	CommandProtocolNum     = "ATDPN"
	CommandReadVoltage     = "ATRV"

	CR = "\r"

	// Supported protocol IDs
	ProtocolAuto          = "0" // Automatic mode
	ProtocolJ1850PWM      = "1" // SAE J1850 PWM
	ProtocolJ1850VPW      = "2" // SAE J1850 VPW
	ProtocolISO9141       = "3" // ISO 9141-2
	ProtocolISO14230_5    = "4" // ISO 14230-4 (KWP 5BAUD)
	ProtocolISO14230      = "5" // ISO 14230-4 (KWP FAST)
	ProtocolISO15765_11   = "6" // ISO 15765-4 (CAN 11/500)
	ProtocolISO15765_29   = "7" // ISO 15765-4 (CAN 29/500)
	ProtocolISO15765_11_2 = "8" // ISO 15765-4 (CAN 11/250)
	ProtocolISO15765_29_2 = "9" // ISO 15765-4 (CAN 29/250)
	ProtocolSAEJ1939      = "A" // SAE J1939 (CAN 29/250)
)

// MinVoltage is the lowest battery voltage at which the adapter is trusted.
const MinVoltage = 6.0

// fallbackProtocols are tried in order of likelihood when auto detection fails.
var fallbackProtocols = []string{
	ProtocolISO15765_11,
	ProtocolISO15765_11_2,
	ProtocolJ1850PWM,
	ProtocolISO9141,
	ProtocolISO14230,
}

var errNotConnected = errors.New("not connected")

type opener func(cfg *serial.Config) (io.ReadWriteCloser, error)

func openPort(cfg *serial.Config) (io.ReadWriteCloser, error) {
	p, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SerialOBD implements obd.Provider backed by a serial (ELM327-like) device.
type SerialOBD struct {
	portName    string
	baud        int
	port        io.ReadWriteCloser
	reader      *bufio.Reader
	protocol    string
	isConnected bool

	open       opener
	settle     time.Duration
	retryDelay time.Duration

	mu sync.Mutex
}

var _ obd.Provider = (*SerialOBD)(nil)

// New creates a SerialOBD. An empty portName selects the platform default device.
func New(portName string, baud int) *SerialOBD {
	if portName == "" {
		portName = DefaultPort()
	}
	return &SerialOBD{
		portName:   portName,
		baud:       baud,
		open:       openPort,
		settle:     2 * time.Second,
		retryDelay: 2 * time.Second,
	}
}

// DefaultPort returns the usual device name of a USB ELM327 adapter.
func DefaultPort() string {
	switch runtime.GOOS {
	case "windows":
		return "COM3"
	case "darwin":
		return "/dev/tty.usbserial"
	default:
		return "/dev/ttyUSB0"
	}
}

func (s *SerialOBD) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isConnected {
		return nil
	}

	if err := s.connect(ctx); err != nil {
		return fmt.Errorf("error while connecting: %w", err)
	}

	if err := s.initELM327(); err != nil {
		s.port.Close()
		return fmt.Errorf("error while initialising adapter: %w", err)
	}

	if err := s.autoDetectProtocol(); err != nil {
		log.Warn("Auto protocol detection failed, will try specific protocols", zap.Error(err))
		var detected bool
		for _, protocol := range fallbackProtocols {
			if err := s.tryProtocol(protocol); err == nil {
				log.Info("Successfully connected using protocol", zap.String("protocol", protocol))
				s.protocol = protocol
				detected = true
				break
			}
		}
		if !detected {
			s.port.Close()
			return fmt.Errorf("no protocol answered on %s", s.portName)
		}
	}

	s.isConnected = true
	return nil
}

func (s *SerialOBD) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		s.port.Close()
	}
	s.isConnected = false
}

func (s *SerialOBD) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isConnected
}

// Protocol returns the protocol number reported by the adapter.
func (s *SerialOBD) Protocol() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.protocol
}

func (s *SerialOBD) GetOdometer() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isConnected {
		return 0, errNotConnected
	}

	line, err := s.query(obd.PIDOdometer.String(), 1200*time.Millisecond)
	if err != nil {
		return 0, fmt.Errorf("failed to read odometer: %w", err)
	}
	if km, ok := obd.ParseOdometer(line); ok {
		return km, nil
	}
	return 0, fmt.Errorf("failed to parse odometer response %q", line)
}

func (s *SerialOBD) GetErrors() ([]models.DTCEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isConnected {
		return nil, errNotConnected
	}

	line, err := s.query(obd.PIDStoredDTCs.String(), 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to read trouble codes: %w", err)
	}
	log.Debug("Raw DTC response", zap.String("response", line))

	if codes, ok := obd.ParseDTCs(line); ok {
		return codes, nil
	}
	upper := strings.ToUpper(line)
	if strings.Contains(upper, "NO DATA") || strings.Contains(upper, obd.PIDStoredDTCs.ResponseMode()) {
		return []models.DTCEntry{}, nil
	}
	return nil, fmt.Errorf("failed to parse trouble code response %q", line)
}

func (s *SerialOBD) connect(ctx context.Context) error {
	cfg := &serial.Config{
		Name:        s.portName,
		Baud:        s.baud,
		ReadTimeout: 500 * time.Millisecond,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	}

	var p io.ReadWriteCloser
	var err error
	maxRetries := 3

	for i := 0; i < maxRetries; i++ {
		p, err = s.open(cfg)
		if err == nil {
			break
		}
		log.Warn("Failed to open port, retrying...", zap.Error(err), zap.Int("attempt", i+1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
	if err != nil {
		return fmt.Errorf("failed to open port after %d attempts: %w", maxRetries, err)
	}

	if flusher, ok := p.(interface{ Flush() error }); ok {
		if err := flusher.Flush(); err != nil {
			log.Warn("Failed to flush port", zap.Error(err))
		}
	}

	// the adapter needs time after the port opens
	time.Sleep(s.settle)

	s.port = p
	s.reader = bufio.NewReader(p)
	log.Info("Port opened", zap.String("port", s.portName), zap.Int("baud", s.baud))
	return nil
}

func (s *SerialOBD) initELM327() error {
	resp, err := s.query(CommandReset, 2*time.Second)
	if err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	if !strings.Contains(resp, "ELM") {
		return fmt.Errorf("no ELM327 response detected in %q", resp)
	}
	log.Info("Reset successful", zap.String("response", resp))

	commands := []string{
		CommandEchoOff,
		CommandLineFeedsOff,
		CommandHeadersOff,
		CommandSpacesOn,
		CommandReadVoltage,
	}

	for _, cmd := range commands {
		resp, err := s.query(cmd, 500*time.Millisecond)
		log.Debug("Init command", zap.String("command", cmd), zap.String("response", resp), zap.Error(err))

		if cmd == CommandReadVoltage {
			// ATRV is not supported on every clone
			if err == nil && resp != "" {
				if v, err := obd.ParseVoltage(resp); err == nil {
					if v < MinVoltage {
						return fmt.Errorf("voltage too low: %.1fV", v)
					}
					log.Info("Adapter voltage", zap.Float64("volts", v))
				}
			}
			continue
		}

		if err != nil || resp == "" {
			return fmt.Errorf("command %s got no response", cmd)
		}
	}

	return nil
}

func (s *SerialOBD) autoDetectProtocol() error {
	if _, err := s.query(CommandSetProtocolAuto, 500*time.Millisecond); err != nil {
		return fmt.Errorf("failed to set auto protocol: %w", err)
	}

	resp, err := s.query(obd.PIDSupported.String(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("failed to send test command: %w", err)
	}
	if unusable(resp) {
		return fmt.Errorf("unable to detect protocol: %s", resp)
	}

	resp, err = s.query(CommandProtocolNum, time.Second)
	if err != nil || resp == "" {
		return fmt.Errorf("no response from protocol query")
	}

	// auto-detected protocols are reported with an "A" prefix
	s.protocol = strings.TrimPrefix(resp, "A")
	log.Info("Detected protocol", zap.String("protocol", s.protocol))
	return nil
}

func (s *SerialOBD) tryProtocol(protocol string) error {
	if _, err := s.query("ATTP"+protocol, 500*time.Millisecond); err != nil {
		return fmt.Errorf("failed to set protocol %s: %w", protocol, err)
	}

	resp, err := s.query(obd.PIDSupported.String(), 5*time.Second)
	if err != nil || resp == "" {
		return fmt.Errorf("no response with protocol %s", protocol)
	}
	if unusable(resp) {
		return fmt.Errorf("unable to connect with protocol %s", protocol)
	}
	return nil
}

// query sends cmd and reads the reply. It must be called with mu held.
func (s *SerialOBD) query(cmd string, timeout time.Duration) (string, error) {
	if err := s.sendCommand(cmd); err != nil {
		return "", err
	}
	return obd.ReadELMResponse(s.reader, timeout)
}

func (s *SerialOBD) sendCommand(cmd string) error {
	if s.port == nil {
		return fmt.Errorf("cannot send command: port is nil")
	}

	// drop anything left over from a previous reply
	if n := s.reader.Buffered(); n > 0 {
		s.reader.Discard(n)
	}

	full := cmd + CR

	maxRetries := 3
	var writeErr error

	for i := 0; i < maxRetries; i++ {
		n, err := s.port.Write([]byte(full))
		if err != nil {
			writeErr = err
			log.Warn("Write failed, retrying...",
				zap.String("command", cmd),
				zap.Error(err),
				zap.Int("attempt", i+1))
			time.Sleep(DefaultDelay)
			continue
		}
		if n != len(full) {
			writeErr = fmt.Errorf("incomplete write: %d/%d bytes", n, len(full))
			continue
		}
		writeErr = nil
		break
	}

	if writeErr != nil {
		return fmt.Errorf("error writing command %q after retries: %w", cmd, writeErr)
	}

	log.Debug("Command sent", zap.String("command", cmd))
	return nil
}

func unusable(resp string) bool {
	upper := strings.ToUpper(resp)
	return strings.Contains(upper, "UNABLE TO CONNECT") ||
		strings.Contains(upper, "NO DATA") ||
		strings.Contains(upper, "ERROR")
}
