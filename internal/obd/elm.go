package obd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"servicebook/internal/models"
	"servicebook/pkg/log"

	"go.uber.org/zap"
)

// Prompt terminates every ELM327 reply.
const Prompt = '>'

// ReadELMResponse collects bytes from the reader until the ELM327 prompt '>'
// is seen or the timeout elapses. It returns the collected response (prompt
// excluded, trimmed). A timeout with a partial response is not an error.
func ReadELMResponse(reader *bufio.Reader, timeout time.Duration) (string, error) {
	log.Debug("Starting to read response", zap.Duration("timeout", timeout))

	var sb strings.Builder
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		b, err := reader.ReadByte()
		if err != nil {
			if err != io.EOF {
				log.Warn("Response ended with error",
					zap.Error(err),
					zap.String("partial_response", sb.String()))
				return strings.TrimSpace(sb.String()), err
			}
			// the serial port reports EOF when its own read timeout expires
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if b == Prompt {
			log.Debug("Complete response received", zap.String("response", sb.String()))
			return strings.TrimSpace(sb.String()), nil
		}

		// drop null bytes and control characters except CR/LF
		if b >= 32 && b <= 126 || b == '\r' || b == '\n' {
			sb.WriteByte(b)
		}
	}

	if sb.Len() > 0 {
		return strings.TrimSpace(sb.String()), nil
	}
	return "", fmt.Errorf("read timeout after %v", timeout)
}

// ParseHexByte parses a two character hex token.
func ParseHexByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

// ParseOdometer parses a 01A6 reply: 41 A6 A B C D => (A<<24|B<<16|C<<8|D) / 10 km.
func ParseOdometer(line string) (float64, bool) {
	data, ok := payload(line, PIDOdometer, 4)
	if !ok {
		return 0, false
	}
	raw := uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
	return float64(raw) / 10, true
}

// payload finds "<response mode> <pid>" in the reply and returns the n data
// bytes that follow.
func payload(line string, pid PID, n int) ([]byte, bool) {
	parts := strings.Fields(strings.ToUpper(line))
	mode := pid.ResponseMode()
	for i := 0; i+1+n < len(parts); i++ {
		if parts[i] != mode || parts[i+1] != pid.Code {
			continue
		}
		data := make([]byte, n)
		valid := true
		for j := 0; j < n; j++ {
			b, err := ParseHexByte(parts[i+2+j])
			if err != nil {
				valid = false
				break
			}
			data[j] = b
		}
		if valid {
			return data, true
		}
	}
	return nil, false
}

// ParseDTCs parses a mode 03 reply in CAN format: 43 <count> followed by two
// bytes per code, e.g. "43 02 01 33 03 01" => P0133, P0301.
func ParseDTCs(line string) ([]models.DTCEntry, bool) {
	upper := strings.ToUpper(strings.TrimSpace(line))
	if upper == "" || strings.Contains(upper, "NO DATA") || strings.Contains(upper, "NODATA") {
		return nil, false
	}

	parts := strings.Fields(upper)
	mode := PIDStoredDTCs.ResponseMode()

	var results []models.DTCEntry
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] != mode {
			continue
		}
		count, err := ParseHexByte(parts[i+1])
		if err != nil || count == 0 {
			continue
		}
		found := 0
		for j := i + 2; j+1 < len(parts) && found < int(count); j += 2 {
			a, err1 := ParseHexByte(parts[j])
			b, err2 := ParseHexByte(parts[j+1])
			if err1 != nil || err2 != nil {
				break
			}
			// padding
			if a == 0 && b == 0 {
				break
			}
			code := DecodeDTC(a, b)
			results = append(results, models.DTCEntry{Code: code, Description: DescribeDTC(code)})
			found++
		}
		i += 1 + 2*found
	}

	if len(results) == 0 {
		return nil, false
	}
	return results, true
}

// DecodeDTC converts the two DTC bytes to the SAE J2012 form, e.g. 0x03 0x01 => P0301.
func DecodeDTC(a, b byte) string {
	letters := []byte{'P', 'C', 'B', 'U'}
	return fmt.Sprintf("%c%d%X%X%X", letters[a>>6], (a>>4)&0x03, a&0x0F, b>>4, b&0x0F)
}

// ParseVoltage parses an ATRV reply like "12.5V".
func ParseVoltage(response string) (float64, error) {
	response = strings.TrimSpace(strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(response)), "V"))
	return strconv.ParseFloat(response, 64)
}
