package obd

import "fmt"

type PID struct {
	Mode string
	Code string
	Desc string
}

var (
	PIDSupported  = PID{Mode: "01", Code: "00", Desc: "PIDs supported [01 - 20]"}
	PIDOdometer   = PID{Mode: "01", Code: "A6", Desc: "Odometer"}
	PIDStoredDTCs = PID{Mode: "03", Code: "", Desc: "Stored diagnostic trouble codes"}
)

func (p PID) String() string {
	return fmt.Sprintf("%s%s", p.Mode, p.Code)
}

// ResponseMode is the mode byte an ECU answers with (request mode + 0x40).
func (p PID) ResponseMode() string {
	m, _ := ParseHexByte(p.Mode)
	return fmt.Sprintf("%02X", m+0x40)
}
