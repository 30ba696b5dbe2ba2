package basel

import (
	"fmt"
	"strings"
)

// command families with distinct reply code meanings
type errFamily int

const (
	famSet errFamily = iota
	famAWG
	famWAV
	famPoly
	famControl
)

// CmdError is a nonzero numeric reply to a write command
type CmdError struct {
	// Cmd is the command that provoked the error
	Cmd string

	// Code is the numeric reply
	Code int

	// Desc is the meaning of the code per the programming manual
	Desc string
}

func (e *CmdError) Error() string {
	return fmt.Sprintf("%s: error %d, %s", e.Cmd, e.Code, e.Desc)
}

// NotAllowed returns true if the error is the device refusing a write
// because a ramp generator or AWG currently owns the channel
func (e *CmdError) NotAllowed() bool {
	return e.Code == 5
}

var setDesc = map[int]string{
	1: "invalid DAC channel",
	2: "missing DAC value, status or BW",
	3: "DAC value out of range",
	4: "mistyped",
	5: "writing not allowed, a ramp generator or AWG is running on this channel",
}

var awgDesc = map[int]string{
	1: "invalid AWG memory",
	2: "missing AWG address and/or value",
	3: "AWG address and/or value out of range",
	4: "mistyped",
}

var wavDesc = map[int]string{
	1: "invalid WAV memory",
	2: "missing WAV address and/or voltage",
	3: "WAV address and/or voltage out of range",
	4: "mistyped",
}

var polyDesc = map[int]string{
	1: "invalid polynomial name",
	2: "missing polynomial coefficient(s)",
	4: "mistyped",
}

var controlDesc = map[int]string{
	1: "invalid DAC channel",
	2: "invalid parameter",
	4: "mistyped",
	5: "writing not allowed",
}

func (f errFamily) descriptions() map[int]string {
	switch f {
	case famSet:
		return setDesc
	case famAWG:
		return awgDesc
	case famWAV:
		return wavDesc
	case famPoly:
		return polyDesc
	default:
		return controlDesc
	}
}

// checkCode interprets the numeric reply to a write command.
// "0" means no error.
func checkCode(f errFamily, cmd, reply string) error {
	reply = strings.TrimSpace(reply)
	if reply == "0" {
		return nil
	}
	code := -1
	if len(reply) == 1 && reply[0] >= '0' && reply[0] <= '9' {
		code = int(reply[0] - '0')
	}
	if code < 0 {
		return fmt.Errorf("%s: unexpected reply %q to write command", cmd, reply)
	}
	desc, ok := f.descriptions()[code]
	if !ok {
		desc = "unknown error"
	}
	return &CmdError{Cmd: cmd, Code: code, Desc: desc}
}
