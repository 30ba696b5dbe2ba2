package basel

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/qtlab/instruments/comm"
	"github.com/qtlab/instruments/util"

	"github.com/tarm/serial"
	"golang.org/x/time/rate"
)

const (
	// NumChannels is the channel count of a fully populated SP1060
	NumChannels = 24

	commTimeout = 3 * time.Second

	// replies to multi-line info queries trail in within this window
	drainTimeout = 250 * time.Millisecond
)

// Bandwidth selects the output filter of a channel
type Bandwidth string

// the two output bandwidths
const (
	LowBandwidth  Bandwidth = "LBW"
	HighBandwidth Bandwidth = "HBW"
)

// Board identifies one of the two 12-channel DAC boards, or both
type Board string

// board designators for update-mode and sync commands.  The lower board
// carries channels 1-12, the higher board 13-24.
const (
	BoardLower  Board = "L"
	BoardHigher Board = "H"
	BothBoards  Board = "HL"
)

// voltRange bounds everything that ends up on an output pin
var voltRange = util.Limiter{Min: -10, Max: 10}

// SP1060 talks to a Basel LNHR DAC SP1060.
//
// Every write command is answered with a numeric code, so all traffic is
// query-response.  Writes are paced to the 1 kHz ceiling the device imposes
// on SET commands.
type SP1060 struct {
	pool *comm.Pool

	// pace holds SET commands to the instrument's 1 ms floor
	pace *rate.Limiter

	// Step and InterDelay bound the output slew of SetVoltage.  Moves
	// larger than Step are decomposed into Step-sized writes separated
	// by InterDelay.  Step <= 0 disables slew limiting.
	Step       float64
	InterDelay time.Duration
}

// NewSP1060 returns a DAC driver talking over TCP to addr ("host:port")
func NewSP1060(addr string) *SP1060 {
	maker := comm.BackingOffTCPConnMaker(addr, commTimeout)
	p := comm.NewPool(1, 30*time.Second, maker)
	return &SP1060{
		pool:       p,
		pace:       rate.NewLimiter(rate.Every(time.Millisecond), 1),
		Step:       0.01,
		InterDelay: 20 * time.Millisecond,
	}
}

// NewSP1060Serial returns a DAC driver talking over a serial port.
// The instrument runs 115200 8N1 with XON/XOFF flow control.
func NewSP1060Serial(cfg *serial.Config) *SP1060 {
	maker := comm.SerialConnMaker(cfg)
	p := comm.NewPool(1, 30*time.Second, maker)
	return &SP1060{
		pool:       p,
		pace:       rate.NewLimiter(rate.Every(time.Millisecond), 1),
		Step:       0.01,
		InterDelay: 20 * time.Millisecond,
	}
}

// txrx sends one command and reads one reply line.  Lines in both
// directions are CRLF terminated.
func (d *SP1060) txrx(cmd string) (string, error) {
	conn, err := d.pool.Get()
	if err != nil {
		return "", err
	}
	var resp string
	wrap, err := comm.NewTimeout(conn, commTimeout)
	if err == nil {
		term := comm.NewTerminator(wrap, '\n', '\n')
		_, err = term.Write([]byte(cmd + "\r"))
		if err == nil {
			buf := make([]byte, 1500)
			var n int
			n, err = term.Read(buf)
			if err == nil {
				resp = strings.TrimRight(string(buf[:n]), "\r")
			}
		}
	}
	d.pool.ReturnWithError(conn, err)
	return resp, err
}

// txrxMulti sends one command and collects the reply lines of queries that
// answer with several CRLF terminated statements (HARD?, SOFT?).  Reading
// stops at the first timeout after at least one line arrived.
func (d *SP1060) txrxMulti(cmd string) ([]string, error) {
	conn, err := d.pool.Get()
	if err != nil {
		return nil, err
	}
	var lines []string
	wrap, err := comm.NewTimeout(conn, commTimeout)
	if err == nil {
		term := comm.NewTerminator(wrap, '\n', '\n')
		_, err = term.Write([]byte(cmd + "\r"))
		if err == nil {
			drain, _ := comm.NewTimeout(conn, drainTimeout)
			first := term
			rest := comm.NewTerminator(drain, '\n', '\n')
			for {
				buf := make([]byte, 1500)
				n, rerr := first.Read(buf)
				if rerr != nil {
					if len(lines) == 0 {
						err = rerr
					}
					break
				}
				lines = append(lines, strings.TrimRight(string(buf[:n]), "\r"))
				first = rest
			}
		}
	}
	// the drain timeout is how the read loop ends, not a spoiled conn
	d.pool.ReturnWithError(conn, err)
	return lines, err
}

// write sends a command whose reply is a numeric error code
func (d *SP1060) write(f errFamily, cmd string) error {
	d.pace.Wait(context.Background())
	resp, err := d.txrx(cmd)
	if err != nil {
		return err
	}
	return checkCode(f, cmd, resp)
}

func (d *SP1060) queryFloat(cmd string) (float64, error) {
	resp, err := d.txrx(cmd)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(resp), 64)
}

func (d *SP1060) queryInt(cmd string) (int, error) {
	resp, err := d.txrx(cmd)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(resp))
}

func (d *SP1060) queryBool(cmd string) (bool, error) {
	i, err := d.queryInt(cmd)
	return i == 1, err
}

func checkChannel(ch int) error {
	if ch < 1 || ch > NumChannels {
		return fmt.Errorf("channel %d out of range [1, %d]", ch, NumChannels)
	}
	return nil
}

// SetVoltageImmediate writes a channel voltage in a single step,
// ignoring the slew limit
func (d *SP1060) SetVoltageImmediate(ch int, v float64) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	hex, err := EncodeVolt(v)
	if err != nil {
		return err
	}
	return d.write(famSet, fmt.Sprintf("%d %s", ch, hex))
}

// SetVoltage writes a channel voltage, decomposing moves larger than Step
// into Step-sized writes separated by InterDelay
func (d *SP1060) SetVoltage(ch int, v float64) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if !voltRange.Check(v) {
		return voltRange.Error("voltage", v)
	}
	if d.Step <= 0 {
		return d.SetVoltageImmediate(ch, v)
	}
	cur, err := d.Voltage(ch)
	if err != nil {
		return err
	}
	for {
		delta := v - cur
		if delta < 0 {
			delta = -delta
		}
		if delta <= d.Step {
			return d.SetVoltageImmediate(ch, v)
		}
		if v > cur {
			cur += d.Step
		} else {
			cur -= d.Step
		}
		if err := d.SetVoltageImmediate(ch, cur); err != nil {
			return err
		}
		time.Sleep(d.InterDelay)
	}
}

// Voltage reads the actual output voltage of a channel
func (d *SP1060) Voltage(ch int) (float64, error) {
	if err := checkChannel(ch); err != nil {
		return 0, err
	}
	resp, err := d.txrx(fmt.Sprintf("%d V?", ch))
	if err != nil {
		return 0, err
	}
	return DecodeVolt(resp)
}

// RegisteredVoltage reads the voltage registered for a channel.  In
// synchronous update mode this differs from the output until a Sync.
func (d *SP1060) RegisteredVoltage(ch int) (float64, error) {
	if err := checkChannel(ch); err != nil {
		return 0, err
	}
	resp, err := d.txrx(fmt.Sprintf("%d VR?", ch))
	if err != nil {
		return 0, err
	}
	return DecodeVolt(resp)
}

// SetAllVoltages writes the same voltage to every channel in one command
func (d *SP1060) SetAllVoltages(v float64) error {
	hex, err := EncodeVolt(v)
	if err != nil {
		return err
	}
	return d.write(famSet, "ALL "+hex)
}

// Output satisfies the DAC interface of generichttp/daq
func (d *SP1060) Output(ch int, v float64) error {
	return d.SetVoltage(ch, v)
}

// OutputMulti writes several channels; the slices must be of equal length
func (d *SP1060) OutputMulti(chs []int, vs []float64) error {
	if len(chs) != len(vs) {
		return fmt.Errorf("%d channels but %d voltages", len(chs), len(vs))
	}
	for i, ch := range chs {
		if err := d.SetVoltage(ch, vs[i]); err != nil {
			return err
		}
	}
	return nil
}

// On turns a channel's output on
func (d *SP1060) On(ch int) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	return d.write(famSet, fmt.Sprintf("%d ON", ch))
}

// Off turns a channel's output off
func (d *SP1060) Off(ch int) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	return d.write(famSet, fmt.Sprintf("%d OFF", ch))
}

// AllOn turns every channel on
func (d *SP1060) AllOn() error {
	return d.write(famSet, "ALL ON")
}

// AllOff turns every channel off
func (d *SP1060) AllOff() error {
	return d.write(famSet, "ALL OFF")
}

// ChannelOn reads whether a channel's output is on
func (d *SP1060) ChannelOn(ch int) (bool, error) {
	if err := checkChannel(ch); err != nil {
		return false, err
	}
	resp, err := d.txrx(fmt.Sprintf("%d S?", ch))
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(resp), "ON"), nil
}

// SetBandwidth selects the output filter of a channel
func (d *SP1060) SetBandwidth(ch int, bw Bandwidth) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	return d.write(famSet, fmt.Sprintf("%d %s", ch, bw))
}

// SetAllBandwidths selects the output filter of every channel
func (d *SP1060) SetAllBandwidths(bw Bandwidth) error {
	return d.write(famSet, fmt.Sprintf("ALL %s", bw))
}

// GetBandwidth reads the output filter of a channel
func (d *SP1060) GetBandwidth(ch int) (Bandwidth, error) {
	if err := checkChannel(ch); err != nil {
		return "", err
	}
	resp, err := d.txrx(fmt.Sprintf("%d BW?", ch))
	return Bandwidth(strings.TrimSpace(resp)), err
}

// Mode reads the mode tag of a channel, one of ERR/DAC/SYN/RMP/AWG/---
func (d *SP1060) Mode(ch int) (string, error) {
	if err := checkChannel(ch); err != nil {
		return "", err
	}
	resp, err := d.txrx(fmt.Sprintf("%d M?", ch))
	return strings.TrimSpace(resp), err
}

// queryAll issues an ALL query and splits the semicolon separated reply
func (d *SP1060) queryAll(cmd string) ([]string, error) {
	resp, err := d.txrx(cmd)
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimSpace(resp), ";"), nil
}

// AllVoltages reads the output voltages of all 24 channels
func (d *SP1060) AllVoltages() ([]float64, error) {
	pieces, err := d.queryAll("ALL V?")
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(pieces))
	for i, p := range pieces {
		out[i], err = DecodeVolt(p)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// AllStatuses reads the ON/OFF status of all channels
func (d *SP1060) AllStatuses() ([]bool, error) {
	pieces, err := d.queryAll("ALL S?")
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(pieces))
	for i, p := range pieces {
		out[i] = strings.EqualFold(strings.TrimSpace(p), "ON")
	}
	return out, nil
}

// AllBandwidths reads the output filters of all channels
func (d *SP1060) AllBandwidths() ([]Bandwidth, error) {
	pieces, err := d.queryAll("ALL BW?")
	if err != nil {
		return nil, err
	}
	out := make([]Bandwidth, len(pieces))
	for i, p := range pieces {
		out[i] = Bandwidth(strings.TrimSpace(p))
	}
	return out, nil
}

// AllModes reads the mode tags of all channels
func (d *SP1060) AllModes() ([]string, error) {
	pieces, err := d.queryAll("ALL M?")
	if err != nil {
		return nil, err
	}
	for i := range pieces {
		pieces[i] = strings.TrimSpace(pieces[i])
	}
	return pieces, nil
}

// SetSynchronousUpdate selects the update mode of a board.  In synchronous
// mode written DAC values are registered and only hit the output pins on
// the next Sync; otherwise writes take effect immediately.  Boards must be
// addressed individually here, BothBoards is only valid for Sync.
func (d *SP1060) SetSynchronousUpdate(b Board, sync bool) error {
	if b == BothBoards {
		return fmt.Errorf("update mode must be set per board")
	}
	v := 0
	if sync {
		v = 1
	}
	return d.write(famControl, fmt.Sprintf("C UM-%s %d", b, v))
}

// SynchronousUpdate reads whether a board is in synchronous update mode
func (d *SP1060) SynchronousUpdate(b Board) (bool, error) {
	if b == BothBoards {
		return false, fmt.Errorf("update mode is per board")
	}
	return d.queryBool(fmt.Sprintf("C UM-%s?", b))
}

// Sync applies the registered voltages of one or both boards
func (d *SP1060) Sync(b Board) error {
	return d.write(famControl, fmt.Sprintf("C SYNC-%s", b))
}

// Set1MHzClock turns the 1 MHz reference clock output on or off
func (d *SP1060) Set1MHzClock(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return d.write(famControl, fmt.Sprintf("C AWG-1MHz %d", v))
}

// Get1MHzClock reads whether the 1 MHz reference clock output is on
func (d *SP1060) Get1MHzClock() (bool, error) {
	return d.queryBool("C AWG-1MHz?")
}

// Serial returns the serial number of the device
func (d *SP1060) Serial() (string, error) {
	lines, err := d.txrxMulti("HARD?")
	if err != nil {
		return "", err
	}
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if strings.HasPrefix(l, "SN ") {
			return strings.TrimSpace(l[3:]), nil
		}
	}
	if len(lines) > 1 {
		return strings.TrimSpace(lines[1]), nil
	}
	return strings.TrimSpace(lines[0]), nil
}

// Firmware returns the firmware revision of the device
func (d *SP1060) Firmware() (string, error) {
	lines, err := d.txrxMulti("SOFT?")
	if err != nil {
		return "", err
	}
	l := strings.TrimSpace(lines[len(lines)-1])
	if len(l) > 5 {
		l = l[len(l)-5:]
	}
	return l, nil
}

// Identification assembles an IDN-style string for the device
func (d *SP1060) Identification() (string, error) {
	sn, err := d.Serial()
	if err != nil {
		return "", err
	}
	fw, err := d.Firmware()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("BasPI,LNHR DAC SP1060,%s,%s", sn, fw), nil
}

// Health reads the health summary of the device
func (d *SP1060) Health() (string, error) {
	return d.txrx("HEALTH?")
}

// IPAddress reads the IP address the device believes it has
func (d *SP1060) IPAddress() (string, error) {
	return d.txrx("IP?")
}

// Contact reads the manufacturer contact line
func (d *SP1060) Contact() (string, error) {
	return d.txrx("CONTACT?")
}

// Overview reads the multi-line status overview ("?" command)
func (d *SP1060) Overview() (string, error) {
	lines, err := d.txrxMulti("?")
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

// Raw sends a command verbatim and returns the single-line reply
func (d *SP1060) Raw(cmd string) (string, error) {
	return d.txrx(cmd)
}
