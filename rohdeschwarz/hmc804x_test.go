package rohdeschwarz

import (
	"bufio"
	"net"
	"strings"
	"testing"
)

const noError = `+0,"No error"`

func scriptedSupply(t *testing.T, script map[string]string) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				sc := bufio.NewScanner(c)
				for sc.Scan() {
					cmd := strings.TrimRight(sc.Text(), "\r")
					if resp, ok := script[cmd]; ok {
						c.Write([]byte(resp + "\n"))
					}
				}
			}(conn)
		}
	}()
	return l.Addr().String()
}

func hs(cmd string) string {
	return "*CLS; " + cmd + " ;:SYSTem:ERRor?"
}

func newSupply(t *testing.T, channels int, script map[string]string) *HMC804x {
	t.Helper()
	p, err := NewHMC804x(scriptedSupply(t, script), channels)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestModelValidation(t *testing.T) {
	if _, err := NewHMC804x("localhost:1", 4); err == nil {
		t.Error("4 channels matches no model and should be rejected")
	}
	p := newSupply(t, 2, nil)
	if p.MaxCurrent() != 5 {
		t.Errorf("got %G A ceiling for the two channel model, want 5", p.MaxCurrent())
	}
	if _, err := p.Channel(3); err == nil {
		t.Error("channel 3 on a two channel model should be rejected")
	}
}

func TestChannelVoltage(t *testing.T) {
	p := newSupply(t, 3, map[string]string{
		hs(":INSTrument:NSELect 1; :SOURce:VOLTage:LEVel:IMMediate:AMPLitude 5"):  noError,
		hs(":INSTrument:NSELect 1; :SOURce:VOLTage:LEVel:IMMediate:AMPLitude?"):   "5;" + noError,
		hs(":INSTrument:NSELect 1; :MEASure:SCALar:VOLTage:DC?"):                  "4.998;" + noError,
	})
	ch, err := p.Channel(1)
	if err != nil {
		t.Fatal(err)
	}
	if err := ch.SetVoltage(5); err != nil {
		t.Fatal(err)
	}
	v, err := ch.GetVoltage()
	if err != nil {
		t.Fatal(err)
	}
	if v != 5 {
		t.Errorf("got %G V, want 5", v)
	}
	m, err := ch.MeasureVoltage()
	if err != nil {
		t.Fatal(err)
	}
	if m != 4.998 {
		t.Errorf("got %G V measured, want 4.998", m)
	}
	if err := ch.SetVoltage(33); err == nil {
		t.Error("33 V is above the hardware ceiling and should be rejected")
	}
}

func TestCurrentCeilingByModel(t *testing.T) {
	p := newSupply(t, 3, nil)
	ch, err := p.Channel(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := ch.SetCurrent(4); err == nil {
		t.Error("4 A is above the three channel model ceiling and should be rejected")
	}
}

func TestSmartCurrent(t *testing.T) {
	p := newSupply(t, 3, map[string]string{
		hs("APPLy MAX,0.1,OUT1"):    noError,
		hs("APPLy 0,0.0005,OUT1"):   noError,
		hs(":INSTrument:NSELect 1; :SOURce:VOLTage:LEVel:IMMediate:AMPLitude?"): "0;" + noError,
	})
	ch, err := p.Channel(1)
	if err != nil {
		t.Fatal(err)
	}
	if err := ch.SetSmartCurrent(0.1); err != nil {
		t.Fatal(err)
	}
	// at or below the floor the rail is zeroed instead
	if err := ch.SetSmartCurrent(0); err != nil {
		t.Fatal(err)
	}
	i, err := ch.SmartCurrent()
	if err != nil {
		t.Fatal(err)
	}
	if i != 0 {
		t.Errorf("got %G A from a zeroed rail, want 0", i)
	}
}

func TestBipolarCrossover(t *testing.T) {
	p := newSupply(t, 2, map[string]string{
		hs(":INSTrument:NSELect 1; :SOURce:VOLTage:LEVel:IMMediate:AMPLitude 0"):   noError,
		hs(":INSTrument:NSELect 1; :OUTPut:CHANnel:STATe 0"):                       noError,
		hs(":INSTrument:NSELect 2; :SOURce:VOLTage:LEVel:IMMediate:AMPLitude 2.5"): noError,
		hs(":INSTrument:NSELect 2; :OUTPut:CHANnel:STATe 1"):                       noError,
		hs(":INSTrument:NSELect 1; :OUTPut:CHANnel:STATe?"):                        "0;" + noError,
		hs(":INSTrument:NSELect 2; :OUTPut:CHANnel:STATe?"):                        "1;" + noError,
		hs(":INSTrument:NSELect 2; :SOURce:VOLTage:LEVel:IMMediate:AMPLitude?"):    "2.5;" + noError,
	})
	bip, err := p.Bipolar(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := bip.SetVoltage(-2.5); err != nil {
		t.Fatal(err)
	}
	v, err := bip.GetVoltage()
	if err != nil {
		t.Fatal(err)
	}
	if v != -2.5 {
		t.Errorf("got %G V, want -2.5", v)
	}
}

func TestBipolarBothOnIsAnError(t *testing.T) {
	p := newSupply(t, 2, map[string]string{
		hs(":INSTrument:NSELect 1; :OUTPut:CHANnel:STATe?"): "1;" + noError,
		hs(":INSTrument:NSELect 2; :OUTPut:CHANnel:STATe?"): "1;" + noError,
	})
	bip, err := p.Bipolar(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bip.GetVoltage(); err == nil {
		t.Error("both sides on should be an error")
	}
}
