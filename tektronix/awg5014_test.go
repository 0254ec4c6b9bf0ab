package tektronix

import (
	"bufio"
	"bytes"
	"net"
	"strings"
	"testing"
)

const okField = `0,"No error"`

// scpiServer runs a one-connection SCPI stub on localhost.  Each
// newline-terminated command is passed to handler; a non-empty return is
// sent back with a terminator.
func scpiServer(t *testing.T, handler func(cmd string) string) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		rdr := bufio.NewReader(conn)
		for {
			line, err := rdr.ReadString('\n')
			if err != nil {
				return
			}
			resp := handler(strings.TrimSuffix(line, "\n"))
			if resp != "" {
				conn.Write([]byte(resp + "\n"))
			}
		}
	}()
	return l.Addr().String()
}

// unwrapHandshake strips the *CLS prefix and error query suffix the
// handshaking layer adds around every command
func unwrapHandshake(cmd string) string {
	cmd = strings.TrimPrefix(cmd, "*CLS; ")
	cmd = strings.TrimSuffix(cmd, " ;:SYSTem:ERRor?")
	return strings.TrimSpace(cmd)
}

func TestGetStateParsesRunState(t *testing.T) {
	addr := scpiServer(t, func(cmd string) string {
		if unwrapHandshake(cmd) != "AWGControl:RSTATe?" {
			t.Errorf("unexpected command %q", cmd)
		}
		return "2;" + okField
	})
	awg := NewAWG5014(addr)
	defer awg.Pool.Drain()
	state, err := awg.GetState()
	if err != nil {
		t.Fatal(err)
	}
	if state != Running {
		t.Errorf("got state %d, want %d", state, Running)
	}
}

func TestRunChecksHandshake(t *testing.T) {
	var got string
	addr := scpiServer(t, func(cmd string) string {
		got = unwrapHandshake(cmd)
		return okField
	})
	awg := NewAWG5014(addr)
	defer awg.Pool.Drain()
	if err := awg.Run(); err != nil {
		t.Fatal(err)
	}
	if got != "AWGControl:RUN" {
		t.Errorf("sent %q, want AWGControl:RUN", got)
	}
}

func TestWriteSurfacesDeviceError(t *testing.T) {
	addr := scpiServer(t, func(cmd string) string {
		return `-113,"Undefined header"`
	})
	awg := NewAWG5014(addr)
	defer awg.Pool.Drain()
	err := awg.Stop()
	if err == nil {
		t.Fatal("expected device error to surface")
	}
	if !strings.Contains(err.Error(), "-113") {
		t.Errorf("error %q does not carry the device message", err)
	}
}

func TestChannelCommandsAddressTheChannel(t *testing.T) {
	var got string
	addr := scpiServer(t, func(cmd string) string {
		got = unwrapHandshake(cmd)
		if strings.HasSuffix(got, "?") {
			return "1.5;" + okField
		}
		return okField
	})
	awg := NewAWG5014(addr)
	defer awg.Pool.Drain()

	v, err := awg.GetAmplitude(3)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1.5 {
		t.Errorf("got amplitude %f, want 1.5", v)
	}
	if got != "SOURce3:VOLTage:LEVel:IMMediate:AMPLitude?" {
		t.Errorf("sent %q", got)
	}

	if err := awg.SetOutputState(2, true); err != nil {
		t.Fatal(err)
	}
	if got != "OUTPut2:STATe 1" {
		t.Errorf("sent %q", got)
	}
}

func TestSetRunModeRejectsUnknownMode(t *testing.T) {
	awg := NewAWG5014("127.0.0.1:1")
	defer awg.Pool.Drain()
	if err := awg.SetRunMode("WOBBLE"); err == nil {
		t.Error("expected an error for an unknown run mode")
	}
}

func TestSetGotoDisableAndEnable(t *testing.T) {
	var cmds []string
	addr := scpiServer(t, func(cmd string) string {
		cmds = append(cmds, unwrapHandshake(cmd))
		return okField
	})
	awg := NewAWG5014(addr)
	defer awg.Pool.Drain()

	if err := awg.SetGoto(2, 0); err != nil {
		t.Fatal(err)
	}
	if err := awg.SetGoto(2, 5); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"SEQuence:ELEMent2:GOTO:STATe 0",
		"SEQuence:ELEMent2:GOTO:INDex 5",
		"SEQuence:ELEMent2:GOTO:STATe 1",
	}
	if len(cmds) != len(want) {
		t.Fatalf("sent %d commands, want %d: %v", len(cmds), len(want), cmds)
	}
	for i := range want {
		if cmds[i] != want[i] {
			t.Errorf("command %d was %q, want %q", i, cmds[i], want[i])
		}
	}
}

func TestRawBypassesHandshakeAndLeavesItEnabled(t *testing.T) {
	var cmds []string
	addr := scpiServer(t, func(cmd string) string {
		cmds = append(cmds, cmd)
		if strings.HasPrefix(cmd, "*IDN?") {
			return "TEKTRONIX,AWG5014"
		}
		return "2;" + okField
	})
	awg := NewAWG5014(addr)
	defer awg.Pool.Drain()

	resp, err := awg.Raw("*IDN?")
	if err != nil {
		t.Fatal(err)
	}
	if resp != "TEKTRONIX,AWG5014" {
		t.Errorf("got %q", resp)
	}
	if cmds[0] != "*IDN?" {
		t.Errorf("raw command was wrapped: %q", cmds[0])
	}

	// the shared SCPI layer must still handshake afterward
	if !awg.Handshaking {
		t.Fatal("raw call left handshaking disabled")
	}
	if _, err := awg.GetState(); err != nil {
		t.Fatal(err)
	}
	if unwrapHandshake(cmds[1]) == cmds[1] {
		t.Errorf("followup command was not handshaken: %q", cmds[1])
	}
}

func TestSendFileWritesDefiniteLengthBlock(t *testing.T) {
	contents := []byte{1, 2, '\n', 4, 5}
	prefix := `MMEMory:DATA "f.awg",#15`
	wantLen := len(prefix) + len(contents) + 1

	received := make(chan []byte, 1)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, wantLen)
		total := 0
		for total < wantLen {
			n, err := conn.Read(buf[total:])
			if err != nil {
				return
			}
			total += n
		}
		received <- buf
	}()

	awg := NewAWG5014(l.Addr().String())
	defer awg.Pool.Drain()
	if err := awg.SendFile("f.awg", contents); err != nil {
		t.Fatal(err)
	}
	got := <-received
	if !bytes.HasPrefix(got, []byte(prefix)) {
		t.Errorf("message does not start with %q: %q", prefix, got)
	}
	if !bytes.Equal(got[len(prefix):wantLen-1], contents) {
		t.Errorf("payload mangled: %v", got[len(prefix):wantLen-1])
	}
	if got[wantLen-1] != '\n' {
		t.Error("message not terminated")
	}
}

func TestSequenceSettingsSnapshotsInstrument(t *testing.T) {
	replies := map[string]string{
		"SOURce:FREQuency?":           "1.0E+9",
		"AWGControl:CLOCk:SOURce?":    "INT",
		"SOURce1:ROSCillator:SOURce?": "EXT",
		"TRIGger:SOURce?":             "EXT",
		"TRIGger:IMPedance?":          "50",
		"TRIGger:SLOPe?":              "POS",
		"TRIGger:POLarity?":           "NEG",
		"TRIGger:LEVel?":              "0.25",
		"EVENt:IMPedance?":            "1000",
		"EVENt:POL?":                  "POS",
		"EVENt:LEVel?":                "1.1",
		"EVENt:JTIMing?":              "SYNC",
	}
	addr := scpiServer(t, func(cmd string) string {
		base := unwrapHandshake(cmd)
		v, ok := replies[base]
		if !ok {
			t.Errorf("unexpected command %q", base)
			return okField
		}
		return v + ";" + okField
	})
	awg := NewAWG5014(addr)
	defer awg.Pool.Drain()

	s, err := awg.SequenceSettings()
	if err != nil {
		t.Fatal(err)
	}
	checks := map[string]interface{}{
		"SAMPLING_RATE":           1.0e9,
		"CLOCK_SOURCE":            1,
		"REFERENCE_SOURCE":        2,
		"TRIGGER_SOURCE":          1,
		"TRIGGER_INPUT_IMPEDANCE": 1,
		"TRIGGER_INPUT_SLOPE":     1,
		"TRIGGER_INPUT_POLARITY":  2,
		"TRIGGER_INPUT_THRESHOLD": 0.25,
		"EVENT_INPUT_IMPEDANCE":   2,
		"EVENT_INPUT_POLARITY":    1,
		"EVENT_INPUT_THRESHOLD":   1.1,
		"JUMP_TIMING":             1,
		"RUN_MODE":                4,
		"RUN_STATE":               0,
	}
	for k, want := range checks {
		if s[k] != want {
			t.Errorf("%s = %v, want %v", k, s[k], want)
		}
	}
}
