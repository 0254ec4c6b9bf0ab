// Package tektronix provides an interface to Tektronix arbitrary waveform generators
package tektronix

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/jpsecher/labawg/awgfile"
	"github.com/jpsecher/labawg/comm"
	"github.com/jpsecher/labawg/scpi"
	"github.com/jpsecher/labawg/usbtmc"
)

// run states reported by AWGControl:RSTATe?
const (
	// Stopped means the instrument is idle and outputting nothing
	Stopped = 0

	// WaitingForTrigger means a waveform is armed, pending a trigger
	WaitingForTrigger = 1

	// Running means the instrument is outputting
	Running = 2
)

// uploadTimeout is the exchange timeout used for bulk file transfers,
// which take far longer than scalar queries
const uploadTimeout = 2 * time.Minute

// uploadFolder is where .awg files land on the instrument's disk.  The
// default working directory on the embedded Windows machine is not
// writable.
const uploadFolder = `C:\Users\OEM\Documents`

// runModes are the mnemonics accepted by AWGControl:RMODe
var runModes = map[string]struct{}{
	"CONT": {},
	"TRIG": {},
	"GAT":  {},
	"SEQ":  {},
}

// analogFilterCodes translates OUTPut:FILTer:FREQuency readings in Hz to
// the codes used in settings files.  9.9e37 is SCPI positive infinity,
// i.e. the filter is off.
var analogFilterCodes = map[float64]int{
	20e6:   1,
	100e6:  3,
	9.9e37: 10,
}

// AWG5014 is an interface to a Tektronix AWG5014 arbitrary waveform generator
type AWG5014 struct {
	scpi.SCPI
}

// NewAWG5014 creates a new AWG5014 instance reached over ethernet
func NewAWG5014(addr string) *AWG5014 {
	maker := comm.BackingOffTCPConnMaker(addr, 3*time.Second)
	pool := comm.NewPool(1, time.Hour, maker)
	return &AWG5014{scpi.SCPI{Pool: pool, Handshaking: true}}
}

// NewAWG5014USB creates a new AWG5014 instance reached over USBTMC
func NewAWG5014USB(vid, pid uint16) *AWG5014 {
	pool := comm.NewPool(1, time.Hour, usbtmc.Maker(vid, pid))
	return &AWG5014{scpi.SCPI{Pool: pool, Handshaking: true}}
}

// Run starts output of a waveform or sequence, equivalent to pressing
// the run button on the front panel
func (a *AWG5014) Run() error {
	return a.Write("AWGControl:RUN")
}

// Stop stops output of a waveform or sequence
func (a *AWG5014) Stop() error {
	return a.Write("AWGControl:STOP")
}

// GetState reads the run state of the instrument, one of the Stopped,
// WaitingForTrigger, or Running constants
func (a *AWG5014) GetState() (int, error) {
	return a.ReadInt("AWGControl:RSTATe?")
}

// ForceTrigger generates a trigger event, equivalent to pressing the
// force trigger button on the front panel
func (a *AWG5014) ForceTrigger() error {
	return a.Write("*TRG")
}

// ForceEvent generates a forced event, which the sequencer may jump on
func (a *AWG5014) ForceEvent() error {
	return a.Write("EVENt:IMMediate")
}

// Ready blocks until all pending operations on the instrument complete,
// then returns true
func (a *AWG5014) Ready() (bool, error) {
	return a.ReadBool("*OPC?")
}

// GetDCOutput queries if the auxiliary DC outputs are active
func (a *AWG5014) GetDCOutput() (bool, error) {
	return a.ReadBool("AWGControl:DC:STATe?")
}

// SetDCOutput turns the auxiliary DC outputs on or off.  The four outputs
// share one state.
func (a *AWG5014) SetDCOutput(on bool) error {
	mnemonic := "0"
	if on {
		mnemonic = "1"
	}
	return a.Write("AWGControl:DC:STATe " + mnemonic)
}

// GetDCLevel reads the level of an auxiliary DC output in volts
func (a *AWG5014) GetDCLevel(ch int) (float64, error) {
	return a.ReadFloat(fmt.Sprintf("AWGControl:DC%d:VOLTage:OFFSet?", ch))
}

// SetDCLevel sets the level of an auxiliary DC output in volts
func (a *AWG5014) SetDCLevel(ch int, volts float64) error {
	return a.Write(fmt.Sprintf("AWGControl:DC%d:VOLTage:OFFSet %.3f", ch, volts))
}

// GetClockFrequency reads the sampling clock frequency in Hz
func (a *AWG5014) GetClockFrequency() (float64, error) {
	return a.ReadFloat("SOURce:FREQuency?")
}

// SetClockFrequency sets the sampling clock frequency in Hz
func (a *AWG5014) SetClockFrequency(hz float64) error {
	return a.Write(fmt.Sprintf("SOURce:FREQuency %E", hz))
}

// GetRunMode reads the run mode, one of CONT, TRIG, GAT, SEQ
func (a *AWG5014) GetRunMode() (string, error) {
	return a.ReadString("AWGControl:RMODe?")
}

// SetRunMode sets the run mode to one of CONT, TRIG, GAT, SEQ
func (a *AWG5014) SetRunMode(mode string) error {
	mode = strings.ToUpper(mode)
	if _, ok := runModes[mode]; !ok {
		return fmt.Errorf("run mode %q not one of CONT, TRIG, GAT, SEQ", mode)
	}
	return a.Write("AWGControl:RMODe " + mode)
}

// GetClockSource reads the sampling clock source, INT or EXT
func (a *AWG5014) GetClockSource() (string, error) {
	return a.ReadString("AWGControl:CLOCk:SOURce?")
}

// SetClockSource sets the sampling clock source, INT or EXT
func (a *AWG5014) SetClockSource(src string) error {
	return a.Write("AWGControl:CLOCk:SOURce " + src)
}

// GetReferenceSource reads the reference oscillator source, INT or EXT
func (a *AWG5014) GetReferenceSource() (string, error) {
	return a.ReadString("SOURce1:ROSCillator:SOURce?")
}

// SetReferenceSource sets the reference oscillator source, INT or EXT
func (a *AWG5014) SetReferenceSource(src string) error {
	return a.Write("SOURce1:ROSCillator:SOURce " + src)
}

// GetTriggerSource reads the trigger source, INT or EXT
func (a *AWG5014) GetTriggerSource() (string, error) {
	return a.ReadString("TRIGger:SOURce?")
}

// SetTriggerSource sets the trigger source, INT or EXT
func (a *AWG5014) SetTriggerSource(src string) error {
	return a.Write("TRIGger:SOURce " + src)
}

// GetTriggerImpedance reads the trigger input impedance in ohms (50 or 1000)
func (a *AWG5014) GetTriggerImpedance() (float64, error) {
	return a.ReadFloat("TRIGger:IMPedance?")
}

// GetTriggerLevel reads the trigger input threshold in volts
func (a *AWG5014) GetTriggerLevel() (float64, error) {
	return a.ReadFloat("TRIGger:LEVel?")
}

// SetTriggerLevel sets the trigger input threshold in volts
func (a *AWG5014) SetTriggerLevel(volts float64) error {
	return a.Write(fmt.Sprintf("TRIGger:LEVel %.3f", volts))
}

// GetTriggerSlope reads the trigger slope, POS or NEG
func (a *AWG5014) GetTriggerSlope() (string, error) {
	return a.ReadString("TRIGger:SLOPe?")
}

// GetTriggerPolarity reads the trigger polarity, POS or NEG
func (a *AWG5014) GetTriggerPolarity() (string, error) {
	return a.ReadString("TRIGger:POLarity?")
}

// GetEventImpedance reads the event input impedance in ohms (50 or 1000)
func (a *AWG5014) GetEventImpedance() (float64, error) {
	return a.ReadFloat("EVENt:IMPedance?")
}

// GetEventPolarity reads the event polarity, POS or NEG
func (a *AWG5014) GetEventPolarity() (string, error) {
	return a.ReadString("EVENt:POL?")
}

// GetEventLevel reads the event input threshold in volts
func (a *AWG5014) GetEventLevel() (float64, error) {
	return a.ReadFloat("EVENt:LEVel?")
}

// GetJumpTiming reads the event jump timing, SYNC or ASYNC
func (a *AWG5014) GetJumpTiming() (string, error) {
	return a.ReadString("EVENt:JTIMing?")
}

// GetAmplitude reads the peak to peak voltage of a channel
func (a *AWG5014) GetAmplitude(ch int) (float64, error) {
	return a.ReadFloat(fmt.Sprintf("SOURce%d:VOLTage:LEVel:IMMediate:AMPLitude?", ch))
}

// SetAmplitude sets the peak to peak voltage of a channel
func (a *AWG5014) SetAmplitude(ch int, volts float64) error {
	return a.Write(fmt.Sprintf("SOURce%d:VOLTage:LEVel:IMMediate:AMPLitude %.6f", ch, volts))
}

// GetOffset reads the DC offset of a channel in volts
func (a *AWG5014) GetOffset(ch int) (float64, error) {
	return a.ReadFloat(fmt.Sprintf("SOURce%d:VOLTage:LEVel:IMMediate:OFFSet?", ch))
}

// SetOffset sets the DC offset of a channel in volts
func (a *AWG5014) SetOffset(ch int, volts float64) error {
	return a.Write(fmt.Sprintf("SOURce%d:VOLTage:LEVel:IMMediate:OFFSet %.6f", ch, volts))
}

// GetOutputState queries if the output of a channel is active
func (a *AWG5014) GetOutputState(ch int) (bool, error) {
	return a.ReadBool(fmt.Sprintf("OUTPut%d:STATe?", ch))
}

// SetOutputState turns the output of a channel on or off
func (a *AWG5014) SetOutputState(ch int, on bool) error {
	mnemonic := "0"
	if on {
		mnemonic = "1"
	}
	return a.Write(fmt.Sprintf("OUTPut%d:STATe %s", ch, mnemonic))
}

// GetDirectOutput queries if the direct (unfiltered, unamplified)
// output path of a channel is engaged
func (a *AWG5014) GetDirectOutput(ch int) (bool, error) {
	return a.ReadBool(fmt.Sprintf("AWGControl:DOUTput%d:STATe?", ch))
}

// SetDirectOutput engages or disengages the direct output path of a channel
func (a *AWG5014) SetDirectOutput(ch int, on bool) error {
	mnemonic := "0"
	if on {
		mnemonic = "1"
	}
	return a.Write(fmt.Sprintf("AWGControl:DOUTput%d:STATe %s", ch, mnemonic))
}

// GetFilter reads the lowpass filter cutoff of a channel in Hz.
// 9.9e37 indicates the filter is off.
func (a *AWG5014) GetFilter(ch int) (float64, error) {
	return a.ReadFloat(fmt.Sprintf("OUTPut%d:FILTer:FREQuency?", ch))
}

// SetFilter sets the lowpass filter cutoff of a channel in Hz
func (a *AWG5014) SetFilter(ch int, hz float64) error {
	return a.Write(fmt.Sprintf("OUTPut%d:FILTer:FREQuency %E", ch, hz))
}

// GetChannelWaveform reads the name of the waveform assigned to a channel
func (a *AWG5014) GetChannelWaveform(ch int) (string, error) {
	s, err := a.ReadString(fmt.Sprintf("SOURce%d:WAVeform?", ch))
	return strings.Trim(s, `"`), err
}

// SetChannelWaveform assigns a waveform from the waveform list to a channel
func (a *AWG5014) SetChannelWaveform(ch int, name string) error {
	return a.Write(fmt.Sprintf(`SOURce%d:WAVeform "%s"`, ch, name))
}

// GetMarkerHigh reads the logic high level of a marker in volts
func (a *AWG5014) GetMarkerHigh(ch, marker int) (float64, error) {
	return a.ReadFloat(fmt.Sprintf("SOURce%d:MARKer%d:VOLTage:LEVel:IMMediate:HIGH?", ch, marker))
}

// SetMarkerHigh sets the logic high level of a marker in volts
func (a *AWG5014) SetMarkerHigh(ch, marker int, volts float64) error {
	return a.Write(fmt.Sprintf("SOURce%d:MARKer%d:VOLTage:LEVel:IMMediate:HIGH %.3f", ch, marker, volts))
}

// GetMarkerLow reads the logic low level of a marker in volts
func (a *AWG5014) GetMarkerLow(ch, marker int) (float64, error) {
	return a.ReadFloat(fmt.Sprintf("SOURce%d:MARKer%d:VOLTage:LEVel:IMMediate:LOW?", ch, marker))
}

// SetMarkerLow sets the logic low level of a marker in volts
func (a *AWG5014) SetMarkerLow(ch, marker int, volts float64) error {
	return a.Write(fmt.Sprintf("SOURce%d:MARKer%d:VOLTage:LEVel:IMMediate:LOW %.3f", ch, marker, volts))
}

// GetMarkerDelay reads the delay of a marker in seconds
func (a *AWG5014) GetMarkerDelay(ch, marker int) (float64, error) {
	return a.ReadFloat(fmt.Sprintf("SOURce%d:MARKer%d:DELay?", ch, marker))
}

// SetMarkerDelay sets the delay of a marker in nanoseconds.  The
// instrument itself works in seconds; the conversion happens here.
func (a *AWG5014) SetMarkerDelay(ch, marker int, nanoseconds float64) error {
	return a.Write(fmt.Sprintf("SOURce%d:MARKer%d:DELay %.3fe-9", ch, marker, nanoseconds))
}

// GetSequenceLength reads the number of elements in the sequencer
func (a *AWG5014) GetSequenceLength() (int, error) {
	return a.ReadInt("SEQuence:LENGth?")
}

// SetSequenceLength sets the number of elements in the sequencer.
// Setting zero deletes the sequence.
func (a *AWG5014) SetSequenceLength(n int) error {
	return a.Write(fmt.Sprintf("SEQuence:LENGth %d", n))
}

// GetSequencerType reads whether the hardware (HARD) or software (SOFT)
// sequencer is executing the sequence
func (a *AWG5014) GetSequencerType() (string, error) {
	return a.ReadString("AWGControl:SEQuence:TYPE?")
}

// GetSequencerPosition reads the element the sequencer is currently at
func (a *AWG5014) GetSequencerPosition() (int, error) {
	return a.ReadInt("AWGControl:SEQuence:POSition?")
}

// SetLoopCount sets the repetition count of a sequence element.
// Ignored while the element loops infinitely.
func (a *AWG5014) SetLoopCount(element, count int) error {
	if count < 1 || count > awgfile.MaxLoops {
		return fmt.Errorf("loop count %d outside 1..%d", count, awgfile.MaxLoops)
	}
	return a.Write(fmt.Sprintf("SEQuence:ELEMent%d:LOOP:COUNt %d", element, count))
}

// GetLoopCount reads the repetition count of a sequence element
func (a *AWG5014) GetLoopCount(element int) (int, error) {
	return a.ReadInt(fmt.Sprintf("SEQuence:ELEMent%d:LOOP:COUNt?", element))
}

// SetInfiniteLoop sets the infinite looping state of a sequence element.
// To break an infinite loop, issue Stop.
func (a *AWG5014) SetInfiniteLoop(element int, on bool) error {
	mnemonic := "0"
	if on {
		mnemonic = "1"
	}
	return a.Write(fmt.Sprintf("SEQuence:ELEMent%d:LOOP:INFinite %s", element, mnemonic))
}

// SetTriggerWait sets whether a sequence element waits for a trigger
// before playing
func (a *AWG5014) SetTriggerWait(element int, on bool) error {
	mnemonic := "0"
	if on {
		mnemonic = "1"
	}
	return a.Write(fmt.Sprintf("SEQuence:ELEMent%d:TWAit %s", element, mnemonic))
}

// GetTriggerWait reads whether a sequence element waits for a trigger
func (a *AWG5014) GetTriggerWait(element int) (bool, error) {
	return a.ReadBool(fmt.Sprintf("SEQuence:ELEMent%d:TWAit?", element))
}

// SetGoto sets the element the sequencer proceeds to after this one.
// target == 0 disables the goto, proceeding to the next element.
func (a *AWG5014) SetGoto(element, target int) error {
	if target == 0 {
		return a.Write(fmt.Sprintf("SEQuence:ELEMent%d:GOTO:STATe 0", element))
	}
	err := a.Write(fmt.Sprintf("SEQuence:ELEMent%d:GOTO:INDex %d", element, target))
	if err != nil {
		return err
	}
	return a.Write(fmt.Sprintf("SEQuence:ELEMent%d:GOTO:STATe 1", element))
}

// SetEventJumpTarget sets the element the sequencer jumps to on an event
func (a *AWG5014) SetEventJumpTarget(element, target int) error {
	return a.Write(fmt.Sprintf("SEQuence:ELEMent%d:JTARget:INDex %d", element, target))
}

// SetEventJumpType sets the jump target type of an element, one of
// INDEX, NEXT, or OFF
func (a *AWG5014) SetEventJumpType(element int, typ string) error {
	typ = strings.ToUpper(typ)
	switch typ {
	case "INDEX", "NEXT", "OFF":
	default:
		return fmt.Errorf("jump type %q not one of INDEX, NEXT, OFF", typ)
	}
	return a.Write(fmt.Sprintf("SEQuence:ELEMent%d:JTARget:TYPE %s", element, typ))
}

// SetElementWaveform assigns a waveform to a channel of a sequence
// element.  The waveform must be in the waveform list, either user
// defined or predefined.
func (a *AWG5014) SetElementWaveform(element, ch int, name string) error {
	return a.Write(fmt.Sprintf(`SEQuence:ELEMent%d:WAVeform%d "%s"`, element, ch, name))
}

// GetElementWaveform reads the waveform assigned to a channel of a
// sequence element
func (a *AWG5014) GetElementWaveform(element, ch int) (string, error) {
	s, err := a.ReadString(fmt.Sprintf("SEQuence:ELEMent%d:WAVeform%d?", element, ch))
	return strings.Trim(s, `"`), err
}

// ForceJump makes the sequencer jump to an element immediately,
// regardless of its programmed jump settings
func (a *AWG5014) ForceJump(element int) error {
	return a.Write(fmt.Sprintf("SEQuence:JUMP:IMMediate %d", element))
}

// NewWaveform allocates an integer-format waveform of the given length
// in the instrument's waveform list
func (a *AWG5014) NewWaveform(name string, points int) error {
	return a.Write(fmt.Sprintf(`WLISt:WAVeform:NEW "%s",%d,INTEGER`, name, points))
}

// DeleteWaveform removes a waveform from the instrument's waveform list
func (a *AWG5014) DeleteWaveform(name string) error {
	return a.Write(fmt.Sprintf(`WLISt:WAVeform:DELete "%s"`, name))
}

// DeleteAllWaveforms clears the user defined waveform list
func (a *AWG5014) DeleteAllWaveforms() error {
	return a.Write("WLISt:WAVeform:DELete ALL")
}

// SendWaveformToList packs a waveform with its markers and transfers it
// directly into the instrument's waveform list, without going through a
// settings file.  The waveform must already exist in the list at the
// right size, see NewWaveform.
func (a *AWG5014) SendWaveformToList(name string, wf []float64, m1, m2 []int) error {
	packed, err := awgfile.Pack(wf, m1, m2)
	if err != nil {
		return err
	}
	buf := make([]byte, 2*len(packed))
	for i, p := range packed {
		binary.LittleEndian.PutUint16(buf[2*i:], p)
	}
	return a.uploading().WriteBlock(fmt.Sprintf(`WLISt:WAVeform:DATA "%s",`, name), buf)
}

// GetFolderContents reads the catalog of the current folder on the
// instrument's mass storage
func (a *AWG5014) GetFolderContents() (string, error) {
	return a.ReadString("MMEMory:CATalog?")
}

// GetCurrentFolder reads the current folder on the instrument's mass storage
func (a *AWG5014) GetCurrentFolder() (string, error) {
	s, err := a.ReadString("MMEMory:CDIRectory?")
	return strings.Trim(s, `"`), err
}

// SetCurrentFolder changes the current folder on the instrument's mass storage
func (a *AWG5014) SetCurrentFolder(path string) error {
	return a.Write(fmt.Sprintf(`MMEMory:CDIRectory "%s"`, path))
}

// MakeFolder creates a folder under the current one and enters it
func (a *AWG5014) MakeFolder(name string) error {
	err := a.Write(fmt.Sprintf(`MMEMory:MDIRectory "\%s"`, name))
	if err != nil {
		return err
	}
	return a.Write(fmt.Sprintf(`MMEMory:CDIRectory "\%s"`, name))
}

// GoToRootFolder changes the current folder to the root of the mass storage
func (a *AWG5014) GoToRootFolder() error {
	return a.Write(`MMEMory:CDIRectory "c:\.."`)
}

// SendFile writes contents onto the instrument's disk under the given
// filename in the current folder, overwriting any existing file
func (a *AWG5014) SendFile(filename string, contents []byte) error {
	return a.uploading().WriteBlock(fmt.Sprintf(`MMEMory:DATA "%s",`, filename), contents)
}

// LoadFile loads a settings file from the instrument's disk into its
// memory.  This may overwrite all instrument settings, the waveform
// list, and the sequence in the sequencer.
func (a *AWG5014) LoadFile(filename string) error {
	return a.Write(fmt.Sprintf(`AWGControl:SREStore "%s"`, filename))
}

// uploading returns a copy of the device's SCPI layer with the timeout
// raised for bulk transfers
func (a *AWG5014) uploading() scpi.SCPI {
	s := a.SCPI
	s.Timeout = uploadTimeout
	return s
}

func startsWithInt(s string) bool {
	return strings.HasPrefix(s, "INT")
}

// SequenceSettings queries the instrument-wide settings that belong in
// the head block of a settings file, so a generated file does not reset
// them to factory defaults when loaded
func (a *AWG5014) SequenceSettings() (awgfile.Settings, error) {
	s := awgfile.Settings{
		"EXTERNAL_REFERENCE_TYPE":             1,
		"REFERENCE_CLOCK_FREQUENCY_SELECTION": 1,
		"RUN_MODE":                            4,
		"RUN_STATE":                           0,
	}
	freq, err := a.GetClockFrequency()
	if err != nil {
		return nil, err
	}
	s["SAMPLING_RATE"] = freq

	clock, err := a.GetClockSource()
	if err != nil {
		return nil, err
	}
	s["CLOCK_SOURCE"] = sourceCode(startsWithInt(clock))

	ref, err := a.GetReferenceSource()
	if err != nil {
		return nil, err
	}
	s["REFERENCE_SOURCE"] = sourceCode(startsWithInt(ref))

	trig, err := a.GetTriggerSource()
	if err != nil {
		return nil, err
	}
	s["TRIGGER_SOURCE"] = sourceCode(strings.HasPrefix(trig, "EXT"))

	trigZ, err := a.GetTriggerImpedance()
	if err != nil {
		return nil, err
	}
	s["TRIGGER_INPUT_IMPEDANCE"] = sourceCode(trigZ == 50)

	slope, err := a.GetTriggerSlope()
	if err != nil {
		return nil, err
	}
	s["TRIGGER_INPUT_SLOPE"] = sourceCode(strings.HasPrefix(slope, "POS"))

	pol, err := a.GetTriggerPolarity()
	if err != nil {
		return nil, err
	}
	s["TRIGGER_INPUT_POLARITY"] = sourceCode(strings.HasPrefix(pol, "POS"))

	level, err := a.GetTriggerLevel()
	if err != nil {
		return nil, err
	}
	s["TRIGGER_INPUT_THRESHOLD"] = level

	eventZ, err := a.GetEventImpedance()
	if err != nil {
		return nil, err
	}
	s["EVENT_INPUT_IMPEDANCE"] = sourceCode(eventZ == 50)

	eventPol, err := a.GetEventPolarity()
	if err != nil {
		return nil, err
	}
	s["EVENT_INPUT_POLARITY"] = sourceCode(strings.HasPrefix(eventPol, "POS"))

	eventLevel, err := a.GetEventLevel()
	if err != nil {
		return nil, err
	}
	s["EVENT_INPUT_THRESHOLD"] = eventLevel

	timing, err := a.GetJumpTiming()
	if err != nil {
		return nil, err
	}
	s["JUMP_TIMING"] = sourceCode(strings.HasPrefix(timing, "SYNC"))

	return s, nil
}

// sourceCode translates a binary instrument property into the 1|2
// encoding settings files use
func sourceCode(first bool) int {
	if first {
		return 1
	}
	return 2
}

// ChannelSettings queries the per-channel settings that belong in the
// channel block of a settings file, so a generated file does not reset
// them to factory defaults when loaded
func (a *AWG5014) ChannelSettings() (awgfile.Settings, error) {
	s := awgfile.Settings{}
	for ch := 1; ch <= awgfile.MaxChannels; ch++ {
		state, err := a.GetOutputState(ch)
		if err != nil {
			return nil, err
		}
		s[fmt.Sprintf("CHANNEL_STATE_%d", ch)] = state

		direct, err := a.GetDirectOutput(ch)
		if err != nil {
			return nil, err
		}
		s[fmt.Sprintf("ANALOG_DIRECT_OUTPUT_%d", ch)] = direct

		filter, err := a.GetFilter(ch)
		if err != nil {
			return nil, err
		}
		if code, ok := analogFilterCodes[filter]; ok {
			s[fmt.Sprintf("ANALOG_FILTER_%d", ch)] = code
		}

		amp, err := a.GetAmplitude(ch)
		if err != nil {
			return nil, err
		}
		s[fmt.Sprintf("ANALOG_AMPLITUDE_%d", ch)] = amp

		offset, err := a.GetOffset(ch)
		if err != nil {
			return nil, err
		}
		s[fmt.Sprintf("ANALOG_OFFSET_%d", ch)] = offset

		for marker := 1; marker <= 2; marker++ {
			high, err := a.GetMarkerHigh(ch, marker)
			if err != nil {
				return nil, err
			}
			s[fmt.Sprintf("MARKER%d_HIGH_%d", marker, ch)] = high

			low, err := a.GetMarkerLow(ch, marker)
			if err != nil {
				return nil, err
			}
			s[fmt.Sprintf("MARKER%d_LOW_%d", marker, ch)] = low

			delay, err := a.GetMarkerDelay(ch, marker)
			if err != nil {
				return nil, err
			}
			s[fmt.Sprintf("MARKER%d_SKEW_%d", marker, ch)] = delay
		}
	}
	return s, nil
}

// Waveform pairs analog samples with their two marker tracks
type Waveform struct {
	// Name is the waveform list entry the samples are stored under
	Name string

	// Data holds the analog samples, each in [-1, 1]
	Data []float64

	// Marker1 holds the first marker track, each sample 0 or 1
	Marker1 []int

	// Marker2 holds the second marker track, each sample 0 or 1
	Marker2 []int
}

// UploadSequence packs the waveforms, assembles a settings file with the
// sequence table and a snapshot of the current instrument settings,
// sends it to the instrument's disk, and loads it.  With
// preserveChannelSettings false the channel block is left empty and
// loading resets channels to factory defaults.
func (a *AWG5014) UploadSequence(waveforms []Waveform, seq []awgfile.SequenceElement,
	filename string, preserveChannelSettings bool) error {
	packed := make(map[string][]uint16, len(waveforms))
	for _, w := range waveforms {
		p, err := awgfile.Pack(w.Data, w.Marker1, w.Marker2)
		if err != nil {
			return fmt.Errorf("waveform %s: %w", w.Name, err)
		}
		packed[w.Name] = p
	}
	head, err := a.SequenceSettings()
	if err != nil {
		return err
	}
	var channel awgfile.Settings
	if preserveChannelSettings {
		channel, err = a.ChannelSettings()
		if err != nil {
			return err
		}
	}
	contents, err := awgfile.EncodeFile(head, channel, packed, seq,
		awgfile.NewTimestamp(time.Now()))
	if err != nil {
		return err
	}
	err = a.SetCurrentFolder(uploadFolder)
	if err != nil {
		return err
	}
	err = a.SendFile(filename, contents)
	if err != nil {
		return err
	}
	return a.LoadFile(uploadFolder + `\` + filename)
}
