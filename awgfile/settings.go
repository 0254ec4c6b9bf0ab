package awgfile

import (
	"bytes"
	"fmt"
	"log"
	"strings"
)

// Settings is a flat mapping from record name to value for the head and
// channel blocks.  Values are coerced onto the record kind the format
// declares for that name; see the format tables below.
type Settings map[string]interface{}

type settingKind int

const (
	kindInt16 settingKind = iota
	kindFloat64
	kindString
)

type settingSpec struct {
	name string
	kind settingKind
}

// headFormat is the full set of legal instrument-wide records, in the
// order they are written to the file.  Iterating this declared list (and
// not the caller's map) keeps the output bytes independent of map
// iteration order.
var headFormat = []settingSpec{
	{"SAMPLING_RATE", kindFloat64},
	{"REPETITION_RATE", kindFloat64},
	{"HOLD_REPETITION_RATE", kindInt16},          // True | False
	{"CLOCK_SOURCE", kindInt16},                  // Internal | External
	{"REFERENCE_SOURCE", kindInt16},              // Internal | External
	{"EXTERNAL_REFERENCE_TYPE", kindInt16},       // Fixed | Variable
	{"REFERENCE_CLOCK_FREQUENCY_SELECTION", kindInt16},
	{"REFERENCE_MULTIPLIER_RATE", kindInt16},
	{"DIVIDER_RATE", kindInt16},                  // 1 | 2 | 4 ... 256
	{"TRIGGER_SOURCE", kindInt16},                // Internal | External
	{"INTERNAL_TRIGGER_RATE", kindFloat64},
	{"TRIGGER_INPUT_IMPEDANCE", kindInt16},       // 50 ohm | 1 kohm
	{"TRIGGER_INPUT_SLOPE", kindInt16},           // Positive | Negative
	{"TRIGGER_INPUT_POLARITY", kindInt16},        // Positive | Negative
	{"TRIGGER_INPUT_THRESHOLD", kindFloat64},
	{"EVENT_INPUT_IMPEDANCE", kindInt16},         // 50 ohm | 1 kohm
	{"EVENT_INPUT_POLARITY", kindInt16},          // Positive | Negative
	{"EVENT_INPUT_THRESHOLD", kindFloat64},
	{"JUMP_TIMING", kindInt16},                   // Sync | Async
	{"INTERLEAVE", kindInt16},
	{"ZEROING", kindInt16},                       // On | Off
	{"COUPLING", kindInt16},                      // Off | Pair | All
	{"RUN_MODE", kindInt16},                      // Continuous | Triggered | Gated | Sequence
	{"WAIT_VALUE", kindInt16},                    // First | Last
	{"RUN_STATE", kindInt16},                     // On | Off
	{"INTERLEAVE_ADJ_PHASE", kindFloat64},
	{"INTERLEAVE_ADJ_AMPLITUDE", kindFloat64},
}

// channelFormat is the per-channel record template; the trailing N is
// replaced with the channel number 1..4 in actual record names.
var channelFormat = []settingSpec{
	{"OUTPUT_WAVEFORM_NAME_N", kindString}, // includes NUL
	{"CHANNEL_STATE_N", kindInt16},         // On | Off
	{"ANALOG_DIRECT_OUTPUT_N", kindInt16},  // On | Off
	{"ANALOG_FILTER_N", kindInt16},
	{"ANALOG_METHOD_N", kindInt16}, // Amplitude/Offset, High/Low
	{"ANALOG_AMPLITUDE_N", kindFloat64},
	{"ANALOG_OFFSET_N", kindFloat64},
	{"ANALOG_HIGH_N", kindFloat64},
	{"ANALOG_LOW_N", kindFloat64},
	{"MARKER1_SKEW_N", kindFloat64},
	{"MARKER1_METHOD_N", kindInt16},
	{"MARKER1_AMPLITUDE_N", kindFloat64},
	{"MARKER1_OFFSET_N", kindFloat64},
	{"MARKER1_HIGH_N", kindFloat64},
	{"MARKER1_LOW_N", kindFloat64},
	{"MARKER2_SKEW_N", kindFloat64},
	{"MARKER2_METHOD_N", kindInt16},
	{"MARKER2_AMPLITUDE_N", kindFloat64},
	{"MARKER2_OFFSET_N", kindFloat64},
	{"MARKER2_HIGH_N", kindFloat64},
	{"MARKER2_LOW_N", kindFloat64},
	{"DIGITAL_METHOD_N", kindInt16},
	{"DIGITAL_AMPLITUDE_N", kindFloat64},
	{"DIGITAL_OFFSET_N", kindFloat64},
	{"DIGITAL_HIGH_N", kindFloat64},
	{"DIGITAL_LOW_N", kindFloat64},
	{"EXTERNAL_ADD_N", kindInt16}, // AWG5000 series only
	{"PHASE_DELAY_INPUT_METHOD_N", kindInt16},
	{"PHASE_N", kindFloat64},
	{"DELAY_IN_TIME_N", kindFloat64},
	{"DELAY_IN_POINTS_N", kindFloat64},
	{"CHANNEL_SKEW_N", kindFloat64},
	{"DC_OUTPUT_LEVEL_N", kindFloat64}, // V
}

// coerce converts a settings value onto the record kind the format
// declares for its name
func coerce(name string, v interface{}, k settingKind) (Value, error) {
	switch k {
	case kindInt16:
		switch n := v.(type) {
		case int:
			return Int16(n), nil
		case int16:
			return Int16(n), nil
		case bool:
			if n {
				return Int16(1), nil
			}
			return Int16(0), nil
		}
	case kindFloat64:
		switch n := v.(type) {
		case float64:
			return Float64(n), nil
		case int:
			return Float64(n), nil
		}
	case kindString:
		if s, ok := v.(string); ok {
			// string settings records carry their own terminator
			return String(s + "\x00"), nil
		}
	}
	return nil, fmt.Errorf("setting %s: value %v (%T): %w", name, v, v, ErrUnsupportedType)
}

// encodeHead writes the instrument-wide settings block.  Records are
// emitted in the declared headFormat order; names absent from the format
// are logged and dropped so that settings this codec does not yet model do
// not break exports.
func encodeHead(buf *bytes.Buffer, s Settings) error {
	known := make(map[string]struct{}, len(headFormat))
	for _, spec := range headFormat {
		known[spec.name] = struct{}{}
		v, ok := s[spec.name]
		if !ok {
			continue
		}
		val, err := coerce(spec.name, v, spec.kind)
		if err != nil {
			return err
		}
		rec, err := EncodeRecord(spec.name, val)
		if err != nil {
			return err
		}
		buf.Write(rec)
	}
	for name := range s {
		if _, ok := known[name]; !ok {
			log.Printf("awgfile: %s not recognized as a valid AWG setting, dropped", name)
		}
	}
	return nil
}

// encodeChannels writes the per-channel settings block, channel by channel
// in the declared template order
func encodeChannels(buf *bytes.Buffer, s Settings) error {
	emitted := make(map[string]struct{}, len(s))
	for ch := 1; ch <= MaxChannels; ch++ {
		suffix := fmt.Sprintf("%d", ch)
		for _, spec := range channelFormat {
			name := strings.TrimSuffix(spec.name, "N") + suffix
			v, ok := s[name]
			if !ok {
				continue
			}
			val, err := coerce(name, v, spec.kind)
			if err != nil {
				return err
			}
			rec, err := EncodeRecord(name, val)
			if err != nil {
				return err
			}
			buf.Write(rec)
			emitted[name] = struct{}{}
		}
	}
	for name := range s {
		if _, ok := emitted[name]; !ok {
			log.Printf("awgfile: %s not recognized as a valid AWG channel setting, dropped", name)
		}
	}
	return nil
}
