package awgfile_test

import (
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/jpsecher/labawg/awgfile"
	"github.com/stretchr/testify/require"
)

var testStamp = awgfile.NewTimestamp(
	time.Date(2024, time.March, 1, 12, 30, 45, 0, time.UTC))

func mustEncode(t *testing.T, head, channel awgfile.Settings,
	wfs map[string][]uint16, seq []awgfile.SequenceElement) []byte {
	t.Helper()
	b, err := awgfile.EncodeFile(head, channel, wfs, seq, testStamp)
	require.NoError(t, err)
	return b
}

func recordNames(t *testing.T, b []byte) []string {
	t.Helper()
	recs, err := awgfile.ParseRecords(b)
	require.NoError(t, err)
	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.Name
	}
	return names
}

func TestFileLeadsWithMagicAndVersion(t *testing.T) {
	b := mustEncode(t, nil, nil, nil, nil)
	recs, err := awgfile.ParseRecords(b)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(recs), 2)
	require.Equal(t, "MAGIC", recs[0].Name)
	require.EqualValues(t, 5000, binary.LittleEndian.Uint16(recs[0].Data))
	require.Equal(t, "VERSION", recs[1].Name)
	require.EqualValues(t, 1, binary.LittleEndian.Uint16(recs[1].Data))
}

func TestWaveformsSortedByName(t *testing.T) {
	wfs := map[string][]uint16{
		"b": {8191},
		"a": {8191},
		"c": {8191},
	}
	b := mustEncode(t, nil, nil, wfs, nil)
	var wfNames []string
	recs, err := awgfile.ParseRecords(b)
	require.NoError(t, err)
	for _, r := range recs {
		if strings.HasPrefix(r.Name, "WAVEFORM_NAME_") {
			wfNames = append(wfNames, strings.TrimRight(string(r.Data), "\x00"))
		}
	}
	require.Equal(t, []string{"a", "b", "c"}, wfNames)

	// numbering starts at the first user-defined slot
	names := recordNames(t, b)
	require.Contains(t, names, "WAVEFORM_NAME_21")
	require.Contains(t, names, "WAVEFORM_NAME_23")
}

func TestWaveformRecordGroup(t *testing.T) {
	wfs := map[string][]uint16{"wfm001ch1": {0, 8191, 32766}}
	b := mustEncode(t, nil, nil, wfs, nil)
	names := recordNames(t, b)
	// fixed order within the group: name, type, length, timestamp, data
	require.Equal(t, []string{
		"MAGIC", "VERSION",
		"WAVEFORM_NAME_21", "WAVEFORM_TYPE_21", "WAVEFORM_LENGTH_21",
		"WAVEFORM_TIMESTAMP_21", "WAVEFORM_DATA_21",
	}, names)

	recs, err := awgfile.ParseRecords(b)
	require.NoError(t, err)
	length := recs[4]
	require.EqualValues(t, 3, binary.LittleEndian.Uint32(length.Data))
	data := recs[6]
	require.Len(t, data.Data, 6)
	require.EqualValues(t, 8191, binary.LittleEndian.Uint16(data.Data[2:4]))
}

func TestEncodeIdempotent(t *testing.T) {
	head := awgfile.Settings{"SAMPLING_RATE": 1e9, "RUN_MODE": 4}
	channel := awgfile.Settings{"ANALOG_AMPLITUDE_1": 2.0, "CHANNEL_STATE_1": 1}
	wfs := map[string][]uint16{"x": {1, 2}, "y": {3, 4}}
	seq := []awgfile.SequenceElement{
		{Wait: 1, Loops: 2, Waveforms: map[int]string{1: "x"}},
	}
	a := mustEncode(t, head, channel, wfs, seq)
	b := mustEncode(t, head, channel, wfs, seq)
	require.Equal(t, a, b)
}

func TestUnrecognizedSettingsDroppedNotFatal(t *testing.T) {
	clean := mustEncode(t, awgfile.Settings{"SAMPLING_RATE": 1e9}, nil, nil, nil)
	dirty := mustEncode(t, awgfile.Settings{
		"SAMPLING_RATE":  1e9,
		"FLUX_CAPACITOR": 88,
	}, awgfile.Settings{"BOGUS_KNOB_1": 1}, nil, nil)
	require.Equal(t, clean, dirty)
}

func TestHeadSettingsEmittedInDeclaredOrder(t *testing.T) {
	// RUN_MODE is declared after TRIGGER_SOURCE in the format regardless
	// of how the map iterates
	head := awgfile.Settings{"RUN_MODE": 4, "TRIGGER_SOURCE": 1}
	names := recordNames(t, mustEncode(t, head, nil, nil, nil))
	require.Equal(t, []string{"MAGIC", "VERSION", "TRIGGER_SOURCE", "RUN_MODE"}, names)
}

func TestChannelSettingsGroupedByChannel(t *testing.T) {
	channel := awgfile.Settings{
		"ANALOG_AMPLITUDE_2": 1.0,
		"CHANNEL_STATE_1":    1,
		"ANALOG_AMPLITUDE_1": 2.0,
	}
	names := recordNames(t, mustEncode(t, nil, channel, nil, nil))
	require.Equal(t, []string{
		"MAGIC", "VERSION",
		"CHANNEL_STATE_1", "ANALOG_AMPLITUDE_1",
		"ANALOG_AMPLITUDE_2",
	}, names)
}

func TestSequenceBlock(t *testing.T) {
	seq := []awgfile.SequenceElement{
		{Wait: 1, Loops: 1, Waveforms: map[int]string{1: "a", 3: "b"}},
		{Loops: 100, Jump: 1, Goto: 1},
	}
	wfs := map[string][]uint16{"a": {0}, "b": {0}}
	names := recordNames(t, mustEncode(t, nil, nil, wfs, seq))
	var seqNames []string
	for _, n := range names {
		if strings.HasPrefix(n, "SEQUENCE_") {
			seqNames = append(seqNames, n)
		}
	}
	require.Equal(t, []string{
		"SEQUENCE_WAIT_1", "SEQUENCE_LOOP_1", "SEQUENCE_JUMP_1", "SEQUENCE_GOTO_1",
		"SEQUENCE_WAVEFORM_NAME_CH_1_1", "SEQUENCE_WAVEFORM_NAME_CH_3_1",
		"SEQUENCE_WAIT_2", "SEQUENCE_LOOP_2", "SEQUENCE_JUMP_2", "SEQUENCE_GOTO_2",
	}, seqNames)
}

func TestEmptySequenceAppendsNoBytes(t *testing.T) {
	wfs := map[string][]uint16{"a": {0}}
	withNil := mustEncode(t, nil, nil, wfs, nil)
	withEmpty := mustEncode(t, nil, nil, wfs, []awgfile.SequenceElement{})
	require.Equal(t, withNil, withEmpty)
	for _, n := range recordNames(t, withNil) {
		require.False(t, strings.HasPrefix(n, "SEQUENCE_"))
	}
}

func TestSequenceValidation(t *testing.T) {
	_, err := awgfile.EncodeFile(nil, nil, nil,
		[]awgfile.SequenceElement{{Loops: 0}}, testStamp)
	require.ErrorIs(t, err, awgfile.ErrValueOutOfRange)

	_, err = awgfile.EncodeFile(nil, nil, nil,
		[]awgfile.SequenceElement{{Loops: awgfile.MaxLoops + 1}}, testStamp)
	require.ErrorIs(t, err, awgfile.ErrValueOutOfRange)

	_, err = awgfile.EncodeFile(nil, nil, nil,
		[]awgfile.SequenceElement{{Wait: 2, Loops: 1}}, testStamp)
	require.ErrorIs(t, err, awgfile.ErrValueOutOfRange)
}

func TestSequenceJumpGotoMustFitInt16(t *testing.T) {
	// targets wider than the i16 wire field must abort, not wrap into
	// a valid-looking record (65536 would truncate to 0, "next")
	cases := []awgfile.SequenceElement{
		{Loops: 1, Goto: 65536},
		{Loops: 1, Jump: 40000},
		{Loops: 1, Goto: -1},
		{Loops: 1, Jump: -1},
	}
	for _, el := range cases {
		_, err := awgfile.EncodeFile(nil, nil, nil,
			[]awgfile.SequenceElement{el}, testStamp)
		require.ErrorIs(t, err, awgfile.ErrValueOutOfRange,
			"jump %d goto %d", el.Jump, el.Goto)
	}

	b, err := awgfile.EncodeFile(nil, nil, nil,
		[]awgfile.SequenceElement{{Loops: 1, Jump: 32767, Goto: 32767}}, testStamp)
	require.NoError(t, err)
	require.NotEmpty(t, b)
}

func TestSettingsTypeMismatchFatal(t *testing.T) {
	_, err := awgfile.EncodeFile(awgfile.Settings{"SAMPLING_RATE": "fast"},
		nil, nil, nil, testStamp)
	require.ErrorIs(t, err, awgfile.ErrUnsupportedType)
}
