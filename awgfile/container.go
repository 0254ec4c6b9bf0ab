package awgfile

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	// MaxChannels is the number of analog output channels on the AWG5014
	MaxChannels = 4

	// magic identifies the file format generation, version the revision
	magic   = 5000
	version = 1

	// waveform records are numbered from 21; 1-20 are reserved for the
	// instrument's predefined waveforms
	firstUserWaveform = 21

	// MaxLoops is the largest representable sequence repeat count
	MaxLoops = 65536
)

// SequenceElement is one row of the sequence table.  Element numbering in
// the file is 1-based and follows table order.
type SequenceElement struct {
	// Wait indicates the element waits for a trigger before playing (0 or 1)
	Wait int

	// Loops is the repeat count, 1 to 65536
	Loops int

	// Jump is the event jump target index, 0 for none
	Jump int

	// Goto is the index played after this element, 0 for next
	Goto int

	// Waveforms assigns a waveform name to each channel playing at this
	// element.  Channels without an assignment emit no record.
	Waveforms map[int]string
}

// NewTimestamp snapshots t into the 8-field representation stored with
// waveform records.  Encoding takes the timestamp as an argument rather
// than reading the clock so identical inputs give identical bytes.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{
		Year:        uint16(t.Year()),
		Month:       uint16(t.Month()),
		DayOfWeek:   uint16(t.Weekday()),
		Day:         uint16(t.Day()),
		Hour:        uint16(t.Hour()),
		Minute:      uint16(t.Minute()),
		Second:      uint16(t.Second()),
		Millisecond: uint16(t.Nanosecond() / 1e6),
	}
}

// EncodeFile assembles a complete .awg file from the head and channel
// settings, the packed waveforms (see Pack), and the sequence table.
//
// The four record groups are concatenated in the fixed order head,
// channel, waveform, sequence; waveforms are written sorted by name so the
// mapping between names and on-disk records is reproducible.  An empty
// sequence table yields an empty sequence block.  Any validation failure
// aborts the encode; no partial file is returned.
func EncodeFile(head, channel Settings, waveforms map[string][]uint16,
	seq []SequenceElement, ts Timestamp) ([]byte, error) {
	buf := &bytes.Buffer{}

	// head block leads with the format identification records
	for _, rec := range []struct {
		name string
		v    Value
	}{{"MAGIC", Int16(magic)}, {"VERSION", Int16(version)}} {
		b, err := EncodeRecord(rec.name, rec.v)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	if err := encodeHead(buf, head); err != nil {
		return nil, err
	}
	if err := encodeChannels(buf, channel); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(waveforms))
	for name := range waveforms {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		n := firstUserWaveform + i
		data := waveforms[name]
		recs := []struct {
			name string
			v    Value
		}{
			{fmt.Sprintf("WAVEFORM_NAME_%d", n), String(name + "\x00")},
			{fmt.Sprintf("WAVEFORM_TYPE_%d", n), Int16(1)}, // integer format
			{fmt.Sprintf("WAVEFORM_LENGTH_%d", n), Int32(len(data))},
			{fmt.Sprintf("WAVEFORM_TIMESTAMP_%d", n), ts},
			{fmt.Sprintf("WAVEFORM_DATA_%d", n), U16Array(data)},
		}
		for _, rec := range recs {
			b, err := EncodeRecord(rec.name, rec.v)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
	}

	for i, el := range seq {
		k := i + 1
		if el.Wait != 0 && el.Wait != 1 {
			return nil, fmt.Errorf("%w: sequence element %d wait is %d, allowed 0 or 1",
				ErrValueOutOfRange, k, el.Wait)
		}
		if el.Loops < 1 || el.Loops > MaxLoops {
			return nil, fmt.Errorf("%w: sequence element %d loop count is %d, allowed 1 to %d",
				ErrValueOutOfRange, k, el.Loops, MaxLoops)
		}
		// jump and goto are i16 on disk; an unchecked conversion would
		// truncate an oversized index into a valid-looking record
		if el.Jump < 0 || el.Jump > math.MaxInt16 {
			return nil, fmt.Errorf("%w: sequence element %d jump target is %d, allowed 0 to %d",
				ErrValueOutOfRange, k, el.Jump, math.MaxInt16)
		}
		if el.Goto < 0 || el.Goto > math.MaxInt16 {
			return nil, fmt.Errorf("%w: sequence element %d goto target is %d, allowed 0 to %d",
				ErrValueOutOfRange, k, el.Goto, math.MaxInt16)
		}
		recs := []struct {
			name string
			v    Value
		}{
			{fmt.Sprintf("SEQUENCE_WAIT_%d", k), Int16(el.Wait)},
			{fmt.Sprintf("SEQUENCE_LOOP_%d", k), Int32(el.Loops)},
			{fmt.Sprintf("SEQUENCE_JUMP_%d", k), Int16(el.Jump)},
			{fmt.Sprintf("SEQUENCE_GOTO_%d", k), Int16(el.Goto)},
		}
		for _, rec := range recs {
			b, err := EncodeRecord(rec.name, rec.v)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		for ch := 1; ch <= MaxChannels; ch++ {
			name, ok := el.Waveforms[ch]
			if !ok {
				continue
			}
			// no existence check against the waveform block: elements may
			// reference the instrument's predefined waveforms
			b, err := EncodeRecord(fmt.Sprintf("SEQUENCE_WAVEFORM_NAME_CH_%d_%d", ch, k),
				String(name+"\x00"))
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
	}

	return buf.Bytes(), nil
}
