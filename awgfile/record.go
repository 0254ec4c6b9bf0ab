/*Package awgfile implements the Tektronix AWG5014 ".awg" setup file format.

An .awg file is a flat stream of tagged binary records, each laid out as

	u32 nameLen | u32 dataLen | name bytes (ASCII, NUL terminated) | data bytes

with every integer little endian and nameLen counting the trailing NUL.
A complete file is four groups of records in a fixed order: instrument-wide
settings, per-channel settings, waveform payloads, and the sequence table.
See "File and Record Format" in the AWG5014 programmer manual.

The package is a pure codec: it transforms in-memory waveforms, marker
streams, settings and sequence tables into a byte buffer (and parses the
record framing back out).  It performs no instrument communication; package
tektronix owns that.
*/
package awgfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrLengthMismatch is generated when a waveform and its marker streams
	// have different lengths
	ErrLengthMismatch = errors.New("waveform and marker lengths do not match")

	// ErrValueOutOfRange is generated when a waveform sample is outside
	// [-1, 1] or a sequence field is outside its allowed range
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrInvalidMarker is generated when a marker sample is not 0 or 1
	ErrInvalidMarker = errors.New("marker values may only be 0 or 1")

	// ErrUnsupportedType is generated when a record value has no packing
	// rule.  It indicates a programming error in the caller.
	ErrUnsupportedType = errors.New("unsupported record value type")

	// ErrEncoding is generated when a record name or string payload
	// contains non-ASCII characters
	ErrEncoding = errors.New("record names and strings must be ASCII")
)

// A Value is one typed datum that can be carried by a record.  The set of
// implementations is closed: Int16, Int32, Float64, String, U16Array and
// Timestamp.  Sealing the set removes the unrecognized-tag failure mode
// from record encoding; only name validation can fail.
type Value interface {
	appendData([]byte) []byte
}

// Int16 packs as one little-endian signed 16-bit integer
type Int16 int16

// Int32 packs as one little-endian signed 32-bit integer
type Int32 int32

// Float64 packs as one little-endian IEEE 754 double
type Float64 float64

// String packs as raw ASCII bytes with no additional framing.  Records
// whose payloads the instrument treats as strings (waveform name
// references) include their own trailing NUL; callers append it.
type String string

// U16Array packs as a fixed-count sequence of little-endian uint16s
type U16Array []uint16

// Timestamp is the 8-field date/time snapshot stored with each waveform.
// It packs as 8 little-endian uint16s.
type Timestamp struct {
	Year, Month, DayOfWeek, Day, Hour, Minute, Second, Millisecond uint16
}

func (v Int16) appendData(b []byte) []byte {
	return binary.LittleEndian.AppendUint16(b, uint16(v))
}

func (v Int32) appendData(b []byte) []byte {
	return binary.LittleEndian.AppendUint32(b, uint32(v))
}

func (v Float64) appendData(b []byte) []byte {
	return binary.LittleEndian.AppendUint64(b, math.Float64bits(float64(v)))
}

func (v String) appendData(b []byte) []byte {
	return append(b, v...)
}

func (v U16Array) appendData(b []byte) []byte {
	for _, u := range v {
		b = binary.LittleEndian.AppendUint16(b, u)
	}
	return b
}

func (v Timestamp) appendData(b []byte) []byte {
	for _, u := range [8]uint16{v.Year, v.Month, v.DayOfWeek, v.Day,
		v.Hour, v.Minute, v.Second, v.Millisecond} {
		b = binary.LittleEndian.AppendUint16(b, u)
	}
	return b
}

// EncodeRecord packs a single named record into its on-disk form.
// The name may not contain non-ASCII characters, and a nil value has no
// packing rule.
func EncodeRecord(name string, v Value) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("record %s: %w", name, ErrUnsupportedType)
	}
	if !isASCII(name) {
		return nil, fmt.Errorf("record name %q: %w", name, ErrEncoding)
	}
	if s, ok := v.(String); ok && !isASCII(string(s)) {
		return nil, fmt.Errorf("record %s payload: %w", name, ErrEncoding)
	}
	data := v.appendData(nil)
	out := make([]byte, 0, 8+len(name)+1+len(data))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(name)+1))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(data)))
	out = append(out, name...)
	out = append(out, 0)
	out = append(out, data...)
	return out, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}
