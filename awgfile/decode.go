package awgfile

import (
	"encoding/binary"
	"fmt"
)

// A RawRecord is one record parsed back out of a container, framing only;
// interpreting the data bytes requires knowing the record's kind from its
// name.
type RawRecord struct {
	Name string
	Data []byte
}

// ParseRecords splits a container byte stream back into its records.  It
// is the inverse of the framing half of EncodeRecord and exists for
// verification tooling; it does not reconstruct typed values.
func ParseRecords(b []byte) ([]RawRecord, error) {
	var recs []RawRecord
	off := 0
	for off < len(b) {
		if len(b)-off < 8 {
			return nil, fmt.Errorf("truncated record header at offset %d", off)
		}
		nameLen := int(binary.LittleEndian.Uint32(b[off:]))
		dataLen := int(binary.LittleEndian.Uint32(b[off+4:]))
		off += 8
		if nameLen < 1 || len(b)-off < nameLen+dataLen {
			return nil, fmt.Errorf("truncated record body at offset %d", off)
		}
		name := b[off : off+nameLen]
		if name[nameLen-1] != 0 {
			return nil, fmt.Errorf("record name at offset %d is not NUL terminated", off)
		}
		off += nameLen
		data := make([]byte, dataLen)
		copy(data, b[off:off+dataLen])
		off += dataLen
		recs = append(recs, RawRecord{Name: string(name[:nameLen-1]), Data: data})
	}
	return recs, nil
}
