/*Package usbtmc implements datagram encoding and decoding for USB Test and
Measurement Class devices.  This is the minimum needed to drive the bulk
transfer mode on Tektronix AWG5000 series waveform generators.

It does not include features to support multi-packet messaging, and thus
assumes your data fits in the remote's buffer.

To send a message:
1.  Allocate a send buffer
2.  Write the header to it
3.  Write your data to it
4.  Ensure that the total transmission size is a multiple of 4 bytes before flushing

To receive a message:
1.  Allocate a receipt buffer
2.  Create a read header and send it on the Out endpoint
3.  Read from the In endpoint

These macros are implemented as Write() and Read() on the concrete USB type
defined in this package, which satisfies io.ReadWriteCloser so a device can
sit behind a comm.Pool the same way a TCP socket does.
*/
package usbtmc

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/google/gousb"

	"github.com/jpsecher/labawg/comm"
)

const (
	reserved = 0x00

	// one bulk transfer; plenty for SCPI replies, block uploads are
	// chunked by the caller
	bufSize = 1500
)

// bTagGen is a concurrent-safe bTag generator
type bTagGen struct {
	sync.Mutex

	value byte
}

func (b *bTagGen) next() byte {
	b.Lock()
	defer b.Unlock()
	b.value++
	if b.value == 0 {
		// bTag must be 1..255
		b.value = 1
	}
	return b.value
}

// invbTag computes the bitwise inversion of a btag, per USBTMC standard table 1 offset 2
func invbTag(b byte) byte {
	return b ^ 0xff
}

// encBulkOutHeader creates the header defined in USBTMC standard, Table 3
func encBulkOutHeader(tag byte, datalen int) [12]byte {
	out := [12]byte{}
	/* data map by offset:
	0 MsgID, 1 byte, here hardcoded to 1; devDepMsgOut
	1 bTag, a single byte 1 <= x <= 255, unique and incrementing with each message
	2 bTagInverse, the bitwise inverse of bTag
	3 Reserved (0x00)
	4-7 transferSize, message data bytes exclusive of header and alignment, LSB first
	8 bitmap, bit 0 EOM; 0x01 == last message in the stream
	9-11 reserved
	*/
	out[0] = 0x01 // DEV_DEP_MSG_OUT
	out[1] = tag
	out[2] = invbTag(tag)
	out[3] = reserved
	binary.LittleEndian.PutUint32(out[4:8], uint32(datalen))
	out[8] = 0x01
	out[9] = reserved
	out[10] = reserved
	out[11] = reserved
	return out
}

// encBulkInHeader creates the header defined in USBTMC standard, Table 4.
// if terminator is nil, puts 0x00 in the header and sets the bit to use it to false
func encBulkInHeader(tag byte, bufsize int, terminator *byte) [12]byte {
	out := [12]byte{}
	/* this differs from BulkOut by bytes 8~11
	8 bitmap, bit 0 termination character enabled
	9 terminator byte
	10~11 reserved
	*/
	out[0] = 0x02 // REQUEST_DEV_DEP_MSG_IN
	out[1] = tag
	out[2] = invbTag(tag)
	out[3] = reserved
	binary.LittleEndian.PutUint32(out[4:8], uint32(bufsize))
	if terminator != nil {
		out[8] = 0x02
		out[9] = *terminator
	} else {
		out[8] = 0x00
		out[9] = 0x00
	}
	out[10] = reserved
	out[11] = reserved
	return out
}

// USBDevice is a struct hiding the details of USB and exposing an io.ReadWriteCloser interface
type USBDevice struct {
	tagger *bTagGen
	in     *gousb.InEndpoint
	out    *gousb.OutEndpoint
	device *gousb.Device
	iface  *gousb.Interface
	closer func()

	// leftover holds reply bytes the caller's buffer could not fit
	leftover []byte
}

// NewUSBDevice creates a new USB device from its vendor and product ID
func NewUSBDevice(vid, pid uint16) (*USBDevice, error) {
	out := &USBDevice{tagger: &bTagGen{}}
	var err error
	ctx := gousb.NewContext()
	out.device, err = ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		return nil, err
	}
	err = out.device.SetAutoDetach(true)
	if err != nil {
		return nil, err
	}
	out.iface, out.closer, err = out.device.DefaultInterface()
	if err != nil {
		return nil, err
	}
	out.in, err = out.iface.InEndpoint(2)
	if err != nil {
		out.closer()
		return nil, err
	}
	out.out, err = out.iface.OutEndpoint(2)
	if err != nil {
		out.closer()
		return nil, err
	}
	return out, nil
}

// Maker returns a connection maker for a comm.Pool wrapping the device
// with the given IDs
func Maker(vid, pid uint16) comm.CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		return NewUSBDevice(vid, pid)
	}
}

// Read issues a device-dependent message-in request and copies the reply
// payload into p.  Payload bytes beyond len(p) are buffered for the next
// call.
func (d *USBDevice) Read(p []byte) (int, error) {
	if len(d.leftover) > 0 {
		n := copy(p, d.leftover)
		d.leftover = d.leftover[n:]
		return n, nil
	}
	term := byte('\n')
	hdr := encBulkInHeader(d.tagger.next(), bufSize, &term)
	n, err := d.out.Write(hdr[:])
	if err != nil {
		return 0, err
	}
	if n < len(hdr) {
		return 0, fmt.Errorf("usbtmc: wrote %d of %d read request header bytes", n, len(hdr))
	}
	buf := make([]byte, bufSize)
	n, err = d.in.Read(buf)
	if err != nil {
		return 0, err
	}
	if n < 12 {
		return 0, fmt.Errorf("usbtmc: only received %d bytes, need at least 12 to form header", n)
	}
	// transferSize in the reply header bounds the valid payload
	size := int(binary.LittleEndian.Uint32(buf[4:8]))
	payload := buf[12:n]
	if size < len(payload) {
		payload = payload[:size]
	}
	copied := copy(p, payload)
	d.leftover = payload[copied:]
	return copied, nil
}

// Write sends p as a single device-dependent message, padded to the
// 4-byte bulk transfer alignment
func (d *USBDevice) Write(p []byte) (int, error) {
	const alignment = 4
	hdr := encBulkOutHeader(d.tagger.next(), len(p))
	buf := make([]byte, 0, len(hdr)+len(p)+alignment)
	buf = append(buf, hdr[:]...)
	buf = append(buf, p...)
	if residual := len(buf) % alignment; residual > 0 {
		buf = append(buf, make([]byte, alignment-residual)...)
	}
	_, err := d.out.Write(buf)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the device
func (d *USBDevice) Close() error {
	d.closer()
	return d.device.Close()
}
