// Package scpi provides primitives for working with devices that
// have SCPI interfaces
package scpi

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jpsecher/labawg/comm"
)

const (
	timeout = 5 * time.Second

	tcpFrameSize = 1500
)

// SCPI is a type for encapsulating SCPI communication
type SCPI struct {
	Pool *comm.Pool

	// Handshaking indicates if the communication shall use handshaking,
	// where an error query is sent with every message
	// to ensure the device accepted the input
	Handshaking bool

	// Timeout is the timeout applied to each exchange with the device.
	// The zero value means the package default; waveform uploads want
	// something much longer than scalar queries.
	Timeout time.Duration
}

func (s *SCPI) timeout() time.Duration {
	if s.Timeout != 0 {
		return s.Timeout
	}
	return timeout
}

// Write sends a command to the device.  if s.Handshaking == true,
// it also requests an error response and checks that it is OK.
// it is assumed this is used for set operations and not get.
func (s *SCPI) Write(cmds ...string) error {
	conn, err := s.Pool.Get()
	if err != nil {
		return err
	}
	defer func() { s.Pool.ReturnWithError(conn, err) }()
	var wrap io.ReadWriter
	wrap = comm.NewTerminator(conn, '\n', '\n')
	wrap, err = comm.NewTimeout(wrap, s.timeout())
	if err != nil {
		return err
	}
	if s.Handshaking {
		cmds = append([]string{"*CLS;"}, cmds...)
		cmds = append(cmds, ";:SYSTem:ERRor?")
	}
	str := strings.Join(cmds, " ")
	_, err = io.WriteString(wrap, str)
	if err != nil {
		return err
	}
	if s.Handshaking {
		buf := make([]byte, tcpFrameSize)
		n, err := wrap.Read(buf)
		if err != nil {
			return err
		}
		str := string(buf[:n])
		if !errFieldOK(str) {
			return fmt.Errorf("%s", str)
		}
	}
	return nil
}

// WriteRead is write, but with a read call after.  It is assumed that "get"
// calls use this underlying mechanism
func (s *SCPI) WriteRead(cmds ...string) ([]byte, error) {
	var resp []byte
	conn, err := s.Pool.Get()
	if err != nil {
		return resp, err
	}
	defer func() { s.Pool.ReturnWithError(conn, err) }()
	var wrap io.ReadWriter
	wrap = comm.NewTerminator(conn, '\n', '\n')
	wrap, err = comm.NewTimeout(wrap, s.timeout())
	if err != nil {
		return resp, err
	}
	if s.Handshaking {
		cmds = append([]string{"*CLS;"}, cmds...)
		cmds = append(cmds, ";:SYSTem:ERRor?")
	}
	str := strings.Join(cmds, " ")
	_, err = io.WriteString(wrap, str)
	if err != nil {
		return resp, err
	}
	buf := make([]byte, tcpFrameSize)
	n, err := wrap.Read(buf)
	if err != nil {
		return resp, err
	}
	resp = buf[:n]
	if s.Handshaking {
		pieces := bytes.Split(resp, []byte{';'})
		errS := string(pieces[len(pieces)-1])
		if !errFieldOK(errS) {
			return resp, fmt.Errorf("%s", errS)
		}
		return bytes.Join(pieces[:len(pieces)-1], []byte{}), nil
	}
	return resp, err
}

// WriteBlock sends prefix immediately followed by an IEEE 488.2 definite
// length block (#<ndigits><len><payload>) carrying data.  It is used for
// bulk binary transfers such as file uploads, which must not pass through
// the string path (the payload may contain terminator bytes).
func (s *SCPI) WriteBlock(prefix string, data []byte) error {
	conn, err := s.Pool.Get()
	if err != nil {
		return err
	}
	defer func() { s.Pool.ReturnWithError(conn, err) }()
	wrap, err := comm.NewTimeout(conn, s.timeout())
	if err != nil {
		return err
	}
	lenS := strconv.Itoa(len(data))
	msg := make([]byte, 0, len(prefix)+2+len(lenS)+len(data)+1)
	msg = append(msg, prefix...)
	msg = append(msg, '#')
	msg = append(msg, strconv.Itoa(len(lenS))...)
	msg = append(msg, lenS...)
	msg = append(msg, data...)
	msg = append(msg, '\n')
	_, err = wrap.Write(msg)
	return err
}

// ReadBlock sends a query and parses the IEEE 488.2 definite length block
// in the response, returning only the payload
func (s *SCPI) ReadBlock(cmds ...string) ([]byte, error) {
	var ret []byte
	conn, err := s.Pool.Get()
	if err != nil {
		return ret, err
	}
	defer func() { s.Pool.ReturnWithError(conn, err) }()
	wrap, err := comm.NewTimeout(conn, s.timeout())
	if err != nil {
		return ret, err
	}
	str := strings.Join(cmds, " ")
	_, err = wrap.Write(append([]byte(str), '\n'))
	if err != nil {
		return ret, err
	}
	buf := make([]byte, tcpFrameSize)
	n, err := wrap.Read(buf)
	if err != nil {
		return ret, err
	}
	if n < 2 {
		return ret, fmt.Errorf("block response was only %d bytes, expected >2", n)
	}
	if buf[0] != '#' {
		return ret, fmt.Errorf("first byte in block response was %v, expected #", buf[0])
	}
	nbytesText := int(buf[1]) - 48 // ASCII digit -> int
	upper := 2 + nbytesText
	dataBuf := buf[:n]
	nbytes, err := strconv.Atoi(string(dataBuf[2:upper]))
	if err != nil {
		return ret, err
	}
	dataBuf = dataBuf[upper:]
	for len(dataBuf) < nbytes {
		buf := make([]byte, tcpFrameSize)
		n, err = wrap.Read(buf)
		if err != nil {
			return ret, err
		}
		dataBuf = append(dataBuf, buf[:n]...)
	}
	// pop the terminator if the device appended one past the block
	if len(dataBuf) > nbytes {
		dataBuf = dataBuf[:nbytes]
	}
	return dataBuf, nil
}

// ReadString sends a command to the device, then reads the response
// and returns it as a decoded ASCII or UTF-8 string
func (s *SCPI) ReadString(cmds ...string) (string, error) {
	resp, err := s.WriteRead(cmds...)
	if err == nil && len(resp) > 0 {
		if resp[len(resp)-1] == '\n' {
			resp = resp[:len(resp)-1]
		}
		if len(resp) > 0 && resp[len(resp)-1] == '\r' {
			resp = resp[:len(resp)-1]
		}
	}
	return string(resp), err
}

// ReadFloat sends a command to the device, then reads the
// response and parses it as a floating point value
func (s *SCPI) ReadFloat(cmds ...string) (float64, error) {
	resp, err := s.ReadString(cmds...)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(resp, 64)
}

// ReadBool sends a command to the device, then reads the
// response and parses it as a boolean
func (s *SCPI) ReadBool(cmds ...string) (bool, error) {
	resp, err := s.ReadString(cmds...)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(resp)
}

// ReadInt sends a command to the device, then reads the
// response and parses it as an integer
func (s *SCPI) ReadInt(cmds ...string) (int, error) {
	resp, err := s.ReadString(cmds...)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(resp)
}

// Raw sends a command to the device and returns a response if it was a
// query, else a blank string.  Handshaking is bypassed on a copy so
// concurrent callers never observe it disabled.
func (s *SCPI) Raw(str string) (string, error) {
	bare := *s
	bare.Handshaking = false
	if strings.Contains(str, "?") {
		return bare.ReadString(str)
	}
	return "", bare.Write(str)
}

// PopError gets a single error from the queue on the device
func (s *SCPI) PopError() error {
	str, err := s.ReadString("SYSTem:ERRor?")
	if err != nil {
		return err
	}
	if errFieldOK(str) {
		return nil
	}
	return fmt.Errorf("%s", str)
}

// AllErrors returns all errors from the device as a list
func (s *SCPI) AllErrors() []error {
	var errs []error
	for {
		err := s.PopError()
		if err == nil {
			break
		}
		errs = append(errs, err)
	}
	return errs
}

// AllErrorsString is equivalent to AllErrors, but joining by newline.
// if there were no errors, the error return value is nil, otherwise
// it is the first error in the list and has no particular meaning
func (s *SCPI) AllErrorsString() (string, error) {
	errs := s.AllErrors()
	if len(errs) == 0 {
		return "", nil
	}
	strs := make([]string, len(errs))
	for i := 0; i < len(errs); i++ {
		strs[i] = errs[i].Error()
	}
	return strings.Join(strs, "\n"), errs[0]
}

// errFieldOK reports whether a SYSTem:ERRor? reply indicates no error.
// Tektronix gear replies `0,"No error"` where others use `+0,...`.
func errFieldOK(s string) bool {
	return strings.HasPrefix(s, "+0") || strings.HasPrefix(s, "0,")
}
