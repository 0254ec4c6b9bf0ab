package awgfile_test

import (
	"testing"

	"github.com/jpsecher/labawg/awgfile"
	"github.com/stretchr/testify/require"
)

func TestEncodeRecordVersionBytes(t *testing.T) {
	// byte-for-byte example from the programmer manual's record layout
	got, err := awgfile.EncodeRecord("VERSION", awgfile.Int16(1))
	require.NoError(t, err)
	want := []byte{
		0x08, 0x00, 0x00, 0x00, // name size, includes NUL
		0x02, 0x00, 0x00, 0x00, // data size
		'V', 'E', 'R', 'S', 'I', 'O', 'N', 0x00,
		0x01, 0x00,
	}
	require.Equal(t, want, got)
}

func TestEncodeRecordFraming(t *testing.T) {
	cases := []struct {
		name    string
		v       awgfile.Value
		dataLen int
	}{
		{"MAGIC", awgfile.Int16(5000), 2},
		{"WAVEFORM_LENGTH_21", awgfile.Int32(256), 4},
		{"SAMPLING_RATE", awgfile.Float64(1e9), 8},
		{"WAVEFORM_NAME_21", awgfile.String("wfm001ch1\x00"), 10},
		{"WAVEFORM_DATA_21", awgfile.U16Array{1, 2, 3}, 6},
		{"WAVEFORM_TIMESTAMP_21", awgfile.Timestamp{Year: 2024}, 16},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := awgfile.EncodeRecord(tc.name, tc.v)
			require.NoError(t, err)
			require.Len(t, got, 8+len(tc.name)+1+tc.dataLen)
		})
	}
}

func TestEncodeRecordLittleEndianData(t *testing.T) {
	got, err := awgfile.EncodeRecord("A", awgfile.Int32(0x01020304))
	require.NoError(t, err)
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, got[len(got)-4:])

	got, err = awgfile.EncodeRecord("B", awgfile.U16Array{0xBEEF})
	require.NoError(t, err)
	require.Equal(t, []byte{0xEF, 0xBE}, got[len(got)-2:])
}

func TestEncodeRecordRejectsNonASCII(t *testing.T) {
	_, err := awgfile.EncodeRecord("NAMÉ", awgfile.Int16(1))
	require.ErrorIs(t, err, awgfile.ErrEncoding)

	_, err = awgfile.EncodeRecord("NAME", awgfile.String("wfmé"))
	require.ErrorIs(t, err, awgfile.ErrEncoding)
}

func TestEncodeRecordRejectsNilValue(t *testing.T) {
	_, err := awgfile.EncodeRecord("NAME", nil)
	require.ErrorIs(t, err, awgfile.ErrUnsupportedType)
}

func TestParseRecordsInvertsFraming(t *testing.T) {
	var stream []byte
	recs := []struct {
		name string
		v    awgfile.Value
	}{
		{"MAGIC", awgfile.Int16(5000)},
		{"VERSION", awgfile.Int16(1)},
		{"SAMPLING_RATE", awgfile.Float64(1.2e9)},
	}
	for _, r := range recs {
		b, err := awgfile.EncodeRecord(r.name, r.v)
		require.NoError(t, err)
		stream = append(stream, b...)
	}
	parsed, err := awgfile.ParseRecords(stream)
	require.NoError(t, err)
	require.Len(t, parsed, len(recs))
	for i, r := range recs {
		require.Equal(t, r.name, parsed[i].Name)
	}
}

func TestParseRecordsRejectsTruncation(t *testing.T) {
	b, err := awgfile.EncodeRecord("VERSION", awgfile.Int16(1))
	require.NoError(t, err)
	_, err = awgfile.ParseRecords(b[:len(b)-1])
	require.Error(t, err)
	_, err = awgfile.ParseRecords(b[:5])
	require.Error(t, err)
}
