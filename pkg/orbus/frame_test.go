package orbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeFrameLayout(t *testing.T) {
	frame, err := EncodeFrame([]Message{{Option: OptionData, Group: 7, Command: 2, Payload: []byte{9, 9}}}, 0)
	require.NoError(t, err)
	require.Equal(t, []byte{'#', '*', 6, 6, OptionData, 7, 2, 9, 9}, frame[:len(frame)-1])
	sum := byte(6)
	for _, b := range frame[3 : len(frame)-1] {
		sum += b
	}
	require.Equal(t, sum, frame[len(frame)-1])
}

func TestFrameRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		msgs []Message
	}{
		{name: "single", msgs: []Message{{Option: OptionRequest, Group: 1, Command: 4}}},
		{name: "keepalive only", msgs: []Message{Keepalive()}},
		{
			name: "batch",
			msgs: []Message{
				{Option: OptionData, Group: 2, Command: 1, Payload: []byte{1, 2, 3, 4}},
				{Option: OptionRequest, Group: 3, Command: 0},
				{Option: OptionData, Group: 2, Command: 2, Payload: []byte{0xde, 0xad}},
				Keepalive(),
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			frame, err := EncodeFrame(tc.msgs, 0)
			require.NoError(t, err)
			dec, err := DecodeFrame(frame)
			require.NoError(t, err)
			require.Equal(t, tc.msgs, dec)
		})
	}
}

// Interpreting the first byte of every encoded message as a stride must
// land exactly on the start of the next message or the end of the payload.
func TestSelfLengthStride(t *testing.T) {
	msgs := []Message{
		{Option: OptionData, Group: 5, Command: 1, Payload: []byte{1}},
		{Option: OptionData, Group: 5, Command: 2, Payload: []byte{1, 2, 3}},
		{Option: OptionRequest, Group: 6, Command: 3},
	}
	frame, err := EncodeFrame(msgs, 0)
	require.NoError(t, err)
	payload := frame[3 : len(frame)-1]
	starts := []int{0}
	for i := 0; i < len(payload); {
		stride := int(payload[i])
		require.True(t, stride > 0, "stride must be positive")
		i += stride
		require.True(t, i <= len(payload), "stride must land inside the payload")
		starts = append(starts, i)
	}
	require.Equal(t, []int{0, 5, 12, 16}, starts)
}

func TestEncodeFrameBufferFull(t *testing.T) {
	msgs := []Message{{Option: OptionData, Group: 1, Command: 1, Payload: make([]byte, 30)}}
	_, err := EncodeFrame(msgs, 16)
	require.Equal(t, ErrBufferFull, err)
}

func TestSplitFrameMalformed(t *testing.T) {
	testCases := []struct {
		name    string
		payload []byte
	}{
		{name: "zero length", payload: []byte{0, 1, 2, 3}},
		{name: "below header", payload: []byte{2, 1}},
		{name: "past end", payload: []byte{9, OptionData, 1, 2}},
		{name: "trailing remainder", payload: []byte{4, OptionData, 1, 2, 3, 0, 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SplitFrame(tc.payload)
			require.Error(t, err)
			require.IsType(t, &ProtocolError{}, err)
		})
	}
}

func TestDecodeFrameMalformed(t *testing.T) {
	valid, err := EncodeFrame([]Message{Keepalive()}, 0)
	require.NoError(t, err)

	corrupted := append([]byte(nil), valid...)
	corrupted[len(corrupted)-1]++

	badSync := append([]byte(nil), valid...)
	badSync[0] = '!'

	badLen := append([]byte(nil), valid...)
	badLen[2]++

	for _, tc := range []struct {
		name string
		in   []byte
	}{
		{name: "too short", in: []byte{'#', '*', 4}},
		{name: "bad sync", in: badSync},
		{name: "length mismatch", in: badLen},
		{name: "checksum mismatch", in: corrupted},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeFrame(tc.in)
			require.Error(t, err)
			require.IsType(t, &ProtocolError{}, err)
		})
	}
}
