package orbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// feedAll pushes every byte through the decoder, collecting completed
// frames and errors.
func feedAll(t *testing.T, d *Decoder, in []byte) (frames [][]byte, errs []error) {
	t.Helper()
	for _, b := range in {
		payload, err := d.Feed(b)
		if err != nil {
			errs = append(errs, err)
		}
		if payload != nil {
			frames = append(frames, payload)
		}
	}
	return
}

func encodeFrameBytes(t *testing.T, msgs ...Message) []byte {
	t.Helper()
	frame, err := EncodeFrame(msgs, 0)
	require.NoError(t, err)
	return frame
}

func TestDecoderSingleFrame(t *testing.T) {
	var d Decoder
	msg := Message{Option: OptionData, Group: 7, Command: 2, Payload: []byte{9, 9}}
	frame := encodeFrameBytes(t, msg)

	for i, b := range frame[:len(frame)-1] {
		payload, err := d.Feed(b)
		require.NoError(t, err)
		require.Nilf(t, payload, "no frame before byte %d", i)
	}
	payload, err := d.Feed(frame[len(frame)-1])
	require.NoError(t, err)
	require.NotNil(t, payload)

	msgs, err := SplitFrame(payload)
	require.NoError(t, err)
	require.Equal(t, []Message{msg}, msgs)
}

func TestDecoderFragmentedStream(t *testing.T) {
	var d Decoder
	first := encodeFrameBytes(t, Message{Option: OptionData, Group: 1, Command: 1, Payload: []byte{1}})
	second := encodeFrameBytes(t, Message{Option: OptionData, Group: 2, Command: 2, Payload: []byte{2, 2}})
	stream := append(append([]byte{0x00, 0x42}, first...), second...)

	frames, errs := feedAll(t, &d, stream)
	require.Empty(t, errs)
	require.Len(t, frames, 2)
	require.Equal(t, first[3:len(first)-1], frames[0])
	require.Equal(t, second[3:len(second)-1], frames[1])
}

func TestDecoderChecksumCorruptionResyncs(t *testing.T) {
	var d Decoder
	corrupt := encodeFrameBytes(t, Keepalive())
	corrupt[len(corrupt)-1]++
	valid := encodeFrameBytes(t, Message{Option: OptionRequest, Group: 4, Command: 1})

	frames, errs := feedAll(t, &d, append(corrupt, valid...))
	require.Len(t, errs, 1)
	require.IsType(t, &ProtocolError{}, errs[0])
	require.Len(t, frames, 1, "exactly the valid frame must come out")
	require.Equal(t, valid[3:len(valid)-1], frames[0])
}

func TestDecoderPathologicalLengthResyncs(t *testing.T) {
	d := Decoder{MaxPayload: 32}
	truncated := []byte{'#', '*', 200}
	valid := encodeFrameBytes(t, Keepalive())

	frames, errs := feedAll(t, &d, append(truncated, valid...))
	require.Len(t, errs, 1)
	require.IsType(t, &ProtocolError{}, errs[0])
	require.Len(t, frames, 1)
	require.Equal(t, valid[3:len(valid)-1], frames[0])
}

func TestDecoderLengthBelowMinimum(t *testing.T) {
	var d Decoder
	_, errs := feedAll(t, &d, []byte{'#', '*', 1})
	require.Len(t, errs, 1)

	frames, errs := feedAll(t, &d, encodeFrameBytes(t, Keepalive()))
	require.Empty(t, errs)
	require.Len(t, frames, 1)
}

func TestDecoderRepeatedSyncByte(t *testing.T) {
	var d Decoder
	valid := encodeFrameBytes(t, Keepalive())
	// a stray '#' right before the real sync sequence
	frames, errs := feedAll(t, &d, append([]byte{'#'}, valid...))
	require.Empty(t, errs)
	require.Len(t, frames, 1)
}

func TestDecoderReusableAcrossManyFrames(t *testing.T) {
	var d Decoder
	frame := encodeFrameBytes(t, Message{Option: OptionData, Group: 3, Command: 9, Payload: []byte{7}})
	var stream []byte
	for i := 0; i < 50; i++ {
		stream = append(stream, frame...)
	}
	frames, errs := feedAll(t, &d, stream)
	require.Empty(t, errs)
	require.Len(t, frames, 50)
}
