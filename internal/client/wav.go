package client

import (
	"bytes"
	"encoding/binary"
)

const (
	wavSampleRate    = 8000
	wavBitsPerSample = 16
	wavChannels      = 1
)

// silentWAV encodes seconds of 16-bit mono PCM silence.
func silentWAV(seconds float64) []byte {
	samples := int(seconds * wavSampleRate)
	if samples < 0 {
		samples = 0
	}
	blockAlign := wavChannels * wavBitsPerSample / 8
	dataSize := uint32(samples * blockAlign)

	var buf bytes.Buffer
	buf.Grow(44 + int(dataSize))
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(wavChannels))
	binary.Write(&buf, binary.LittleEndian, uint32(wavSampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(wavSampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(wavBitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}
