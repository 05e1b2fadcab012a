package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// wavFile is the result of probing a RIFF/WAVE container.
type wavFile struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	FloatPCM      bool
	Data          []byte
}

var errNotWAV = errors.New("not a RIFF/WAVE container")

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// parseWAV walks the RIFF chunk list and extracts the fmt and data chunks.
// Only uncompressed integer and IEEE-float PCM are recognized; anything else
// (compressed codecs, extensible subformats) is reported as an error so the
// caller can fall back to passthrough.
func parseWAV(b []byte) (*wavFile, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, errNotWAV
	}

	var w wavFile
	var haveFmt, haveData bool

	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(b) {
			// Truncated chunk; tolerate a short final data chunk.
			if id == "data" && body < len(b) {
				size = len(b) - body
			} else {
				break
			}
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too small: %d bytes", size)
			}
			format := int(binary.LittleEndian.Uint16(b[body : body+2]))
			w.Channels = int(binary.LittleEndian.Uint16(b[body+2 : body+4]))
			w.SampleRate = int(binary.LittleEndian.Uint32(b[body+4 : body+8]))
			w.BitsPerSample = int(binary.LittleEndian.Uint16(b[body+14 : body+16]))
			switch format {
			case wavFormatPCM:
			case wavFormatFloat:
				w.FloatPCM = true
			default:
				return nil, fmt.Errorf("unsupported wav codec %d", format)
			}
			haveFmt = true
		case "data":
			w.Data = b[body : body+size]
			haveData = true
		}

		// Chunks are word-aligned.
		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if !haveFmt || !haveData {
		return nil, errors.New("missing fmt or data chunk")
	}
	if w.Channels <= 0 || w.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid wav parameters: rate=%d channels=%d", w.SampleRate, w.Channels)
	}
	switch {
	case w.FloatPCM && w.BitsPerSample != 32:
		return nil, fmt.Errorf("unsupported float bit depth %d", w.BitsPerSample)
	case !w.FloatPCM && w.BitsPerSample != 8 && w.BitsPerSample != 16 && w.BitsPerSample != 24 && w.BitsPerSample != 32:
		return nil, fmt.Errorf("unsupported bit depth %d", w.BitsPerSample)
	}
	return &w, nil
}

// samples decodes the data chunk into normalized float64 samples in [-1, 1],
// interleaved by channel.
func (w *wavFile) samples() []float64 {
	bytesPerSample := w.BitsPerSample / 8
	count := len(w.Data) / bytesPerSample
	out := make([]float64, count)

	for i := 0; i < count; i++ {
		p := w.Data[i*bytesPerSample:]
		switch {
		case w.FloatPCM:
			bits := binary.LittleEndian.Uint32(p)
			out[i] = float64(math.Float32frombits(bits))
		case w.BitsPerSample == 8:
			// 8-bit wav is unsigned.
			out[i] = (float64(p[0]) - 128) / 128.0
		case w.BitsPerSample == 16:
			out[i] = float64(int16(binary.LittleEndian.Uint16(p))) / 32768.0
		case w.BitsPerSample == 24:
			v := int32(p[0]) | int32(p[1])<<8 | int32(p[2])<<16
			if v&0x800000 != 0 {
				v |= ^int32(0xFFFFFF)
			}
			out[i] = float64(v) / 8388608.0
		case w.BitsPerSample == 32:
			out[i] = float64(int32(binary.LittleEndian.Uint32(p))) / 2147483648.0
		}
	}
	return out
}

// frameCount returns the number of sample frames in the data chunk.
func (w *wavFile) frameCount() int {
	bytesPerFrame := (w.BitsPerSample / 8) * w.Channels
	if bytesPerFrame == 0 {
		return 0
	}
	return len(w.Data) / bytesPerFrame
}

// pcm16le quantizes normalized samples to signed 16-bit little-endian bytes.
func pcm16le(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s * 32767.0
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

// downmix averages interleaved multi-channel samples into mono.
func downmix(samples []float64, channels int) []float64 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float64, frames)
	for f := 0; f < frames; f++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += samples[f*channels+c]
		}
		out[f] = sum / float64(channels)
	}
	return out
}
