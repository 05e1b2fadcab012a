// Package audio validates uploaded voice samples and transcodes them into the
// canonical representation the vault expects: signed 16-bit little-endian PCM,
// one channel, 16 kHz.
package audio

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	resampling "github.com/tphakala/go-audio-resampling"

	"voicegate/internal/platform/config"
	pkgerrors "voicegate/pkg/domain-errors"
)

// Normalizer validates and transcodes arbitrary uploaded audio. It never
// touches the network or disk; all failures are validation failures.
type Normalizer struct {
	maxFileSize int64
	allowed     map[string]struct{}
	sampleRate  int
	channels    int
	bitDepth    int
	logger      *slog.Logger
}

// Info describes a probed audio file; zero format fields mean the container
// was not recognized.
type Info struct {
	FileName   string  `json:"fileName"`
	FileSize   int64   `json:"fileSize"`
	SampleRate int     `json:"sampleRate"`
	Channels   int     `json:"channels"`
	BitDepth   int     `json:"bitDepth"`
	Duration   float64 `json:"duration"`
}

// NewNormalizer builds a Normalizer from the audio section of the config.
func NewNormalizer(cfg config.Audio, logger *slog.Logger) *Normalizer {
	allowed := make(map[string]struct{})
	for _, ext := range strings.Split(cfg.AllowedFormats, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" {
			allowed[ext] = struct{}{}
		}
	}
	return &Normalizer{
		maxFileSize: cfg.MaxFileSize,
		allowed:     allowed,
		sampleRate:  cfg.TargetSampleRate,
		channels:    cfg.TargetChannels,
		bitDepth:    cfg.TargetBitDepth,
		logger:      logger,
	}
}

// Normalize validates the upload and returns base64 of the canonical PCM.
//
// Inputs whose container is not recognized pass through unchanged: the vault
// tolerates many already-compliant encodings, and rejecting them here would
// refuse samples it could have matched. Recognized inputs already at target
// parameters also pass through byte-identical to avoid re-encoding artifacts.
func (n *Normalizer) Normalize(data []byte, fileName string) (string, error) {
	if len(data) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeInvalidInput, "audio data must not be empty")
	}
	if int64(len(data)) > n.maxFileSize {
		return "", pkgerrors.New(pkgerrors.CodePayloadTooLarge,
			fmt.Sprintf("audio file exceeds limit: %d bytes > %d bytes", len(data), n.maxFileSize))
	}
	if err := n.checkExtension(fileName); err != nil {
		return "", err
	}

	processed := n.transcode(data, fileName)
	return base64.StdEncoding.EncodeToString(processed), nil
}

// Probe inspects the container without transcoding. Unrecognized containers
// yield an Info with only the file fields set.
func (n *Normalizer) Probe(data []byte, fileName string) Info {
	info := Info{FileName: fileName, FileSize: int64(len(data))}
	w, err := parseWAV(data)
	if err != nil {
		return info
	}
	info.SampleRate = w.SampleRate
	info.Channels = w.Channels
	info.BitDepth = w.BitsPerSample
	if w.SampleRate > 0 {
		info.Duration = float64(w.frameCount()) / float64(w.SampleRate)
	}
	return info
}

func (n *Normalizer) checkExtension(fileName string) error {
	if strings.TrimSpace(fileName) == "" {
		return pkgerrors.New(pkgerrors.CodeInvalidInput, "file name must not be empty")
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if _, ok := n.allowed[ext]; !ok {
		return pkgerrors.New(pkgerrors.CodeUnsupportedFormat,
			fmt.Sprintf("unsupported audio format %q", ext))
	}
	return nil
}

// transcode converts recognized WAV input to target parameters and degrades
// softly to the original bytes for everything else.
func (n *Normalizer) transcode(data []byte, fileName string) []byte {
	w, err := parseWAV(data)
	if err != nil {
		n.logger.Warn("audio container not recognized, passing through unchanged",
			"file", fileName, "error", err)
		return data
	}

	if w.SampleRate == n.sampleRate && w.Channels == n.channels &&
		w.BitsPerSample == n.bitDepth && !w.FloatPCM {
		return data
	}

	mono := downmix(w.samples(), w.Channels)

	if w.SampleRate != n.sampleRate {
		resampled, err := n.resample(mono, w.SampleRate)
		if err != nil {
			n.logger.Warn("resampling failed, passing through unchanged",
				"file", fileName, "error", err)
			return data
		}
		mono = resampled
	}

	out := pcm16le(mono)
	n.logger.Debug("audio transcoded",
		"file", fileName,
		"src_rate", w.SampleRate, "src_channels", w.Channels, "src_bits", w.BitsPerSample,
		"in_bytes", len(data), "out_bytes", len(out),
	)
	return out
}

func (n *Normalizer) resample(samples []float64, srcRate int) ([]float64, error) {
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(n.sampleRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}
	out, err := rs.Process(samples)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	return out, nil
}
