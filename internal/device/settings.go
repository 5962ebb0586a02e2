package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"calibri-dashboard/internal/model"
	"gopkg.in/yaml.v3"
)

const (
	MinSensitivity = 10
	MaxSensitivity = 100

	MinUpdateFrequencyMs = 20
	MaxUpdateFrequencyMs = 200

	MinRecordingDurationSec = 10
	MaxRecordingDurationSec = 300

	MinThresholdPercent = 10
	MaxThresholdPercent = 90
)

func DefaultSettings() model.Settings {
	return model.Settings{
		Sensitivity:          50,
		UpdateFrequencyMs:    50,
		RecordingDurationSec: 60,
		ThresholdPercent:     50,
	}
}

// ClampSettings forces every field into its allowed range. Out-of-range
// values snap to the nearest bound; they are never rejected.
func ClampSettings(s model.Settings) model.Settings {
	s.Sensitivity = clamp(s.Sensitivity, MinSensitivity, MaxSensitivity)
	s.UpdateFrequencyMs = clamp(s.UpdateFrequencyMs, MinUpdateFrequencyMs, MaxUpdateFrequencyMs)
	s.RecordingDurationSec = clamp(s.RecordingDurationSec, MinRecordingDurationSec, MaxRecordingDurationSec)
	s.ThresholdPercent = clamp(s.ThresholdPercent, MinThresholdPercent, MaxThresholdPercent)
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type settingsFile struct {
	Version  int            `yaml:"version"`
	Settings model.Settings `yaml:"settings"`
}

// LoadSettings reads settings from a YAML file. A missing or empty file yields
// the defaults; loaded values are clamped.
func LoadSettings(path string) (model.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return model.Settings{}, err
	}
	if len(data) == 0 {
		return DefaultSettings(), nil
	}

	file := settingsFile{Settings: DefaultSettings()}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return model.Settings{}, fmt.Errorf("parsing settings file: %w", err)
	}
	if file.Version != 1 {
		return model.Settings{}, errors.New("unsupported settings file version")
	}
	return ClampSettings(file.Settings), nil
}

// SaveSettings writes settings atomically: temp file in the same directory,
// fsync, rename.
func SaveSettings(path string, s model.Settings) error {
	data, err := yaml.Marshal(settingsFile{Version: 1, Settings: ClampSettings(s)})
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	return os.Rename(tmpName, path)
}
