package model

import "time"

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sample is one instant's reading from the sensor.
type Sample struct {
	Accelerometer Vector3 `json:"accelerometer"` // m/s²
	Gyroscope     Vector3 `json:"gyroscope"`     // °/s
	EMGEnvelope   float64 `json:"emg_envelope"`
	EMGSignalMax  float64 `json:"emg_signal_max"`
	Timestamp     int64   `json:"timestamp"` // unix millis
}

func (s Sample) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// Settings are the user-tunable device parameters.
type Settings struct {
	Sensitivity          int `json:"sensitivity" yaml:"sensitivity"`
	UpdateFrequencyMs    int `json:"update_frequency_ms" yaml:"updateFrequencyMs"`
	RecordingDurationSec int `json:"recording_duration_sec" yaml:"recordingDurationSec"`
	ThresholdPercent     int `json:"threshold_percent" yaml:"thresholdPercent"`
}

type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at,omitempty"`
}

// SampleRecord is the body of POST /api/emg/data.
type SampleRecord struct {
	SessionID      string  `json:"session_id"`
	AccelerometerX float64 `json:"accelerometer_x"`
	AccelerometerY float64 `json:"accelerometer_y"`
	AccelerometerZ float64 `json:"accelerometer_z"`
	GyroscopeX     float64 `json:"gyroscope_x"`
	GyroscopeY     float64 `json:"gyroscope_y"`
	GyroscopeZ     float64 `json:"gyroscope_z"`
	EMGEnvelope    float64 `json:"emg_envelope"`
	EMGSignalMax   float64 `json:"emg_signal_max"`
}

func NewSampleRecord(sessionID string, s Sample) SampleRecord {
	return SampleRecord{
		SessionID:      sessionID,
		AccelerometerX: s.Accelerometer.X,
		AccelerometerY: s.Accelerometer.Y,
		AccelerometerZ: s.Accelerometer.Z,
		GyroscopeX:     s.Gyroscope.X,
		GyroscopeY:     s.Gyroscope.Y,
		GyroscopeZ:     s.Gyroscope.Z,
		EMGEnvelope:    s.EMGEnvelope,
		EMGSignalMax:   s.EMGSignalMax,
	}
}

// EMGRecord is a persisted sample as returned by the admin listing.
type EMGRecord struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
	SampleRecord
	Timestamp string `json:"timestamp"`
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
}

type SessionSummary struct {
	SessionID  string `json:"session_id"`
	StartedAt  string `json:"started_at"`
	DataPoints int64  `json:"data_points"`
}

type Stats struct {
	Users      int64 `json:"users"`
	EMGRecords int64 `json:"emg_records"`
	Sessions   int64 `json:"sessions"`
}

type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
