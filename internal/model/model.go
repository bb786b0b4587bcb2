// Package model holds the payloads exchanged with the health-diagnostics
// service. Field names in the JSON tags are a fixed external contract.
package model

import (
	"time"

	"codeberg.org/mutker/hdsim/internal/errors"
)

// Severity grades a fault signature.
type Severity string

const (
	SeverityWarning  Severity = "Warning"
	SeverityError    Severity = "Error"
	SeverityCritical Severity = "Critical"
)

// IsValid reports whether s is one of the known severities.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityWarning, SeverityError, SeverityCritical:
		return true
	default:
		return false
	}
}

// RegisterRequest announces an application identity to the service.
type RegisterRequest struct {
	Application string `json:"application"`
	Version     string `json:"version"`
}

// CaptureRequest describes which diagnostic artifacts and environment probes
// the service should collect for a fault.
type CaptureRequest struct {
	LogFileLocation string   `json:"LogFileLocation"`
	Capture         []string `json:"Capture"`
	Environment     []string `json:"Environment"`
}

// FaultSignature is a single simulated fault report. Timestamp is set when
// the signature is built and is not touched afterwards.
type FaultSignature struct {
	ApplicationName string         `json:"ApplicationName"`
	FaultCode       string         `json:"FaultCode"`
	Type            string         `json:"Type"`
	Severity        Severity       `json:"Severity"`
	Description     string         `json:"Description"`
	Timestamp       time.Time      `json:"Timestamp"`
	CaptureRequest  CaptureRequest `json:"CaptureRequest"`
}

// Validate returns ErrMissingField naming the first empty required field.
func (f *FaultSignature) Validate() error {
	errFactory := errors.New()

	required := []struct {
		name  string
		empty bool
	}{
		{"ApplicationName", f.ApplicationName == ""},
		{"FaultCode", f.FaultCode == ""},
		{"Type", f.Type == ""},
		{"Severity", !f.Severity.IsValid()},
		{"Description", f.Description == ""},
		{"Timestamp", f.Timestamp.IsZero()},
		{"CaptureRequest.LogFileLocation", f.CaptureRequest.LogFileLocation == ""},
		{"CaptureRequest.Capture", len(f.CaptureRequest.Capture) == 0},
		{"CaptureRequest.Environment", len(f.CaptureRequest.Environment) == 0},
	}

	for _, field := range required {
		if field.empty {
			return errFactory.WithData(ErrMissingField, field.name)
		}
	}
	return nil
}

// Label is the short code/type pair the service shows, e.g. "F018F0".
func (f *FaultSignature) Label() string {
	return f.FaultCode + f.Type
}
