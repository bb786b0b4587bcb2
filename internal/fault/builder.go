// Package fault builds the synthetic fault signatures for each trigger
// category.
package fault

import (
	"time"

	"codeberg.org/mutker/hdsim/internal/errors"
	"codeberg.org/mutker/hdsim/internal/model"
)

// Builder produces fault signatures on behalf of one application identity.
type Builder struct {
	appName string
	now     func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock replaces the wall clock used to stamp signatures.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder returns a Builder stamping signatures with appName.
func NewBuilder(appName string, opts ...Option) *Builder {
	b := &Builder{
		appName: appName,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AppName returns the application identity the builder reports as.
func (b *Builder) AppName() string {
	return b.appName
}

// Build returns the signature for c. It fails only for a category outside
// the catalog.
func (b *Builder) Build(c Category) (model.FaultSignature, error) {
	e, ok := catalog[c]
	if !ok {
		return model.FaultSignature{}, errors.New().WithData(ErrUnknownCategory, int(c))
	}
	return b.build(e), nil
}

func (b *Builder) NullPointer() model.FaultSignature     { return b.build(catalog[NullPointer]) }
func (b *Builder) OutOfRange() model.FaultSignature      { return b.build(catalog[OutOfRange]) }
func (b *Builder) ConfigMismatch() model.FaultSignature  { return b.build(catalog[ConfigMismatch]) }
func (b *Builder) WatchdogTimeout() model.FaultSignature { return b.build(catalog[WatchdogTimeout]) }

// build copies the catalog slices so callers own their signature outright.
func (b *Builder) build(e entry) model.FaultSignature {
	return model.FaultSignature{
		ApplicationName: b.appName,
		FaultCode:       e.faultCode,
		Type:            e.faultType,
		Severity:        e.severity,
		Description:     e.description,
		Timestamp:       b.now().UTC(),
		CaptureRequest: model.CaptureRequest{
			LogFileLocation: e.logFile,
			Capture:         append([]string(nil), e.capture...),
			Environment:     append([]string(nil), e.environment...),
		},
	}
}
