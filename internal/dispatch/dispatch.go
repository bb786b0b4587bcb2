// Package dispatch runs HDS calls in the background and relays their
// outcomes to the foreground loop.
//
// Every registration or fault report becomes one goroutine that owns a copy
// of the client and its own signature, so units share nothing but the
// relay. A unit always ends in exactly one success or error entry; there is
// no retry and no cancellation beyond the transport timeout.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"codeberg.org/mutker/hdsim/internal/errors"
	"codeberg.org/mutker/hdsim/internal/fault"
	"codeberg.org/mutker/hdsim/internal/hds"
	"codeberg.org/mutker/hdsim/internal/logger"
	"codeberg.org/mutker/hdsim/internal/model"
	"codeberg.org/mutker/hdsim/internal/relay"
	"github.com/google/uuid"
)

// Reporter is the part of the HDS client the dispatcher drives.
type Reporter interface {
	Register(ctx context.Context, name, version string) (string, error)
	ReportFault(ctx context.Context, sig *model.FaultSignature) (string, error)
}

var _ Reporter = hds.Client{}

// Dispatcher owns the background units and the relay they report into.
type Dispatcher struct {
	client  Reporter
	builder *fault.Builder
	relay   *relay.Relay
	log     logger.Logger
	newID   func() string
	encode  func(any) (string, error)

	registered atomic.Bool
	inFlight   atomic.Int64

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger injects a logger; the package logger is used otherwise.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithIDGenerator replaces the UUID generator used for dispatch IDs.
func WithIDGenerator(f func() string) Option {
	return func(d *Dispatcher) { d.newID = f }
}

// New returns a dispatcher reporting through client into r.
func New(client Reporter, builder *fault.Builder, r *relay.Relay, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client:  client,
		builder: builder,
		relay:   r,
		log:     logger.Default(),
		newID:   uuid.NewString,
		encode:  model.EncodePretty,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register starts the one registration attempt this dispatcher makes. Fault
// reports are refused until it has been called.
func (d *Dispatcher) Register(ctx context.Context, name, version string) (string, error) {
	if err := d.reserve(); err != nil {
		return "", err
	}
	if !d.registered.CompareAndSwap(false, true) {
		d.release()
		return "", errors.New().New(ErrAlreadyRegistered)
	}

	id := d.newID()
	d.log.Info().
		Str("id", id).
		Str("application", name).
		Str("version", version).
		Msg("Registering with HDS")

	d.run(func(client Reporter) {
		reply, err := client.Register(context.WithoutCancel(ctx), name, version)
		if err != nil {
			d.log.Warn().Err(err).Str("id", id).Msg("Registration failed")
			d.emit(relay.Entry{ID: id, Kind: relay.KindRegister, Tag: relay.TagError,
				Text: "REGISTER FAILED: " + err.Error()})
			return
		}
		d.emit(relay.Entry{ID: id, Kind: relay.KindRegister, Tag: relay.TagSuccess,
			Text: "REGISTER OK:\n" + model.Prettify(reply)})
	})
	return id, nil
}

// Trigger builds the signature for c and reports it in the background.
func (d *Dispatcher) Trigger(ctx context.Context, c fault.Category) (string, error) {
	if !d.registered.Load() {
		return "", errors.New().New(ErrNotRegistered)
	}

	sig, err := d.builder.Build(c)
	if err != nil {
		return "", err
	}
	return d.Report(ctx, sig)
}

// Report submits a caller-built signature. The outgoing payload is relayed
// as an info entry before the call starts; an incomplete signature or an
// encoding failure becomes a single error entry and no call is made.
func (d *Dispatcher) Report(ctx context.Context, sig model.FaultSignature) (string, error) {
	if !d.registered.Load() {
		return "", errors.New().New(ErrNotRegistered)
	}
	if err := d.reserve(); err != nil {
		return "", err
	}

	id := d.newID()

	payload, err := d.payload(&sig)
	if err != nil {
		d.release()
		d.log.Error().Err(err).Str("id", id).Str("fault", sig.Label()).Msg("Failed to serialize fault")
		d.emit(relay.Entry{ID: id, Kind: relay.KindFault, Tag: relay.TagError,
			Text: "FAULT FAILED: " + err.Error()})
		return id, nil
	}

	d.emit(relay.Entry{ID: id, Kind: relay.KindFault, Tag: relay.TagInfo,
		Text: "Outgoing Fault:\n" + payload})

	label := sig.Label()
	d.run(func(client Reporter) {
		reply, err := client.ReportFault(context.WithoutCancel(ctx), &sig)
		if err != nil {
			d.log.Warn().Err(err).Str("id", id).Str("fault", label).Msg("Fault report failed")
			d.emit(relay.Entry{ID: id, Kind: relay.KindFault, Tag: relay.TagError,
				Text: "FAULT FAILED: " + err.Error()})
			return
		}
		d.log.Debug().Str("id", id).Str("fault", label).Msg("Fault reported")
		d.emit(relay.Entry{ID: id, Kind: relay.KindFault, Tag: relay.TagSuccess,
			Text: "FAULT OK:\n" + model.Prettify(reply)})
	})
	return id, nil
}

// payload checks sig for missing fields and renders it for display.
func (d *Dispatcher) payload(sig *model.FaultSignature) (string, error) {
	if err := sig.Validate(); err != nil {
		return "", err
	}
	return d.encode(sig)
}

// Drain returns relayed entries in arrival order without blocking.
func (d *Dispatcher) Drain() []relay.Entry {
	return d.relay.Drain()
}

// InFlight returns the number of background units still running.
func (d *Dispatcher) InFlight() int {
	return int(d.inFlight.Load())
}

// Shutdown refuses new work, waits for running units until ctx ends, then
// closes the relay. Entries already queued stay drainable.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closing = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = errors.New().Wrap(ErrShutdownTimeout, ctx.Err()).WithData(d.InFlight())
		d.log.Warn().Int("in_flight", d.InFlight()).Msg("Shutdown before all reports completed")
	}

	d.relay.Close()
	return err
}

// reserve claims a slot for one unit so Shutdown waits for it. It fails
// once shutdown has begun.
func (d *Dispatcher) reserve() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closing {
		return errors.New().New(ErrShuttingDown)
	}
	d.wg.Add(1)
	d.inFlight.Add(1)
	return nil
}

// release gives back a reserved slot that will not run.
func (d *Dispatcher) release() {
	d.inFlight.Add(-1)
	d.wg.Done()
}

// run executes unit on its own goroutine with a private copy of the client.
// The caller must hold a reserved slot.
func (d *Dispatcher) run(unit func(Reporter)) {
	client := d.client
	go func() {
		defer d.release()
		unit(client)
	}()
}

// emit relays e. A closed relay is logged and otherwise ignored so a late
// unit never takes the process down.
func (d *Dispatcher) emit(e relay.Entry) {
	if err := d.relay.Send(e); err != nil {
		d.log.Warn().Err(err).Str("id", e.ID).Str("tag", string(e.Tag)).Msg("Dropped outcome")
	}
}
