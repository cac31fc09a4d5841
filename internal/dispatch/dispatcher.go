package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/labrun/internal/hardware"
	"github.com/roach88/labrun/internal/protocol"
)

// Observer receives a callback around every dispatched command. Observers
// run synchronously on the dispatch goroutine and must not block.
type Observer interface {
	CommandStarted(index int, cmd protocol.Command)
	// CommandFinished is called once per started command; err is nil on
	// success and the halting *Error otherwise.
	CommandFinished(index int, cmd protocol.Command, err error)
}

// Dispatcher executes a document's commands against hardware contexts.
//
// A Dispatcher holds no per-run state; Dispatch may be called repeatedly,
// but not concurrently against the same hardware.
type Dispatcher struct {
	deck      hardware.Deck
	registry  *Registry
	logger    *slog.Logger
	observers []Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for per-command tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithObserver adds an observer. Observers are called in the order added.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observers = append(d.observers, o)
	}
}

// New creates a Dispatcher over deck using registry for classification.
func New(deck hardware.Deck, registry *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		deck:     deck,
		registry: registry,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry the dispatcher classifies with.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Run loads pipettes, modules and labware from doc onto the deck, then
// dispatches its commands.
func (d *Dispatcher) Run(ctx context.Context, doc *protocol.Document) error {
	instruments, err := LoadPipettes(ctx, d.deck, doc)
	if err != nil {
		return err
	}
	modules, err := LoadModules(ctx, d.deck, doc)
	if err != nil {
		return err
	}
	labware, err := LoadLabware(ctx, d.deck, doc, modules)
	if err != nil {
		return err
	}
	return d.Dispatch(ctx, doc, instruments, labware, modules)
}

// Dispatch executes doc.Commands in order, one handler per command. The
// first failure stops dispatch and is returned as a *Error; later commands
// are not processed.
func (d *Dispatcher) Dispatch(ctx context.Context, doc *protocol.Document, instruments Instruments, labware LoadedLabware, modules Modules) error {
	d.logger.Info("dispatch starting",
		"protocol", doc.Name(),
		"commands", len(doc.Commands),
	)

	for i, cmd := range doc.Commands {
		d.started(i, cmd)
		err := d.dispatchOne(ctx, i, cmd, instruments, labware, modules)
		d.finished(i, cmd, err)
		if err != nil {
			d.logger.Error("dispatch halted",
				"index", i,
				"command", cmd.Type,
				"code", string(CodeOf(err)),
				"error", err,
			)
			return err
		}
	}

	d.logger.Info("dispatch complete", "commands", len(doc.Commands))
	return nil
}

// dispatchOne classifies and runs a single command.
func (d *Dispatcher) dispatchOne(ctx context.Context, i int, cmd protocol.Command, instruments Instruments, labware LoadedLabware, modules Modules) error {
	params := Params(cmd.Params)
	if params == nil {
		params = Params{}
	}

	desc, ok := d.registry.Lookup(cmd.Type)
	if !ok {
		control, isControl := controlCommands[cmd.Type]
		if !isControl {
			return NewUnsupportedError(i, cmd.Type)
		}
		d.logger.Debug("dispatching control command", "index", i, "command", cmd.Type)
		if err := control(ctx, d.deck, instruments, params); err != nil {
			return asDispatchError(i, cmd.Type, err)
		}
		return nil
	}

	d.logger.Debug("dispatching command",
		"index", i,
		"command", cmd.Type,
		"family", string(desc.Family),
	)
	if err := d.invoke(ctx, desc, instruments, labware, modules, params); err != nil {
		return asDispatchError(i, cmd.Type, err)
	}
	return nil
}

// invoke resolves the command's target and calls its handler. Module
// commands are resolved before the handler runs, so a capability mismatch
// never reaches hardware.
func (d *Dispatcher) invoke(ctx context.Context, desc Descriptor, instruments Instruments, labware LoadedLabware, modules Modules, params Params) error {
	switch desc.Family {
	case FamilyPipette:
		return desc.pipette(ctx, instruments, labware, params)

	case FamilyMagnetic:
		id, mod, err := resolveMagnetic(modules, params)
		if err != nil {
			return err
		}
		return withModule(id, desc.magnetic(ctx, mod, params))

	case FamilyTemperature:
		id, mod, err := resolveTemperature(modules, params)
		if err != nil {
			return err
		}
		return withModule(id, desc.temperature(ctx, mod, params))

	case FamilyThermocycler:
		id, mod, err := resolveThermocycler(modules, params)
		if err != nil {
			return err
		}
		return withModule(id, desc.thermocycler(ctx, mod, params))

	default:
		return fmt.Errorf("descriptor %q has unknown family %q", desc.Type, desc.Family)
	}
}

// withModule records the target module id on a handler error.
func withModule(id string, err error) error {
	if err == nil {
		return nil
	}
	de := asDispatchError(-1, "", err)
	if de.ModuleID == "" {
		de.ModuleID = id
	}
	return de
}

func (d *Dispatcher) started(i int, cmd protocol.Command) {
	for _, o := range d.observers {
		o.CommandStarted(i, cmd)
	}
}

func (d *Dispatcher) finished(i int, cmd protocol.Command, err error) {
	for _, o := range d.observers {
		o.CommandFinished(i, cmd, err)
	}
}
