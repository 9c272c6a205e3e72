// Package controller owns the mutable state of one form instance: current
// values, touched and dirty tracking, the error map, and the submission
// phase machine. All mutation flows through SetField, BlurField, Submit, and
// Reset; derivation and validation recompute synchronously within the same
// step as the triggering change, so callers never observe a value without
// its dependents updated.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-formstate/pkg/derive"
	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/gateway"
	"github.com/goliatone/go-formstate/pkg/options"
	"github.com/goliatone/go-formstate/pkg/rule"
	"github.com/goliatone/go-formstate/pkg/validate"
)

// Phase is the submission lifecycle state of a form instance.
type Phase string

const (
	PhasePristine   Phase = "pristine"
	PhaseEditing    Phase = "editing"
	PhaseSubmitting Phase = "submitting"
	PhaseSucceeded  Phase = "succeeded"
)

// Intent names the submit action the user chose, replacing side-channel
// "which button was clicked" routing: callers pass it explicitly.
type Intent string

const (
	IntentSave Intent = "save"
)

var (
	// ErrValidationFailed reports that Submit stopped at the validation
	// gate; the error map carries the details and the gateway was never
	// called.
	ErrValidationFailed = errors.New("controller: validation failed")

	// ErrNotPermitted reports that the permission gate denied submission.
	ErrNotPermitted = errors.New("controller: submission not permitted")

	// ErrDerivedField reports an attempt to set a computed field directly.
	ErrDerivedField = errors.New("controller: field is derived")
)

// Option customises the controller configuration.
type Option func(*Controller)

// WithGateway injects the submission gateway.
func WithGateway(sender gateway.Sender) Option {
	return func(c *Controller) {
		c.sender = sender
	}
}

// WithOptionsProvider injects the select-option source used for dependent
// field resets.
func WithOptionsProvider(provider options.Provider) Option {
	return func(c *Controller) {
		c.provider = provider
	}
}

// WithSubmitGate installs the "may I submit" permission gate. A nil gate
// permits everything.
func WithSubmitGate(gate func() bool) Option {
	return func(c *Controller) {
		c.gate = gate
	}
}

// WithInitialValues seeds the form from existing data, e.g. an edit screen's
// fetched record. Initial values override field defaults.
func WithInitialValues(values map[string]any) Option {
	return func(c *Controller) {
		c.initial = values
	}
}

// Controller coordinates one form instance. Each instance owns its state
// exclusively; a mutex serialises UI events against late-arriving network
// results.
type Controller struct {
	mu sync.Mutex

	reg      *field.Registry
	engine   *derive.Engine
	sender   gateway.Sender
	provider options.Provider
	gate     func() bool
	initial  map[string]any

	phase      Phase
	values     map[string]any
	touched    map[string]struct{}
	errors     map[string]string
	formErrors []string
	dirty      bool

	// epoch tags in-flight submissions; bumping it on Reset/Close discards
	// results from superseded attempts.
	epoch      uint64
	lastIntent Intent
}

// New constructs a controller for the registry, seeds defaults and initial
// values, and runs the initial derivation pass so derived fields are
// populated before the first render.
func New(reg *field.Registry, opts ...Option) (*Controller, error) {
	c := &Controller{
		reg:     reg,
		engine:  derive.New(reg),
		phase:   PhasePristine,
		values:  make(map[string]any),
		touched: make(map[string]struct{}),
		errors:  make(map[string]string),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}

	for _, spec := range reg.Specs() {
		if spec.Default != nil {
			c.values[spec.Name] = spec.Default
		}
	}
	for name, value := range c.initial {
		if reg.Has(name) {
			c.values[name] = value
		}
	}

	changed, err := c.engine.Recompute(c.values)
	if err != nil {
		return nil, err
	}
	for name, value := range changed {
		c.values[name] = value
	}
	return c, nil
}

// SetField stores a raw value, marks the field touched and the form dirty,
// cascades derivation, clears dependent selections that are no longer valid
// in their new context, and re-validates the visible fields, all within
// this call.
func (c *Controller) SetField(ctx context.Context, name string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	spec, err := c.reg.Get(name)
	if err != nil {
		return err
	}
	if spec.IsDerived() {
		return fmt.Errorf("%w: %s", ErrDerivedField, name)
	}

	c.values[name] = value
	c.touched[name] = struct{}{}
	c.dirty = true
	if c.phase == PhasePristine || c.phase == PhaseSucceeded {
		c.phase = PhaseEditing
	}

	if err := c.applyDerivation(); err != nil {
		return err
	}
	if err := c.resetStaleDependents(ctx, name); err != nil {
		return err
	}
	return c.revalidate()
}

// BlurField marks the field touched and re-validates only that field, the
// cheap path for per-field feedback.
func (c *Controller) BlurField(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.reg.Has(name) {
		return &field.UnknownFieldError{Name: name}
	}
	c.touched[name] = struct{}{}

	msg, err := validate.Field(c.values, c.reg, name)
	if err != nil {
		return err
	}
	if msg == "" {
		delete(c.errors, name)
	} else {
		c.errors[name] = msg
	}
	return nil
}

// Submit runs the full validation gate and, when clean, sends the values
// through the gateway. A second Submit while one is in flight is a no-op so
// a double-click produces exactly one network request. Gateway failures are
// folded into controller state (banner message, merged server field
// errors, values preserved) and returned for callers that want to inspect
// them; nothing panics across this boundary.
func (c *Controller) Submit(ctx context.Context, intent Intent) (*gateway.Result, error) {
	c.mu.Lock()
	if c.phase == PhaseSubmitting {
		c.mu.Unlock()
		return nil, nil
	}
	if c.gate != nil && !c.gate() {
		c.formErrors = gateway.MergeFormErrors(c.formErrors, "You do not have permission to perform this action")
		c.mu.Unlock()
		return nil, ErrNotPermitted
	}

	errs, err := validate.Fields(c.values, c.reg)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if len(errs) > 0 {
		c.errors = errs
		for name := range errs {
			c.touched[name] = struct{}{}
		}
		c.phase = PhaseEditing
		c.mu.Unlock()
		return nil, ErrValidationFailed
	}

	if c.sender == nil {
		c.mu.Unlock()
		return nil, errors.New("controller: no submission gateway configured")
	}

	c.errors = make(map[string]string)
	c.formErrors = nil
	c.phase = PhaseSubmitting
	attempt := c.epoch
	payload := copyValues(c.values)
	c.mu.Unlock()

	result, sendErr := c.sender.Send(ctx, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != attempt {
		// The form was reset or closed while the request was in flight;
		// discard the late result.
		return nil, nil
	}

	if sendErr != nil {
		c.phase = PhaseEditing
		c.applySendFailure(sendErr)
		return nil, sendErr
	}

	c.phase = PhaseSucceeded
	c.lastIntent = intent
	c.dirty = false
	return result, nil
}

// Reset restores the controller to a pristine state seeded from values
// (pass nil to fall back to field defaults) and invalidates any in-flight
// submission.
func (c *Controller) Reset(values map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.phase = PhasePristine
	c.dirty = false
	c.touched = make(map[string]struct{})
	c.errors = make(map[string]string)
	c.formErrors = nil
	c.values = make(map[string]any)

	for _, spec := range c.reg.Specs() {
		if spec.Default != nil {
			c.values[spec.Name] = spec.Default
		}
	}
	for name, value := range values {
		if c.reg.Has(name) {
			c.values[name] = value
		}
	}
	return c.applyDerivation()
}

// Close invalidates any in-flight submission; a result arriving after Close
// never mutates state.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Values returns a copy of the current values.
func (c *Controller) Values() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyValues(c.values)
}

// Value returns the current value of one field.
func (c *Controller) Value(name string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[name]
}

// Errors returns a copy of the field error map.
func (c *Controller) Errors() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.errors))
	for name, msg := range c.errors {
		out[name] = msg
	}
	return out
}

// FormErrors returns the form-level banner messages.
func (c *Controller) FormErrors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.formErrors...)
}

// Touched reports whether the field has been touched.
func (c *Controller) Touched(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.touched[name]
	return ok
}

// LastIntent returns the intent of the last successful submission, letting
// owners route post-save behaviour (close, print, add another) without a
// side-channel reference.
func (c *Controller) LastIntent() Intent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastIntent
}

// IsDirty reports whether any field changed since construction or the last
// Reset.
func (c *Controller) IsDirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

func (c *Controller) applyDerivation() error {
	changed, err := c.engine.Recompute(c.values)
	if err != nil {
		return err
	}
	for name, value := range changed {
		c.values[name] = value
	}
	return nil
}

// resetStaleDependents clears fields whose DependsOn set includes a changed
// parent when their current selection is no longer among the valid options
// for the new context, marking them touched so the user sees they must be
// re-chosen. Clearing cascades down chains like Department -> Sub-Department
// -> Section.
func (c *Controller) resetStaleDependents(ctx context.Context, changed string) error {
	if c.provider == nil {
		return nil
	}

	queue := []string{changed}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		for _, name := range c.reg.Dependents(parent) {
			current, ok := c.values[name]
			if !ok || rule.IsEmpty(current) {
				continue
			}
			spec, err := c.reg.Get(name)
			if err != nil {
				return err
			}
			opts, err := c.provider.Options(ctx, spec.Options(), c.values)
			if err != nil {
				return err
			}
			if options.Contains(opts, current) {
				continue
			}
			c.values[name] = nil
			c.touched[name] = struct{}{}
			queue = append(queue, name)
		}
	}
	return c.applyDerivation()
}

func (c *Controller) revalidate() error {
	errs, err := validate.Fields(c.values, c.reg)
	if err != nil {
		return err
	}
	// Only surface errors for touched fields so an untouched form does not
	// light up, but keep the full map consistent by dropping stale entries.
	next := make(map[string]string, len(errs))
	for name, msg := range errs {
		if _, ok := c.touched[name]; ok {
			next[name] = msg
		}
	}
	c.errors = next
	return nil
}

// applySendFailure folds a gateway failure into controller state. Field
// errors from a 4xx are mapped onto registry names and merged so a field can
// show both client- and server-detected problems; everything else becomes a
// dismissible banner.
func (c *Controller) applySendFailure(sendErr error) {
	var valErr *gateway.ValidationError
	if errors.As(sendErr, &valErr) {
		mapping := gateway.MapErrorPayload(c.reg, c.serializer(), valErr.Fields)
		for name, messages := range mapping.Fields {
			if len(messages) == 0 {
				continue
			}
			if existing, ok := c.errors[name]; ok && existing != "" {
				c.errors[name] = existing + "; " + messages[0]
			} else {
				c.errors[name] = messages[0]
			}
			c.touched[name] = struct{}{}
		}
		banner := valErr.Message
		if banner == "" {
			banner = "The server rejected the submission"
		}
		c.formErrors = gateway.MergeFormErrors(c.formErrors, append([]string{banner}, mapping.Form...)...)
		return
	}

	var srvErr *gateway.ServerError
	if errors.As(sendErr, &srvErr) {
		c.formErrors = gateway.MergeFormErrors(c.formErrors, srvErr.Message)
		return
	}

	var netErr *gateway.NetworkError
	if errors.As(sendErr, &netErr) {
		c.formErrors = gateway.MergeFormErrors(c.formErrors, "The request could not be completed; check your connection and try again")
		return
	}

	c.formErrors = gateway.MergeFormErrors(c.formErrors, "Something went wrong while saving")
}

func (c *Controller) serializer() *gateway.Serializer {
	type serialized interface {
		Serializer() *gateway.Serializer
	}
	if g, ok := c.sender.(serialized); ok {
		return g.Serializer()
	}
	return nil
}

func copyValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for name, value := range values {
		out[name] = value
	}
	return out
}
