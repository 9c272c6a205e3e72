// Package formstate unifies the form-state pipeline: a declarative field
// registry, pure validation and derivation engines, a form controller state
// machine, and a submission gateway. Each concrete form becomes a registry
// instantiation (programmatic, YAML, or OpenAPI-derived) rather than
// hand-written effect chains.
package formstate

import (
	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/formdef"
	"github.com/goliatone/go-formstate/pkg/gateway"
	"github.com/goliatone/go-formstate/pkg/options"
	"github.com/goliatone/go-formstate/pkg/permission"
)

// FieldSpec aliases the registry's field description.
type FieldSpec = field.Spec

// DerivedSpec aliases the computed-field description.
type DerivedSpec = field.DerivedSpec

// Registry aliases the immutable field registry.
type Registry = field.Registry

// Controller aliases the per-form-instance state machine.
type Controller = controller.Controller

// Intent aliases the explicit submit action value.
type Intent = controller.Intent

// Capabilities aliases the per-module capability set.
type Capabilities = permission.Capabilities

// SubmissionResult aliases the gateway's success payload.
type SubmissionResult = gateway.Result

// Option re-exports select-field option entries.
type Option = options.Option

// NewRegistryBuilder exposes the field registry builder from the top-level
// module.
func NewRegistryBuilder(opts ...field.BuilderOption) *field.Builder {
	return field.NewBuilder(opts...)
}

// NewController constructs a controller for a built registry.
func NewController(reg *Registry, opts ...controller.Option) (*Controller, error) {
	return controller.New(reg, opts...)
}

// NewGateway constructs the HTTP submission gateway for one backend
// resource.
func NewGateway(reg *Registry, baseURL, resource string, opts ...gateway.Option) *gateway.Gateway {
	return gateway.New(reg, baseURL, resource, opts...)
}

// LoadDefinition parses a YAML form definition.
func LoadDefinition(raw []byte) (*formdef.Definition, error) {
	return formdef.Load(raw)
}
