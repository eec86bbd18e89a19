package sceneloader

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadySubscribed = errors.New("manager already subscribed to an event source")
	ErrTemplateExists    = errors.New("template already registered")
)

// ConfigurationMissingError reports that no authoring data was found at the
// declared location. It is fatal at start-up.
type ConfigurationMissingError struct {
	Location string
	Err      error
}

func (e *ConfigurationMissingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("singleton configuration missing at %s: %v", e.Location, e.Err)
	}
	return fmt.Sprintf("singleton configuration missing at %s", e.Location)
}

func (e *ConfigurationMissingError) Unwrap() error {
	return e.Err
}

// ConfigurationInvalidError reports unusable authoring data, including a
// template bound to more than one scene.
type ConfigurationInvalidError struct {
	Template string
	Scenes   []string
	Reason   string
	Err      error
}

func (e *ConfigurationInvalidError) Error() string {
	switch {
	case len(e.Scenes) > 1:
		return fmt.Sprintf("invalid singleton configuration: template %s bound to conflicting scenes %q", e.Template, e.Scenes)
	case e.Err != nil:
		return fmt.Sprintf("invalid singleton configuration: %s: %v", e.Reason, e.Err)
	default:
		return fmt.Sprintf("invalid singleton configuration: %s", e.Reason)
	}
}

func (e *ConfigurationInvalidError) Unwrap() error {
	return e.Err
}

// DanglingTemplateReferenceError reports a configuration entry whose template
// is not in the catalog. It is a warning: the entry is skipped.
type DanglingTemplateReferenceError struct {
	Template string
	Scene    string
}

func (e *DanglingTemplateReferenceError) Error() string {
	return fmt.Sprintf("configuration references unknown template %s (scene %q)", e.Template, e.Scene)
}

// InstantiationError represents a single template that failed to materialize.
type InstantiationError struct {
	Template string
	Scope    Scope
	Scene    string
	Err      error
}

func (e *InstantiationError) Error() string {
	if e.Scope == ScopeScene {
		return fmt.Sprintf("instantiation failed for template %s in scene %s: %v", e.Template, e.Scene, e.Err)
	}
	return fmt.Sprintf("instantiation failed for template %s: %v", e.Template, e.Err)
}

func (e *InstantiationError) Unwrap() error {
	return e.Err
}

// NilServiceError represents a factory that returned no service.
type NilServiceError struct {
	Template string
}

func (e *NilServiceError) Error() string {
	return fmt.Sprintf("nil service produced by template: %s", e.Template)
}

// InvalidTemplateError represents a template that cannot be registered.
type InvalidTemplateError struct {
	Template string
	Err      error
}

func (e *InvalidTemplateError) Error() string {
	return fmt.Sprintf("invalid template %q: %v", e.Template, e.Err)
}

func (e *InvalidTemplateError) Unwrap() error {
	return e.Err
}

// BindingNotFoundError represents a lookup with no live instance.
type BindingNotFoundError struct {
	Capability string
}

func (e *BindingNotFoundError) Error() string {
	return fmt.Sprintf("no live instance for capability: %s", e.Capability)
}

// TypeMismatchError represents a type assertion failure.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Got)
}

// ShutdownError represents a service shutdown failure.
type ShutdownError struct {
	Template string
	Err      error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("shutdown failed for template %s: %v", e.Template, e.Err)
}

func (e *ShutdownError) Unwrap() error {
	return e.Err
}

// ReentrantActivationError represents an activation delivered while another
// one was still being handled.
type ReentrantActivationError struct {
	Scene    string
	Handling string
}

func (e *ReentrantActivationError) Error() string {
	return fmt.Sprintf("activation of %q delivered while %q is still being handled", e.Scene, e.Handling)
}
