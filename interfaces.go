// Package sceneloader creates singleton services from templates, either once
// for the whole process or once per activated scene, and tears scene-owned
// instances down when their scene is deactivated.
package sceneloader

// Singleton defines the interface for services materialized from a Template.
type Singleton interface {
	// OnBoot is called right after the service is constructed.
	// It receives the SceneContext that owns the instance: the instance root
	// context for general singletons, the activated scene otherwise.
	OnBoot(ctx *SceneContext) error

	// OnShutdown is called when the owning context is torn down.
	// It should release any resources held by the service.
	OnShutdown(ctx *SceneContext) error
}

// Factory is the construction recipe of a Template.
type Factory func() (Singleton, error)

// Catalog enumerates every template available to the loader.
type Catalog interface {
	Templates() []Template
}

// ActivationHandler reacts to one context activation.
type ActivationHandler func(scene *SceneContext)

// EventSource delivers context activation events.
type EventSource interface {
	// OnActivate registers handler and returns a function removing it.
	OnActivate(handler ActivationHandler) (unsubscribe func())
}

// Scope defines the lifetime of a singleton instance.
type Scope string

// Available singleton scopes
const (
	// ScopeGeneral instances live for the whole process under the instance root
	ScopeGeneral Scope = "general"
	// ScopeScene instances live as long as the scene that activated them
	ScopeScene Scope = "scene"
)

// State is the lifecycle manager state.
type State int

const (
	// StateUninitialized is the state before the first activation.
	StateUninitialized State = iota
	// StateGeneralReady is reached once general singletons were created.
	StateGeneralReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateGeneralReady:
		return "general_ready"
	default:
		return "unknown"
	}
}
