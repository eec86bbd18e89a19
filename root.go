package sceneloader

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// DefaultRootName names the instance root when none is configured.
const DefaultRootName = "Singleton Instances"

// InstanceRoot is the persistent anchor parenting every general instance.
// It lives until the process exits.
type InstanceRoot struct {
	id   uuid.UUID
	name string
	ctx  *SceneContext

	mu       sync.Mutex
	children []*Instance
}

func (r *InstanceRoot) ID() uuid.UUID {
	return r.id
}

func (r *InstanceRoot) Name() string {
	return r.name
}

// Context is the SceneContext general instances are booted and shut down with.
func (r *InstanceRoot) Context() *SceneContext {
	return r.ctx
}

// Children returns the parented instances in creation order.
func (r *InstanceRoot) Children() []*Instance {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Instance, len(r.children))
	copy(out, r.children)
	return out
}

func (r *InstanceRoot) attach(inst *Instance) {
	r.mu.Lock()
	r.children = append(r.children, inst)
	r.mu.Unlock()
}

// RootAnchor creates the InstanceRoot on first use.
type RootAnchor struct {
	name   string
	parent context.Context

	mu   sync.Mutex
	root *InstanceRoot
}

// NewRootAnchor returns an anchor whose root will carry name and derive its
// context from parent.
func NewRootAnchor(parent context.Context, name string) *RootAnchor {
	if name == "" {
		name = DefaultRootName
	}
	if parent == nil {
		parent = context.Background()
	}
	return &RootAnchor{name: name, parent: parent}
}

// GetOrCreate returns the root, creating it on the first call.
func (a *RootAnchor) GetOrCreate() *InstanceRoot {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.root == nil {
		a.root = &InstanceRoot{
			id:   uuid.New(),
			name: a.name,
			ctx:  NewSceneContext(a.parent, a.name),
		}
	}
	return a.root
}

// Created reports whether GetOrCreate has been called.
func (a *RootAnchor) Created() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.root != nil
}
