package sceneloader

import (
	"context"
	"errors"
	"sync"
)

var errSceneClosed = errors.New("scene context already deactivated")

// sceneScope is the lifetime shared by a SceneContext and every context
// derived from it with WithValue or MergeWith.
type sceneScope struct {
	mu     sync.Mutex
	owned  []*Instance
	hooks  []func()
	closed bool
	cancel context.CancelFunc
}

// SceneContext extends the standard context.Context with scene ownership.
// It is the owning handle for scene-scoped instances: Deactivate shuts down
// everything the scene owns and cancels the context.
type SceneContext struct {
	context.Context
	parent context.Context
	name   string
	values sync.Map
	scope  *sceneScope
}

// NewSceneContext creates a live SceneContext for the named scene.
// The new context inherits all values from the parent context.
func NewSceneContext(parent context.Context, name string) *SceneContext {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &SceneContext{
		Context: ctx,
		parent:  parent,
		name:    name,
		scope:   &sceneScope{cancel: cancel},
	}
}

// Name returns the scene name used to look up scene bindings.
func (c *SceneContext) Name() string {
	return c.name
}

// WithValue returns a new SceneContext with the provided key-value pair.
// The derived context shares the scene lifetime of c.
func (c *SceneContext) WithValue(key, val interface{}) *SceneContext {
	newCtx := c.derive()
	c.values.Range(func(k, v interface{}) bool {
		newCtx.values.Store(k, v)
		return true
	})
	newCtx.values.Store(key, val)
	return newCtx
}

func (c *SceneContext) Parent() context.Context {
	return c.parent
}

func (c *SceneContext) Value(key interface{}) interface{} {
	if c == nil {
		return nil
	}
	if val, ok := c.values.Load(key); ok {
		return val
	}
	if c.Context != nil {
		return c.Context.Value(key)
	}
	return nil
}

// Values returns the underlying sync.Map of values stored in the context.
func (c *SceneContext) Values() *sync.Map {
	return &c.values
}

// MergeWith combines values from another SceneContext.
// Values from the other context override existing values with the same key;
// the scene name and lifetime stay those of c.
func (c *SceneContext) MergeWith(other *SceneContext) *SceneContext {
	newCtx := c.derive()

	c.values.Range(func(k, v interface{}) bool {
		newCtx.values.Store(k, v)
		return true
	})

	if other != nil {
		other.values.Range(func(k, v interface{}) bool {
			newCtx.values.Store(k, v)
			return true
		})
	}

	return newCtx
}

// Instances returns the instances owned by the scene, in creation order.
func (c *SceneContext) Instances() []*Instance {
	c.scope.mu.Lock()
	defer c.scope.mu.Unlock()
	out := make([]*Instance, len(c.scope.owned))
	copy(out, c.scope.owned)
	return out
}

// Live reports whether the scene has not been deactivated yet.
func (c *SceneContext) Live() bool {
	c.scope.mu.Lock()
	defer c.scope.mu.Unlock()
	return !c.scope.closed
}

// OnDeactivate registers a hook run after the owned instances are shut down.
// A hook registered on an already deactivated scene runs immediately.
func (c *SceneContext) OnDeactivate(hook func()) {
	if hook == nil {
		return
	}
	c.scope.mu.Lock()
	if c.scope.closed {
		c.scope.mu.Unlock()
		hook()
		return
	}
	c.scope.hooks = append(c.scope.hooks, hook)
	c.scope.mu.Unlock()
}

// Deactivate tears the scene down: owned instances are shut down in reverse
// creation order, the context is cancelled and deactivation hooks run.
// Calling it again is a no-op.
func (c *SceneContext) Deactivate() error {
	c.scope.mu.Lock()
	if c.scope.closed {
		c.scope.mu.Unlock()
		return nil
	}
	c.scope.closed = true
	owned := c.scope.owned
	hooks := c.scope.hooks
	c.scope.owned = nil
	c.scope.hooks = nil
	c.scope.mu.Unlock()

	var errs []error
	for i := len(owned) - 1; i >= 0; i-- {
		inst := owned[i]
		if err := inst.Service.OnShutdown(c); err != nil {
			errs = append(errs, &ShutdownError{Template: inst.Template, Err: err})
		}
	}
	c.scope.cancel()
	for _, hook := range hooks {
		hook()
	}
	return errors.Join(errs...)
}

func (c *SceneContext) adopt(inst *Instance) error {
	c.scope.mu.Lock()
	defer c.scope.mu.Unlock()
	if c.scope.closed {
		return errSceneClosed
	}
	c.scope.owned = append(c.scope.owned, inst)
	return nil
}

func (c *SceneContext) derive() *SceneContext {
	return &SceneContext{
		Context: c.Context,
		parent:  c.parent,
		name:    c.name,
		scope:   c.scope,
	}
}
