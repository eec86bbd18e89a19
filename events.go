package sceneloader

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// SceneBus is an in-memory EventSource. The host calls Activate and
// Deactivate on scene transitions; handlers run synchronously on the caller's
// goroutine.
//
// Activations raised while nobody is subscribed are queued and delivered to
// the first subscriber, so no event is delivered before subscription and none
// is lost.
type SceneBus struct {
	logger *zap.Logger

	mu       sync.Mutex
	nextID   int
	handlers map[int]ActivationHandler
	order    []int
	pending  []*SceneContext
	live     map[string][]*SceneContext
}

// NewSceneBus creates an empty bus.
func NewSceneBus(logger *zap.Logger) *SceneBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SceneBus{
		logger:   logger,
		handlers: make(map[int]ActivationHandler),
		live:     make(map[string][]*SceneContext),
	}
}

// OnActivate registers handler. Queued activations are flushed to it before
// OnActivate returns.
func (b *SceneBus) OnActivate(handler ActivationHandler) func() {
	if handler == nil {
		return func() {}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.order = append(b.order, id)
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, scene := range pending {
		b.logger.Debug("delivering queued activation", zap.String("scene", scene.Name()))
		handler(scene)
	}

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *SceneBus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Activate creates a live SceneContext named name and delivers it to every
// subscriber.
func (b *SceneBus) Activate(parent context.Context, name string) *SceneContext {
	scene := NewSceneContext(parent, name)

	b.mu.Lock()
	b.live[name] = append(b.live[name], scene)
	if len(b.order) == 0 {
		b.pending = append(b.pending, scene)
		b.mu.Unlock()
		b.logger.Debug("queued activation until a handler subscribes", zap.String("scene", name))
		return scene
	}
	handlers := make([]ActivationHandler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(scene)
	}
	return scene
}

// Deactivate tears down the most recent live context named name.
func (b *SceneBus) Deactivate(name string) error {
	b.mu.Lock()
	stack := b.live[name]
	if len(stack) == 0 {
		b.mu.Unlock()
		return fmt.Errorf("scene %q is not active", name)
	}
	scene := stack[len(stack)-1]
	if len(stack) == 1 {
		delete(b.live, name)
	} else {
		b.live[name] = stack[:len(stack)-1]
	}
	b.mu.Unlock()

	err := scene.Deactivate()
	if err != nil {
		b.logger.Warn("scene deactivated with shutdown errors", zap.String("scene", name), zap.Error(err))
	}
	return err
}

// Active lists the names of live scenes, sorted.
func (b *SceneBus) Active() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := make([]string, 0, len(b.live))
	for name := range b.live {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}
