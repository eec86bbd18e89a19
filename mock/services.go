package mock

import (
	"fmt"
	"sync"

	"github.com/centraunit/sceneloader"
)

// Counter records how many times each template was constructed, booted and
// shut down.
type Counter struct {
	mu       sync.Mutex
	created  map[string]int
	booted   map[string]int
	shutdown map[string]int
	order    []string
}

func NewCounter() *Counter {
	return &Counter{
		created:  make(map[string]int),
		booted:   make(map[string]int),
		shutdown: make(map[string]int),
	}
}

func (c *Counter) Created(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created[name]
}

func (c *Counter) Booted(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.booted[name]
}

func (c *Counter) Shutdown(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shutdown[name]
}

// ShutdownOrder lists shut down templates in call order.
func (c *Counter) ShutdownOrder() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Counter) inc(m map[string]int, name string) {
	c.mu.Lock()
	m[name]++
	c.mu.Unlock()
}

// Service is a countable singleton.
type Service interface {
	sceneloader.Singleton
	Name() string
	IsBooted() bool
	SceneName() string
}

// MockService records its lifecycle calls in a Counter.
type MockService struct {
	name    string
	counter *Counter
	booted  bool
	scene   string
	ctx     *sceneloader.SceneContext
	Stopped bool
}

func (s *MockService) OnBoot(ctx *sceneloader.SceneContext) error {
	s.booted = true
	s.ctx = ctx
	s.scene = ctx.Name()
	s.counter.inc(s.counter.booted, s.name)
	return nil
}

func (s *MockService) OnShutdown(ctx *sceneloader.SceneContext) error {
	s.booted = false
	s.Stopped = true
	s.counter.inc(s.counter.shutdown, s.name)
	s.counter.mu.Lock()
	s.counter.order = append(s.counter.order, s.name)
	s.counter.mu.Unlock()
	return nil
}

func (s *MockService) Name() string      { return s.name }
func (s *MockService) IsBooted() bool    { return s.booted }
func (s *MockService) SceneName() string { return s.scene }

// GetContextValue reads a value from the context the service was booted with.
func (s *MockService) GetContextValue(key string) (interface{}, error) {
	if s.ctx == nil {
		return nil, fmt.Errorf("context is nil")
	}
	return s.ctx.Value(key), nil
}

// Template returns a template producing MockService instances counted by c.
func Template(name string, c *Counter) sceneloader.Template {
	return sceneloader.Template{
		Name: name,
		New: func() (sceneloader.Singleton, error) {
			c.inc(c.created, name)
			return &MockService{name: name, counter: c}, nil
		},
	}
}

// Templates returns one counted template per name.
func Templates(c *Counter, names ...string) []sceneloader.Template {
	list := make([]sceneloader.Template, 0, len(names))
	for _, name := range names {
		list = append(list, Template(name, c))
	}
	return list
}

// FailingTemplate returns a template whose factory always fails.
func FailingTemplate(name string) sceneloader.Template {
	return sceneloader.Template{
		Name: name,
		New: func() (sceneloader.Singleton, error) {
			return nil, fmt.Errorf("simulated construction failure")
		},
	}
}

// FailingBoot fails in OnBoot.
type FailingBoot struct {
	MockService
}

func (f *FailingBoot) OnBoot(ctx *sceneloader.SceneContext) error {
	return fmt.Errorf("simulated boot failure")
}

// FailingBootTemplate returns a template whose instances fail to boot.
func FailingBootTemplate(name string, c *Counter) sceneloader.Template {
	return sceneloader.Template{
		Name: name,
		New: func() (sceneloader.Singleton, error) {
			c.inc(c.created, name)
			return &FailingBoot{MockService: MockService{name: name, counter: c}}, nil
		},
	}
}

// PanickingTemplate returns a template whose factory panics.
func PanickingTemplate(name string) sceneloader.Template {
	return sceneloader.Template{
		Name: name,
		New: func() (sceneloader.Singleton, error) {
			panic("simulated panic")
		},
	}
}

// NilTemplate returns a template whose factory returns a typed nil.
func NilTemplate(name string) sceneloader.Template {
	return sceneloader.Template{
		Name: name,
		New: func() (sceneloader.Singleton, error) {
			var s *MockService
			return s, nil
		},
	}
}

// FailingShutdown fails in OnShutdown.
type FailingShutdown struct {
	MockService
}

func (f *FailingShutdown) OnShutdown(ctx *sceneloader.SceneContext) error {
	return fmt.Errorf("simulated shutdown failure")
}

// FailingShutdownTemplate returns a template whose instances fail to shut down.
func FailingShutdownTemplate(name string, c *Counter) sceneloader.Template {
	return sceneloader.Template{
		Name: name,
		New: func() (sceneloader.Singleton, error) {
			c.inc(c.created, name)
			return &FailingShutdown{MockService: MockService{name: name, counter: c}}, nil
		},
	}
}

// Audio is a capability interface used by typed lookups.
type Audio interface {
	sceneloader.Singleton
	Play(clip string) string
}

type AudioService struct {
	MockService
}

func (a *AudioService) Play(clip string) string {
	return a.name + ":" + clip
}

// AudioTemplate returns a template providing the "audio" capability.
func AudioTemplate(name string, c *Counter) sceneloader.Template {
	return sceneloader.Template{
		Name:       name,
		Capability: "audio",
		New: func() (sceneloader.Singleton, error) {
			c.inc(c.created, name)
			return &AudioService{MockService: MockService{name: name, counter: c}}, nil
		},
	}
}

// Activator boots by activating another scene, to exercise re-entrant
// delivery.
type Activator struct {
	MockService
	Activate func()
}

func (a *Activator) OnBoot(ctx *sceneloader.SceneContext) error {
	if a.Activate != nil {
		a.Activate()
	}
	return a.MockService.OnBoot(ctx)
}

// ActivatorTemplate returns a template whose instances call activate on boot.
func ActivatorTemplate(name string, c *Counter, activate func()) sceneloader.Template {
	return sceneloader.Template{
		Name: name,
		New: func() (sceneloader.Singleton, error) {
			c.inc(c.created, name)
			return &Activator{MockService: MockService{name: name, counter: c}, Activate: activate}, nil
		},
	}
}
