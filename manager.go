package sceneloader

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errNilScene = errors.New("activation delivered without a scene context")

// ActivationReport describes what one activation produced.
type ActivationReport struct {
	Scene string
	// InitializedGeneral is true for the activation that created the general
	// singletons.
	InitializedGeneral bool
	Instances          []*Instance
	// Failures holds the recoverable errors of the activation.
	Failures []error
}

// Err joins the recoverable failures, nil when there were none.
func (r *ActivationReport) Err() error {
	return errors.Join(r.Failures...)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics records activations and instantiations in metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithRootName names the instance root.
func WithRootName(name string) Option {
	return func(m *Manager) {
		m.rootName = name
	}
}

// WithBaseContext sets the parent of the instance root context.
func WithBaseContext(ctx context.Context) Option {
	return func(m *Manager) {
		if ctx != nil {
			m.baseCtx = ctx
		}
	}
}

// Manager materializes general singletons once, on the first activation, and
// scene-scoped singletons on every activation of their scene.
type Manager struct {
	registry *Registry
	anchor   *RootAnchor
	logger   *zap.Logger
	metrics  *Metrics
	baseCtx  context.Context
	rootName string

	mu                    sync.Mutex
	hasInitializedGeneral bool
	general               []*Instance
	byCapability          map[string]*Instance
	sceneInstances        map[string][]*Instance
	live                  map[string]int
	busy                  bool
	handling              string
	subscribed            bool
	unsubscribe           func()
}

// NewManager creates a manager over a partitioned registry. Nothing is
// instantiated until the first activation.
func NewManager(registry *Registry, opts ...Option) *Manager {
	if registry == nil {
		registry, _ = Partition(nil, nil)
	}
	m := &Manager{
		registry:       registry,
		logger:         zap.NewNop(),
		baseCtx:        context.Background(),
		rootName:       DefaultRootName,
		byCapability:   make(map[string]*Instance),
		sceneInstances: make(map[string][]*Instance),
		live:           make(map[string]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.anchor = NewRootAnchor(m.baseCtx, m.rootName)
	return m
}

// Subscribe registers the manager's single activation handler on source.
// Activations the source queued before subscription are handled before
// Subscribe returns.
func (m *Manager) Subscribe(source EventSource) error {
	if source == nil {
		return errors.New("nil event source")
	}
	m.mu.Lock()
	if m.subscribed {
		m.mu.Unlock()
		return ErrAlreadySubscribed
	}
	m.subscribed = true
	m.mu.Unlock()

	unsubscribe := source.OnActivate(func(scene *SceneContext) {
		m.HandleActivate(scene)
	})

	m.mu.Lock()
	m.unsubscribe = unsubscribe
	m.mu.Unlock()
	return nil
}

// Unsubscribe detaches the manager from its event source.
func (m *Manager) Unsubscribe() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.subscribed = false
	m.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// HandleActivate runs the lifecycle state machine for one activation.
//
// The first activation creates the instance root and every general singleton,
// then falls through to scene handling. Every activation instantiates the
// templates bound to the scene, owned by scene. A failing template is
// reported and never aborts the rest of the batch.
func (m *Manager) HandleActivate(scene *SceneContext) *ActivationReport {
	if scene == nil {
		m.logger.Error("activation rejected", zap.Error(errNilScene))
		return &ActivationReport{Failures: []error{errNilScene}}
	}
	name := scene.Name()
	report := &ActivationReport{Scene: name}

	m.mu.Lock()
	if m.busy {
		err := &ReentrantActivationError{Scene: name, Handling: m.handling}
		m.mu.Unlock()
		m.logger.Error("activation rejected", zap.String("scene", name), zap.Error(err))
		m.metrics.rejected()
		report.Failures = append(report.Failures, err)
		return report
	}
	m.busy = true
	m.handling = name
	initGeneral := !m.hasInitializedGeneral
	counted := scene.Live()
	reactivated := counted && m.live[name] > 0
	if counted {
		m.live[name]++
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.busy = false
		m.handling = ""
		m.mu.Unlock()
	}()

	m.metrics.activation(name)
	if reactivated {
		m.metrics.reactivation()
		m.logger.Warn("scene activated again while still live; scene singletons will be duplicated",
			zap.String("scene", name))
	}

	if initGeneral {
		m.initGeneral(report)
	}

	var created []*Instance
	for _, t := range m.registry.Bindings(name) {
		inst, err := m.instantiate(t, ScopeScene, scene)
		if err != nil {
			report.Failures = append(report.Failures, err)
			continue
		}
		if err := scene.adopt(inst); err != nil {
			if serr := inst.Service.OnShutdown(scene); serr != nil {
				err = errors.Join(err, &ShutdownError{Template: t.Name, Err: serr})
			}
			m.metrics.failed(ScopeScene)
			report.Failures = append(report.Failures, &InstantiationError{Template: t.Name, Scope: ScopeScene, Scene: name, Err: err})
			continue
		}
		m.metrics.created(ScopeScene)
		m.mu.Lock()
		m.sceneInstances[inst.Capability] = append(m.sceneInstances[inst.Capability], inst)
		m.mu.Unlock()
		created = append(created, inst)
		report.Instances = append(report.Instances, inst)
	}

	scene.OnDeactivate(func() {
		m.release(name, counted, created)
	})

	m.logger.Info("scene activated",
		zap.String("scene", name),
		zap.Bool("initialized_general", report.InitializedGeneral),
		zap.Int("scene_instances", len(created)),
		zap.Int("failures", len(report.Failures)))
	return report
}

func (m *Manager) initGeneral(report *ActivationReport) {
	root := m.anchor.GetOrCreate()
	for _, t := range m.registry.General() {
		inst, err := m.instantiate(t, ScopeGeneral, root.Context())
		if err != nil {
			report.Failures = append(report.Failures, err)
			continue
		}
		root.attach(inst)
		m.metrics.created(ScopeGeneral)

		m.mu.Lock()
		m.general = append(m.general, inst)
		if prev, ok := m.byCapability[inst.Capability]; ok {
			m.logger.Warn("capability already provided, keeping first instance",
				zap.String("capability", inst.Capability),
				zap.String("template", inst.Template),
				zap.String("kept", prev.Template))
		} else {
			m.byCapability[inst.Capability] = inst
		}
		m.mu.Unlock()

		report.Instances = append(report.Instances, inst)
	}

	m.mu.Lock()
	m.hasInitializedGeneral = true
	m.mu.Unlock()

	report.InitializedGeneral = true
	m.metrics.generalReady()
	m.logger.Info("general singletons initialized",
		zap.String("root", root.Name()),
		zap.Int("instances", len(root.Children())))
}

func (m *Manager) instantiate(t Template, scope Scope, owner *SceneContext) (inst *Instance, err error) {
	scene := ""
	if scope == ScopeScene {
		scene = owner.Name()
	}
	fail := func(cause error) error {
		m.metrics.failed(scope)
		ierr := &InstantiationError{Template: t.Name, Scope: scope, Scene: scene, Err: cause}
		m.logger.Error("singleton instantiation failed",
			zap.String("template", t.Name),
			zap.String("scope", string(scope)),
			zap.String("scene", scene),
			zap.Error(cause))
		return ierr
	}
	defer func() {
		if r := recover(); r != nil {
			inst = nil
			err = fail(fmt.Errorf("panic: %v", r))
		}
	}()

	if t.New == nil {
		return nil, fail(&NilServiceError{Template: t.Name})
	}
	svc, err := t.New()
	if err != nil {
		return nil, fail(err)
	}
	if isNilService(svc) {
		return nil, fail(&NilServiceError{Template: t.Name})
	}
	if err := svc.OnBoot(owner); err != nil {
		return nil, fail(err)
	}

	inst = &Instance{
		ID:         uuid.New(),
		Template:   t.Name,
		Capability: t.CapabilityKey(),
		Scope:      scope,
		Scene:      scene,
		Service:    svc,
		CreatedAt:  time.Now(),
	}
	m.logger.Debug("singleton instantiated",
		zap.String("template", t.Name),
		zap.String("scope", string(scope)),
		zap.String("scene", scene),
		zap.String("instance_id", inst.ID.String()))
	return inst, nil
}

func (m *Manager) release(scene string, counted bool, created []*Instance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if counted {
		if m.live[scene]--; m.live[scene] <= 0 {
			delete(m.live, scene)
		}
	}
	for _, inst := range created {
		stack := m.sceneInstances[inst.Capability]
		for i, v := range stack {
			if v == inst {
				stack = append(stack[:i], stack[i+1:]...)
				break
			}
		}
		if len(stack) == 0 {
			delete(m.sceneInstances, inst.Capability)
		} else {
			m.sceneInstances[inst.Capability] = stack
		}
		m.metrics.destroyed(ScopeScene)
	}
	m.logger.Debug("scene released", zap.String("scene", scene), zap.Int("instances", len(created)))
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	if m.HasInitializedGeneral() {
		return StateGeneralReady
	}
	return StateUninitialized
}

// HasInitializedGeneral reports whether general singletons were created.
func (m *Manager) HasInitializedGeneral() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasInitializedGeneral
}

// Registry returns the partition the manager works from.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Root returns the instance root, creating it if needed.
func (m *Manager) Root() *InstanceRoot {
	return m.anchor.GetOrCreate()
}

// GeneralInstances returns the general instances in creation order.
func (m *Manager) GeneralInstances() []*Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Instance, len(m.general))
	copy(out, m.general)
	return out
}

// Instance returns the live service registered under capability. General
// instances win; otherwise the most recently activated scene instance is
// returned.
func (m *Manager) Instance(capability string) (Singleton, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ok := m.byCapability[capability]; ok {
		return inst.Service, nil
	}
	if stack := m.sceneInstances[capability]; len(stack) > 0 {
		return stack[len(stack)-1].Service, nil
	}
	return nil, &BindingNotFoundError{Capability: capability}
}

// Resolve returns the live service registered under capability as T.
func Resolve[T Singleton](m *Manager, capability string) (T, error) {
	var zero T
	svc, err := m.Instance(capability)
	if err != nil {
		return zero, err
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, &TypeMismatchError{
			Expected: reflect.TypeOf((*T)(nil)).Elem().String(),
			Got:      reflect.TypeOf(svc).String(),
		}
	}
	return typed, nil
}

// Shutdown is meant for process teardown: it shuts general singletons down in
// reverse creation order and detaches from the event source. General
// singletons are never created again afterwards.
func (m *Manager) Shutdown() error {
	m.Unsubscribe()

	m.mu.Lock()
	general := m.general
	m.general = nil
	m.byCapability = make(map[string]*Instance)
	m.mu.Unlock()

	if len(general) == 0 {
		return nil
	}
	root := m.anchor.GetOrCreate()
	var errs []error
	for i := len(general) - 1; i >= 0; i-- {
		inst := general[i]
		if err := inst.Service.OnShutdown(root.Context()); err != nil {
			errs = append(errs, &ShutdownError{Template: inst.Template, Err: err})
		}
		m.metrics.destroyed(ScopeGeneral)
	}
	m.logger.Info("general singletons shut down", zap.Int("instances", len(general)), zap.Int("failures", len(errs)))
	return errors.Join(errs...)
}

func isNilService(svc Singleton) bool {
	if svc == nil {
		return true
	}
	v := reflect.ValueOf(svc)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}
