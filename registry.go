package sceneloader

import "sort"

// Registry holds the partition of templates into the general set and the
// per-scene bindings. It is immutable once built by Partition.
type Registry struct {
	general  []Template
	bindings map[string][]Template
	scopes   map[string]string
}

// Partition splits templates using cfg. Every template defaults to general;
// an entry with a non-empty scene moves its template into that scene's
// bindings. Entries naming an unknown template are skipped and reported as
// DanglingTemplateReferenceError, the remaining entries are still applied.
func Partition(cfg *LoadConfiguration, templates []Template) (*Registry, []error) {
	known := make(map[string]Template, len(templates))
	order := make([]string, 0, len(templates))
	for _, t := range templates {
		if _, ok := known[t.Name]; ok {
			continue
		}
		known[t.Name] = t
		order = append(order, t.Name)
	}

	r := &Registry{
		bindings: make(map[string][]Template),
		scopes:   make(map[string]string, len(known)),
	}

	var warnings []error
	if cfg != nil {
		for _, e := range cfg.entries {
			t, ok := known[e.Template]
			if !ok {
				warnings = append(warnings, &DanglingTemplateReferenceError{Template: e.Template, Scene: e.Scene})
				continue
			}
			if e.Scene == "" {
				continue
			}
			r.bindings[e.Scene] = append(r.bindings[e.Scene], t)
			r.scopes[t.Name] = e.Scene
		}
	}

	for _, name := range order {
		if _, scoped := r.scopes[name]; scoped {
			continue
		}
		r.general = append(r.general, known[name])
		r.scopes[name] = ""
	}
	return r, warnings
}

// General returns the templates instantiated once per process.
func (r *Registry) General() []Template {
	out := make([]Template, len(r.general))
	copy(out, r.general)
	return out
}

// Bindings returns the templates bound to scene, nil when there are none.
func (r *Registry) Bindings(scene string) []Template {
	bound, ok := r.bindings[scene]
	if !ok {
		return nil
	}
	out := make([]Template, len(bound))
	copy(out, bound)
	return out
}

// Scenes lists every scene with at least one binding, sorted.
func (r *Registry) Scenes() []string {
	list := make([]string, 0, len(r.bindings))
	for scene := range r.bindings {
		list = append(list, scene)
	}
	sort.Strings(list)
	return list
}

// ScopeOf reports where a template ended up. ok is false for templates that
// were not part of the partition.
func (r *Registry) ScopeOf(template string) (scope Scope, scene string, ok bool) {
	scene, ok = r.scopes[template]
	if !ok {
		return "", "", false
	}
	if scene == "" {
		return ScopeGeneral, "", true
	}
	return ScopeScene, scene, true
}
