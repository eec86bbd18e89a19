package sceneloader

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Template is the blueprint of a singleton service.
type Template struct {
	// Name is the stable identifier referenced by configuration entries.
	Name string `validate:"template_name"`
	// Capability is the lookup key of the live instance. Defaults to Name.
	Capability string `validate:"omitempty,max=128"`
	// New constructs a fresh service.
	New Factory `validate:"required"`
}

// CapabilityKey returns the key the instance is looked up by.
func (t Template) CapabilityKey() string {
	if t.Capability != "" {
		return t.Capability
	}
	return t.Name
}

// ValidateTemplate checks the template identity and recipe.
func ValidateTemplate(t Template) error {
	if err := validatorInstance().Struct(t); err != nil {
		return &InvalidTemplateError{Template: t.Name, Err: err}
	}
	return nil
}

// Instance is one materialized singleton.
type Instance struct {
	ID         uuid.UUID
	Template   string
	Capability string
	Scope      Scope
	Scene      string
	Service    Singleton
	CreatedAt  time.Time
}

func (i *Instance) String() string {
	if i.Scope == ScopeScene {
		return fmt.Sprintf("%s@%s(%s)", i.Template, i.Scene, i.ID)
	}
	return fmt.Sprintf("%s(%s)", i.Template, i.ID)
}

// TemplateCatalog stores templates by name and lists them in registration
// order. The zero value is an empty catalog ready for use.
type TemplateCatalog struct {
	items map[string]Template
	order []string
}

// NewTemplateCatalog creates a catalog holding the given templates.
func NewTemplateCatalog(templates ...Template) (*TemplateCatalog, error) {
	c := &TemplateCatalog{items: make(map[string]Template, len(templates))}
	for _, t := range templates {
		if err := c.Register(t); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register adds a template to the catalog.
func (c *TemplateCatalog) Register(t Template) error {
	if err := ValidateTemplate(t); err != nil {
		return err
	}
	if c.items == nil {
		c.items = make(map[string]Template)
	}
	if _, ok := c.items[t.Name]; ok {
		return fmt.Errorf("%w: %s", ErrTemplateExists, t.Name)
	}
	c.items[t.Name] = t
	c.order = append(c.order, t.Name)
	return nil
}

// Resolve returns a template by name.
func (c *TemplateCatalog) Resolve(name string) (Template, bool) {
	t, ok := c.items[name]
	return t, ok
}

// Templates returns every template in registration order.
func (c *TemplateCatalog) Templates() []Template {
	list := make([]Template, 0, len(c.order))
	for _, name := range c.order {
		list = append(list, c.items[name])
	}
	return list
}
