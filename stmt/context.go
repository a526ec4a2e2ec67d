package stmt

import "github.com/cqlforge/cqlforge/meta"

// Context binds an entity's metadata to the runtime state one statement
// needs: resolved keyspace-key values and, for writes, an optional live
// instance. A context is created per statement use; the keyspace name is
// computed lazily and cached until a key changes.
type Context struct {
	Entity *meta.Entity

	keys     map[string]string
	instance map[string]any

	ksName     string
	ksResolved bool
}

// NewContext creates a context for one entity.
func NewContext(entity *meta.Entity) *Context {
	return &Context{Entity: entity, keys: make(map[string]string)}
}

// BindKeyspaceKey binds one keyspace-key value, invalidating the cached
// keyspace name.
func (c *Context) BindKeyspaceKey(name, value string) *Context {
	c.keys[name] = value
	c.ksResolved = false
	return c
}

// SetInstance attaches a live record whose column values feed the builders'
// accessor bindings.
func (c *Context) SetInstance(record map[string]any) *Context {
	c.instance = record
	return c
}

// Instance returns the attached record, or nil.
func (c *Context) Instance() map[string]any { return c.instance }

// KeyspaceName computes the concrete keyspace name. Every declared
// keyspace-key must be bound or resolution fails with MissingKeyError.
func (c *Context) KeyspaceName() (string, error) {
	if c.ksResolved {
		return c.ksName, nil
	}
	if missing := c.Entity.Keyspace.Unbound(c.keys); len(missing) > 0 {
		return "", &MissingKeyError{Entity: c.Entity.Name, Columns: missing, Keyspace: true}
	}
	c.ksName = c.Entity.Keyspace.Format(c.keys)
	c.ksResolved = true
	return c.ksName, nil
}
