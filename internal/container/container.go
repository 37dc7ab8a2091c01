// Package container provides a small dependency container used to wire
// the credential provider, cloud adapter, renewer and webhook service
// from resolved configuration. The container is built in main and passed
// down explicitly; there is no package-level instance.
package container

import (
	"sync"

	cerrors "github.com/systmms/certrenew/internal/errors"
)

// Factory constructs one dependency instance.
type Factory func() (interface{}, error)

type registration struct {
	factory   Factory
	singleton bool
}

// Container maps string keys to factories with an optional singleton
// lifecycle per registration.
type Container struct {
	mu            sync.Mutex
	registrations map[string]registration
	singletons    map[string]interface{}
}

// New creates an empty container.
func New() *Container {
	return &Container{
		registrations: make(map[string]registration),
		singletons:    make(map[string]interface{}),
	}
}

// Register binds key to factory. A singleton registration memoizes the
// first constructed instance; a transient registration invokes the
// factory on every Resolve. Re-registering a key replaces the previous
// binding and discards any memoized instance.
func (c *Container) Register(key string, factory Factory, singleton bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.singletons, key)
	c.registrations[key] = registration{factory: factory, singleton: singleton}
}

// RegisterInstance binds key to an already-constructed value, which
// behaves like a resolved singleton.
func (c *Container) RegisterInstance(key string, instance interface{}) {
	c.Register(key, func() (interface{}, error) { return instance, nil }, true)
}

// Resolve returns the instance bound to key, constructing it if needed.
func (c *Container) Resolve(key string) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reg, ok := c.registrations[key]
	if !ok {
		return nil, cerrors.UnregisteredDependencyError{Key: key}
	}

	if reg.singleton {
		if instance, ok := c.singletons[key]; ok {
			return instance, nil
		}
		instance, err := reg.factory()
		if err != nil {
			return nil, err
		}
		c.singletons[key] = instance
		return instance, nil
	}

	// Transient registrations construct fresh on every resolution, even
	// when the factory closure is shared.
	return reg.factory()
}

// Has reports whether key is registered.
func (c *Container) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.registrations[key]
	return ok
}

// Clear drops all registrations and memoized singletons.
func (c *Container) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registrations = make(map[string]registration)
	c.singletons = make(map[string]interface{})
}
