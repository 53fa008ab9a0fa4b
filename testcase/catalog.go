package testcase

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum-optimism/infra/op-hwval/types"
)

// Factory instantiates a test case from its descriptor
type Factory func(desc types.TestCaseDescriptor) (TestCase, error)

// Catalog maps descriptor kinds to test case factories
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Register adds a factory for kind. Registering a kind twice is an error.
func (c *Catalog) Register(kind string, f Factory) error {
	if kind == "" {
		return fmt.Errorf("kind is required")
	}
	if f == nil {
		return fmt.Errorf("factory for kind %q is nil", kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.factories[kind]; exists {
		return fmt.Errorf("kind %q already registered", kind)
	}
	c.factories[kind] = f
	return nil
}

// Kinds returns the registered kinds in sorted order
func (c *Catalog) Kinds() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	kinds := make([]string, 0, len(c.factories))
	for k := range c.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Load instantiates the test case described by desc
func (c *Catalog) Load(desc types.TestCaseDescriptor) (tc TestCase, err error) {
	if desc.LoadErr != nil {
		return nil, desc.LoadErr
	}
	if desc.ID == "" {
		return nil, fmt.Errorf("test case in %s has no id", desc.Dir)
	}
	c.mu.RLock()
	f, ok := c.factories[desc.Kind]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown test case kind %q", desc.Kind)
	}

	defer func() {
		if r := recover(); r != nil {
			tc = nil
			err = fmt.Errorf("instantiating %s: panic: %v", desc.ID, r)
		}
	}()
	tc, err = f(desc)
	if err != nil {
		return nil, fmt.Errorf("instantiating %s: %w", desc.ID, err)
	}
	if tc == nil {
		return nil, fmt.Errorf("instantiating %s: factory returned nil", desc.ID)
	}
	return tc, nil
}
