package cloud

import (
	"sort"
	"strings"
	"sync"

	cerrors "github.com/systmms/certrenew/internal/errors"
)

// Built-in provider names.
const (
	ProviderAWS     = "aws"
	ProviderAlibaba = "alibaba"
	ProviderAzure   = "azure"
	ProviderNoop    = "noop"
)

// Factory maps provider names to adapter constructors. The built-in
// defaults are seeded at construction time; registering a custom
// constructor for one name must never remove or shadow the default of
// any other name.
type Factory struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewFactory creates a factory seeded with the built-in adapters.
func NewFactory() *Factory {
	f := &Factory{
		constructors: make(map[string]Constructor),
	}
	f.Register(ProviderAWS, newAWSAdapter)
	f.Register(ProviderAlibaba, newAlibabaAdapter)
	f.Register(ProviderAzure, newAzureAdapter)
	f.Register(ProviderNoop, func(opts Options) (Adapter, error) {
		return NewNoopAdapter(), nil
	})
	return f
}

// Register binds providerName to constructor. Only the given name is
// touched; every other registration stays intact.
func (f *Factory) Register(providerName string, constructor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[strings.ToLower(providerName)] = constructor
}

// GetAdapter constructs the adapter registered under providerName.
func (f *Factory) GetAdapter(providerName string, opts Options) (Adapter, error) {
	f.mu.RLock()
	constructor, ok := f.constructors[strings.ToLower(providerName)]
	f.mu.RUnlock()

	if !ok {
		return nil, cerrors.UnsupportedProviderError{
			Provider:  providerName,
			Supported: f.SupportedProviders(),
		}
	}
	return constructor(opts)
}

// IsSupported reports whether providerName has a registered constructor.
func (f *Factory) IsSupported(providerName string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.constructors[strings.ToLower(providerName)]
	return ok
}

// SupportedProviders returns the registered provider names, sorted.
func (f *Factory) SupportedProviders() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.constructors))
	for name := range f.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
