package llm

import (
	"strings"
	"sync/atomic"

	"github.com/aidiary/backend/internal/config"
)

// testKeySentinel is the placeholder key the demo frontend ships with;
// it must never reach the provider.
const testKeySentinel = "test-api-key"

// Credentials is a resolved key/model pair for one outbound call.
type Credentials struct {
	APIKey string
	Model  string
}

type override struct {
	apiKey string
	model  string
}

// Resolver picks credentials for a request: explicit argument first,
// then the session-global override, then the environment default.
// The override is a single atomic cell, so concurrent writers race and
// the last swap wins.
type Resolver struct {
	defaults config.OpenAIConfig
	override atomic.Pointer[override]
}

// NewResolver creates a Resolver over the environment-derived defaults.
func NewResolver(defaults config.OpenAIConfig) *Resolver {
	return &Resolver{defaults: defaults}
}

// SetOverride stores a session-global key/model pair supplied via the
// settings endpoint. Empty model keeps the environment default.
func (r *Resolver) SetOverride(apiKey, model string) {
	r.override.Store(&override{
		apiKey: strings.TrimSpace(apiKey),
		model:  strings.TrimSpace(model),
	})
}

// Resolve returns the credentials to use for the current call.
func (r *Resolver) Resolve(explicitKey, explicitModel string) Credentials {
	return Credentials{
		APIKey: r.resolveKey(explicitKey),
		Model:  r.resolveModel(explicitModel),
	}
}

// Available reports whether a live provider call can be attempted.
// Unset keys, the test placeholder, and keys without the provider
// prefix are all treated as unavailable so callers route into demo
// behavior instead of a guaranteed auth failure.
func (r *Resolver) Available(explicitKey string) bool {
	key := r.resolveKey(explicitKey)
	if key == "" || key == testKeySentinel {
		return false
	}
	return strings.HasPrefix(key, "sk-")
}

func (r *Resolver) resolveKey(explicitKey string) string {
	if key := strings.TrimSpace(explicitKey); key != "" {
		return key
	}
	if o := r.override.Load(); o != nil && o.apiKey != "" {
		return o.apiKey
	}
	return r.defaults.APIKey
}

func (r *Resolver) resolveModel(explicitModel string) string {
	if model := strings.TrimSpace(explicitModel); model != "" {
		return model
	}
	if o := r.override.Load(); o != nil && o.model != "" {
		return o.model
	}
	if r.defaults.Model != "" {
		return r.defaults.Model
	}
	return config.DefaultModel
}

// Model reports the model currently in effect absent an explicit
// argument, for status endpoints.
func (r *Resolver) Model() string {
	return r.resolveModel("")
}
