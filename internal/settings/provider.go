package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
)

const policyCacheName = "commerce"

// Provider resolves the commerce policy once per operation.
type Provider interface {
	Policy(ctx context.Context) (Policy, error)
}

// Admin exposes policy edits to operators.
type Admin interface {
	Provider
	Update(ctx context.Context, key, value string) (Policy, error)
}

type settingsStore interface {
	List(ctx context.Context) ([]models.Setting, error)
	Upsert(ctx context.Context, key, value string) error
}

type policyCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	PolicyKey(name string) string
}

type provider struct {
	store    settingsStore
	cache    policyCache
	defaults Policy
	ttl      time.Duration
	logg     *logger.Logger
}

// NewProvider overlays stored settings on defaults. cache may be nil.
func NewProvider(store settingsStore, cache policyCache, defaults Policy, ttl time.Duration, logg *logger.Logger) (Admin, error) {
	if store == nil {
		return nil, fmt.Errorf("settings store required")
	}
	if err := defaults.validate(); err != nil {
		return nil, fmt.Errorf("invalid default policy: %w", err)
	}
	return &provider{
		store:    store,
		cache:    cache,
		defaults: defaults,
		ttl:      ttl,
		logg:     logg,
	}, nil
}

func (p *provider) Policy(ctx context.Context) (Policy, error) {
	if cached, ok := p.fromCache(ctx); ok {
		return cached, nil
	}

	rows, err := p.store.List(ctx)
	if err != nil {
		return Policy{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settings")
	}
	policy := p.defaults
	for _, row := range rows {
		if err := policy.apply(row.Key, row.Value); err != nil {
			p.warn(ctx, "ignoring malformed setting", err)
		}
	}
	if err := policy.validate(); err != nil {
		p.warn(ctx, "stored settings produce an invalid policy, using defaults", err)
		policy = p.defaults
	}

	p.toCache(ctx, policy)
	return policy, nil
}

func (p *provider) Update(ctx context.Context, key, value string) (Policy, error) {
	if !IsKnownKey(key) {
		return Policy{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown setting %q", key))
	}
	probe := p.defaults
	if err := probe.apply(key, value); err != nil {
		return Policy{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid setting value")
	}
	if err := probe.validate(); err != nil {
		return Policy{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid setting value")
	}
	if err := p.store.Upsert(ctx, key, value); err != nil {
		return Policy{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save setting")
	}
	if p.cache != nil {
		if err := p.cache.Del(ctx, p.cache.PolicyKey(policyCacheName)); err != nil {
			p.warn(ctx, "policy cache invalidation failed", err)
		}
	}
	return p.Policy(ctx)
}

func (p *provider) fromCache(ctx context.Context) (Policy, bool) {
	if p.cache == nil || p.ttl <= 0 {
		return Policy{}, false
	}
	raw, err := p.cache.Get(ctx, p.cache.PolicyKey(policyCacheName))
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			p.warn(ctx, "policy cache read failed", err)
		}
		return Policy{}, false
	}
	var policy Policy
	if err := json.Unmarshal([]byte(raw), &policy); err != nil {
		p.warn(ctx, "policy cache entry unreadable", err)
		return Policy{}, false
	}
	return policy, true
}

func (p *provider) toCache(ctx context.Context, policy Policy) {
	if p.cache == nil || p.ttl <= 0 {
		return
	}
	payload, err := json.Marshal(policy)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, p.cache.PolicyKey(policyCacheName), string(payload), p.ttl); err != nil {
		p.warn(ctx, "policy cache write failed", err)
	}
}

func (p *provider) warn(ctx context.Context, msg string, err error) {
	if p.logg == nil {
		return
	}
	p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), msg)
}

// Static returns a Provider that always yields policy.
func Static(policy Policy) Provider {
	return staticProvider{policy: policy}
}

type staticProvider struct {
	policy Policy
}

func (s staticProvider) Policy(context.Context) (Policy, error) {
	return s.policy, nil
}
