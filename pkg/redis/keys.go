package redis

import "strings"

const defaultNamespace = "og"

// Key families. Every key is <namespace>:<family>:<parts...>.
const (
	familyIdempotency = "idempotency"
	familyRateLimit   = "rate_limit"
	familyPolicy      = "policy"
	familyAlert       = "alert"
	familyLock        = "lock"
)

// Keys builds namespaced keys. The zero value uses the default namespace.
type Keys struct {
	namespace string
}

func NewKeys(namespace string) Keys {
	return Keys{namespace: strings.Trim(strings.TrimSpace(namespace), ":")}
}

func (k Keys) IdempotencyKey(scope, id string) string {
	return k.build(familyIdempotency, scope, id)
}

func (k Keys) RateLimitKey(scope string) string {
	return k.build(familyRateLimit, scope)
}

// PolicyKey is the cache slot of a named commerce policy.
func (k Keys) PolicyKey(name string) string {
	return k.build(familyPolicy, name)
}

// AlertKey dedupes operator alerts of kind for the given parts.
func (k Keys) AlertKey(kind string, parts ...string) string {
	return k.build(append([]string{familyAlert, kind}, parts...)...)
}

// LockKey names a distributed lease.
func (k Keys) LockKey(name string) string {
	return k.build(familyLock, name)
}

// build joins non-empty parts under the namespace.
func (k Keys) build(parts ...string) string {
	ns := k.namespace
	if ns == "" {
		ns = defaultNamespace
	}
	var b strings.Builder
	b.WriteString(ns)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
