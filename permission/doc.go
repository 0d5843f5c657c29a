// Package permission evaluates dot-separated wildcard permission patterns
// and role-based admin override.
//
// A granted entry matches a required permission when it is the literal
// super-admin wildcard "*", an exact string match, or a pattern with the
// same number of dot segments where every segment is "*" or equal.
// Wildcards are position-bound: "users.*" matches "users.read" but not
// "users.profile.delete".
//
// The package also provides [Checker] guards for composing permission
// requirements in front of handlers, and a TTL [Cache] keyed by
// (user, tenant). The cache is advisory: a miss falls back to the
// authoritative permission source, never to a deny.
package permission
