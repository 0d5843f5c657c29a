// Package authcore is a multi-tenant authentication/authorization engine:
// it verifies password credentials with timing-attack mitigation, enforces
// account lockout after repeated failures, issues and verifies JWT access
// tokens, rotates refresh tokens with reuse detection, and evaluates
// wildcard permission patterns with role-based admin override.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// the store contracts ([UserStore], [LoginAttemptStore],
// [RefreshTokenStore]) and value types. Token signing lives in the jwt
// subpackage, password hashing in password, permission evaluation in
// permission; internal coordination (lockout accounting, audit dispatch,
// metrics) lives under internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Implement persistent storage. The backing document store is an
//     external collaborator reached only through the narrow store
//     interfaces; redisstore and memstore are reference implementations.
//   - Reveal why a credential check failed beyond the coarse error code.
//     Unknown user and wrong password are indistinguishable to callers, in
//     both the returned error and the wall-clock duration of the call.
//   - Block unrelated requests. The deliberate minimum-duration floor on
//     Authenticate suspends only the calling goroutine, and audit writes on
//     non-critical paths are fire-and-forget through a bounded dispatcher.
package authcore
