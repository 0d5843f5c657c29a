// Package middleware exposes HTTP adapters for access-token verification
// and permission enforcement built on top of authcore.Engine.
//
// # Guards
//
//   - [Guard] — verifies the bearer token and injects the identity.
//   - [RequirePermission] — Guard plus a wildcard permission check.
//
// Each guard reads the Authorization header, calls Engine verification,
// and injects the verified identity into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Touch the backing stores (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from the Engine.
package middleware
