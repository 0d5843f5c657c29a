// Package jwt signs and verifies the engine's access and refresh tokens.
//
// Access tokens carry identity claims (name, tenant memberships, roles per
// service) and are bound to the configured issuer and audience. Refresh
// tokens carry only subject, jti and a type marker, and are deliberately
// verified without an audience check so they can be validated by the
// narrower refresh path. Both timestamps are whole-second Unix epoch
// values, and expiry is strict: the default clock-skew leeway is zero.
package jwt
