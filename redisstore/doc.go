// Package redisstore backs the engine's refresh-token and login-attempt
// contracts with Redis.
//
// Refresh-token records live in one hash per token keyed by jti, plus a
// per-user set used for bulk revocation. Rotation is a Lua script so the
// used-check and the mark are one atomic step; of N racing redemptions
// exactly one wins.
//
// Failure counting is a fixed-window counter: INCR plus conditional
// EXPIRE on first hit, deleted outright on a successful login. Key
// prefixes: authcore:rt:, authcore:rtu:, authcore:fail:, authcore:att:.
package redisstore
