// Package password wraps bcrypt hashing and verification for stored
// credentials. Hashing cost is fixed at construction; Verify never returns
// an error so malformed stored hashes behave exactly like a mismatch.
package password
