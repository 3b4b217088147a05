// Package password hashes and verifies admin credentials.
//
// New hashes are bcrypt by default (cost 12 or higher). Argon2id is available
// as an alternative primary algorithm. [Verifier] dispatches on the stored
// hash prefix, so accounts hashed with either algorithm keep working when
// the primary changes, and [Verifier.NeedsRehash] reports when a stored hash
// is weaker than the current settings.
//
// Comparison is constant-time in both algorithms. This package never logs or
// stores plaintext.
package password
