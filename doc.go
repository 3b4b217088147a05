// Package adminauth authenticates dashboard administrators and manages their
// sessions.
//
// An [Engine], assembled by a [Builder], owns the lockout state machine,
// password verification, access/refresh JWT issuance, the refresh-token
// whitelist kept in an [account.Store], and the access-token [Blacklist].
// Engine methods are safe to call from multiple goroutines.
//
// # Error model
//
// Every method returns either nil or one of the sentinel errors in this
// package. Collaborator failures (store, hashing, signing) are logged with
// slog and replaced by [ErrInternal]; the cause never reaches the caller.
// Use [Message] for the text shown to end users.
//
// # What this package must NOT do
//
//   - Expose password hashes or raw refresh tokens outside of a LoginResult.
//   - Distinguish an unknown email from a wrong password.
//   - Import a concrete store; adapters live under store/.
package adminauth
