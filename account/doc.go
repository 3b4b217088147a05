// Package account defines the admin account entity, its lockout state
// machine, and the storage contract every persistence adapter implements.
//
// Account values are plain data. The lockout transitions in this package are
// the reference semantics; adapters must apply the same transitions
// atomically on their side (see [Store.IncrementLoginAttempts]).
package account
