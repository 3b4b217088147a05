// Package blacklist holds access tokens revoked before their natural expiry.
//
// Entries are keyed by the SHA-256 digest of the token, never the raw value,
// and carry the token's own expiry. An entry past that expiry is harmless
// (the token is rejected anyway) and may be evicted by Cleanup at any time.
//
// [Memory] is the per-process set. [Redis] shares revocations across
// processes and lets Redis key expiry do the eviction.
package blacklist
