// Package middleware exposes HTTP middleware built on adminauth.Engine.
//
// # Guards
//
//   - [Guard]: bearer access token, verified by Engine.Authorize (signature,
//     expiry, blacklist).
//   - [RequireRole]: must run after Guard; rejects claims whose role is not
//     listed.
//
// Guard injects the verified claims and the raw bearer token into the request
// context. Handlers that revoke the presented token (logout) read it back
// with [TokenFromContext].
//
// Rejections are written as {"success": false, "message": "..."} with
// status 401 or 403.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access the account store or the blacklist.
package middleware
