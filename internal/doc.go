// Package internal holds packages private to adminauth.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: flow orchestrators behind every Engine operation
//   - logger: slog JSON setup shared by the binaries
//   - server: chi HTTP surface for the admin dashboard
//
// Nothing here appears in the public adminauth API.
package internal
