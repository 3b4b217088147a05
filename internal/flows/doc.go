// Package flows contains the use-case orchestrators behind every Engine
// operation.
//
// Each Run function takes a typed dependency struct of function fields and
// returns either a result or an error drawn from the host's sentinel set.
// Collaborator failures are returned untouched; classifying them is the
// Engine's job.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import adminauth (to avoid import cycles).
//   - Perform I/O directly. All I/O goes through the Deps functions.
package flows
