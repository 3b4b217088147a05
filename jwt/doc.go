// Package jwt issues and verifies the two admin token classes.
//
// Access tokens carry sub, email, role, iat, exp and a unique jti. Refresh
// tokens carry sub, type=refresh, iat, exp and a jti. The two classes are
// signed with distinct HS256 secrets, so a compromise of one key never forges
// the other class. Every verification failure, whatever the cause, is
// reported as [ErrInvalidToken].
package jwt
