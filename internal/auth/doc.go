// Package auth issues and validates bearer tokens for the HTTP API.
//
// Tokens are HS256 JWTs carrying a subject and a Role. Operators may invoke
// tools; viewers may only read. There is no user store: tokens are minted
// by the `mokumcp token` command from the configured secret.
package auth
