// Package identity implements the account and access core for a
// license management service: credential verification with login
// throttling, short-lived rotating bearer tokens, single-use action
// tokens for email validation and password reset, and a role scoped
// authorization guard over a multi-tenant company catalog.
//
// Sessions:
//   - Tokens are HMAC signed JWTs minted by TokenService and carry the
//     user id and role frozen at mint time. While a request's token is
//     inside the rotation window the middleware attaches a fresh token
//     on the X-Refresh-Token response header, the old token stays
//     valid until its own expiry.
//
// Action tokens:
//   - ActionTokens rows are opaque, purpose bound, and redeemable
//     exactly once. Issuing a new token retires the holder's previous
//     tokens for the same purpose, redemption and its side effect
//     commit in one transaction.
//
// Authorization:
//   - Guard concentrates every administrative decision. Global admins
//     act everywhere, company admins act inside their company on lower
//     ranked roles, and the seeded system account can never be
//     modified or deleted.
package identity
