// Package accounts implements the account lifecycle of a web storefront:
// registration with email confirmation, activation links, login/logout
// over cookie-backed JWT sessions, and the forgot/reset password flow.
//
// Account lifecycle:
//   - New accounts are created inactive. The register command emails an
//     activation link carrying an encoded account id plus a signed,
//     purpose-scoped token bound to the account state at issue time.
//     Visiting the link flips the account active; re-visiting it is
//     harmless.
//   - Login rejects accounts that never confirmed their email and
//     enforces a failed attempt cooldown window.
//
// Password reset:
//   - The forgot password command emails a reset link with the same
//     uid/token shape. Validating the link issues a short-lived signed
//     session token, carried in a cookie, which the new password form
//     must present. Changing the password invalidates every outstanding
//     link for the account, since tokens are bound to the password hash.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther and
//     the reset flow to describe login, activation, and password reset
//     events. Sinks run best-effort (errors are logged) so you can
//     forward to a database or queue without blocking authentication.
package accounts
