// Package auth is the LeadNest account and session core: a Bun backed
// credential store, bcrypt password hashing, HS256 access tokens and the
// go-router handlers behind /register, /login and /me.
//
// Accounts:
//   - Users are keyed by a lowercased email. Registration validates the email
//     and password strength, hashes the password and inserts the record in one
//     transaction. A second account for the same email, in any letter case,
//     fails with ErrDuplicateEmail.
//   - New accounts start on a trial subscription that ends DefaultTrialPeriod
//     after creation.
//
// Tokens:
//   - Access tokens carry the user email as subject and expire after the
//     configured TTL. Validation checks the signature before any claim.
//   - Tokens carry a kid header derived from the signing key. Keys passed
//     through WithPreviousSigningKeys stay valid while a new secret rolls out.
//
// Activity sinks:
//   - ActivitySink receives registration and login events. Sinks run best
//     effort, errors are logged and never fail the request.
package auth
