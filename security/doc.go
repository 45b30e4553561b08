// Package security holds the input hygiene helpers that run before untrusted
// values reach the credential store: HTML sanitization, field validators and
// bearer token shape checks.
package security
