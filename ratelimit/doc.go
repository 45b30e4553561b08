// Package ratelimit provides fixed-window request limiting backed by Redis.
//
// A Limiter is an explicit instance built at startup and injected where it
// is needed; there is no package level limiter. Counters use INCR with an
// EXPIRE on the first hit of each window, keyed as
// "<prefix><policy>:<key>".
package ratelimit
