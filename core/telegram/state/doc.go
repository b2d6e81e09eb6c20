// Package state keeps per-user conversation sessions for Telegram bots.
//
// A Session holds the current step and string-keyed scratch data. Stores are
// pluggable (in-process map or Redis) and expire idle sessions after a TTL.
// Store operations are individually atomic; callers that read-modify-write a
// session serialize on a Locker keyed by user id.
package state
