// Package verification issues the short-lived codes that link an
// organization channel, or a single user, to a messaging backend.
//
// Codes are random UUIDs stored in Redis under two keys: a slot keyed by
// backend, kind, organization and user that holds the live code, and a
// reverse entry keyed by the code that holds the subject. Both expire after
// the store TTL.
package verification
