/*
Package session serializes access to conversation snapshots.

A Manager wraps any ports.SessionStore with a per-session reference-counted
mutex and, when a ports.DistributedLocker is configured, a cross-replica lock,
so each chat has exactly one step in flight at a time.
*/
package session
