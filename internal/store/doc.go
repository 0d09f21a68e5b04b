// Package store persists one account's local state: the list, the queue of
// unsent changes, the meta record, and the lock that keeps a second process
// out of the account directory.
//
// Every file is JSON written atomically (temp file plus rename) so a crash
// mid-write leaves the previous version in place.
package store
