// Package data owns the local replica of one account's list for one
// mediatype: the list store, the write-behind queue, the meta record, the
// info cache and the account lock.
//
// Every mutating path runs under a single handler mutex held across
// read, mutate, persist and publish. Remote calls happen outside the mutex
// on copies of the state they need; their results are committed afterwards.
// Queue entries carry a revision so a drain never removes changes merged in
// while the remote call was in flight.
package data
