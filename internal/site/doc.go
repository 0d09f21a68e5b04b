// Package site defines the client interface every catalogue site binding
// implements, the registry that maps site ids to constructors, and Guard,
// the decorator that bounds, paces and classifies every remote call.
//
// Bindings report failures with the sentinel kinds of package media. Guard
// converts anything else, including timeouts and open-circuit rejections,
// into media.ErrTransport so callers never see raw transport errors.
package site
