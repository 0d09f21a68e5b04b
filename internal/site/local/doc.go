// Package local implements an offline catalogue site. The authoritative list
// and the catalogue of known titles live in JSON files inside the account
// directory, which makes the binding useful for trying the client without a
// network account and as a realistic backend in tests.
//
// The list file stores only ids and user-owned fields, so the binding
// declares Merge and serves details through RequestInfo. Scores are stored
// on a 0-100 scale and converted at this boundary.
package local
