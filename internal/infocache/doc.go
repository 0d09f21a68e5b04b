// Package infocache stores the remote-sourced details of list items (title,
// aliases, image, dates) for sites whose list endpoint returns only ids and
// progress. It is a small SQLite database per (account, mediatype); entries
// are replaced on refresh and never purged here.
package infocache
