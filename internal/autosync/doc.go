// Package autosync is the sync policy engine between the primary store and
// the backup endpoint.
//
// The engine keeps the working copy of links, categories and todos fed by
// the store subscriptions, decides when to push it to the backup endpoint and
// tracks the outcome:
//
//	synced --push starts--> pending --ok--> synced
//	                                \--fail--> offline --push starts--> pending
//
// Automatic pushes are debounced: every qualifying change re-arms a single
// delayed task, and only a quiet window with no further change lets the push
// run. A change qualifies when an endpoint is configured, auto-sync is on,
// every governed kind has delivered its first snapshot and at least one of the
// link or category sets is non-empty. Any change that does not qualify
// cancels the pending task.
//
// Manual sync skips the debounce. Restore pulls the backup and replaces the
// working links (and categories, when the backup has any) without writing
// through to the store.
package autosync
