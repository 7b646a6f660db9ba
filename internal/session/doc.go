// Package session holds the client-side view of the authenticated user:
// an injectable cell with explicit observer registration, and a sync
// adapter that keeps the cell consistent with a who-am-I resource.
package session
