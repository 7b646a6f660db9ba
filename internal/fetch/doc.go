// Package fetch provides a generic revalidating resource: the latest
// result of a background read, with stale-while-revalidate semantics
// and change notification for dependent state.
package fetch
