// Package redis implements the Redis-backed server-side session store.
//
// Sessions are opaque tokens mapped to user IDs with a sliding TTL; a
// per-user set tracks live tokens so all sessions of a user can be revoked.
package redis
