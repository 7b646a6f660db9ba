// Package database implements the PostgreSQL-backed user repository and
// connection bootstrap, including embedded schema migrations.
package database
