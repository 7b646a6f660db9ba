// Package app provides the application service layer.
//
// Orchestrates the auth use cases: password login, trusted-header resolution,
// session lookup and revocation. Sits between HTTP handlers and domain
// repositories. Depends on domain interfaces, not concrete implementations.
package app
