//go:build integration

// Package integration runs end-to-end tests against a real OCI registry.
//
// The tests need Docker and start a registry:2 container with
// testcontainers. Run with: go test -tags=integration ./integration/...
package integration
