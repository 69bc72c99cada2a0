// Package tests holds the shared mocks and the integration suites that run
// against a real PostgreSQL container. Integration tests are behind the
// "integration" build tag: go test -tags integration ./tests/...
package tests
