// Package integration provides cross-package integration tests for
// hiveflow. These tests run the real stack (bus, ledger, memory, hive,
// agent pool, executor) against scripted workers.
//
// Build tag: integration
// Run with: go test -tags integration ./internal/integration/...
package integration
