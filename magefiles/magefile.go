//go:build mage

// Package main provides build targets for the pokedex project using Mage.
//
// Usage:
//
//	mage build          Compile pokedex binary to bin/
//	mage test:all       Run all tests
//	mage test:unit      Run tests in short mode
//	mage test:race      Run all tests with the race detector
//	mage test:cover     Write coverage.out and print per-function coverage
//	mage lint           Run golangci-lint
//	mage vet            Run go vet
//	mage clean          Remove build artifacts
//	mage install        Install pokedex to GOPATH/bin
package main
