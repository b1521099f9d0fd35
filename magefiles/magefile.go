//go:build mage

// Package main provides build targets for the cfgtree project using Mage.
//
// Usage:
//
//	mage build          Compile cfgtree binary to bin/
//	mage test:all       Run all tests
//	mage test:unit      Run tests without the race detector
//	mage test:race      Run all tests with the race detector
//	mage test:cover     Write a coverage profile to bin/cover.out
//	mage lint           Run fmt, vet and golangci-lint
//	mage fmt            Fail on files gofmt would change
//	mage vet            Run go vet
//	mage clean          Remove build artifacts
//	mage install        Install cfgtree to GOPATH/bin
//	mage stats          Print line counts per package area and doc word counts
package main

const (
	binGo      = "go"
	binaryName = "cfgtree"
	binaryDir  = "bin"
	cmdDir     = "./cmd/cfgtree"
	modulePath = "github.com/mesh-intelligence/cfgtree"
)
