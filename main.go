// Package main is the entry point for the clickguard application
package main

import (
	"github.com/ethpandaops/clickguard/cmd"
)

func main() {
	cmd.Execute()
}
