// main.go - Command line client for Poof hidden-account pools.
//
// Usage:
//   poof deposit cUSD 0.01
//   poof withdraw cUSD 0.01 0xRecipient https://relayer.example
//
// PRIVATE_KEY signs transactions, POOF_PRIVATE_KEY opens the hidden account and RPC_URL
// overrides the configured node.

package main

import (
	"os"
)

func main() {
	err := rootCmd.Execute()
	if current != nil {
		current.close()
	}
	if err != nil {
		os.Exit(1)
	}
}
