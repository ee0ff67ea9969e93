// Command filings answers questions about company filings with citations.
package main

import (
	"os"

	"github.com/custodia-labs/filings-qa/internal/adapters/driving/cli"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
