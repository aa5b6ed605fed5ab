package main

import (
	"os"

	"github.com/getsentry/cli-sub002/internal/adapters/inbound/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
