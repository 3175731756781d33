package main

import (
	"os"

	"github.com/groundline-systems/sourcegate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
