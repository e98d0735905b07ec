package main

import (
	"os"

	"github.com/pratik-mahalle/stagingctl/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
