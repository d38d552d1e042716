package main

import (
	"os"

	"github.com/petasbytes/deepagent/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
