package main

import (
	"os"

	"github.com/spigell/pf-reconciler/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
