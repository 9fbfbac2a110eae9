package main

import (
	"os"

	"github.com/spigell/candidate-scout/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
