package main

import (
	"os"

	"github.com/clawclub/clawclub/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
