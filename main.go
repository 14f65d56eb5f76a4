package main

import (
	"os"

	"github.com/catcher-sh/catcher/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
