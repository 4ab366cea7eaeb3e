package main

import (
	"os"

	"github.com/tripleminds/intentd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
