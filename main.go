package main

import (
	"os"

	"github.com/abhisek/supportagent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
