package main

import (
	"os"

	"github.com/hackdojo/hackdojo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
