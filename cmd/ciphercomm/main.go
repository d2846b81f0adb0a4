package main

import (
	"os"

	"ciphercomm/cmd/ciphercomm/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
