package main

import (
	"os"

	"github.com/remindcli/remind/internal/cmd"
)

func main() {
	if err := cmd.Root().Execute(); err != nil {
		os.Exit(1)
	}
}
