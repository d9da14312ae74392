package main

import (
	"os"

	"twitter-on-slack/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
