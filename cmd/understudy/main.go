package main

import (
	"os"

	"github.com/understudy-bot/understudy/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
