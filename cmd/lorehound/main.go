package main

import (
	"os"

	"github.com/lorehound/lorehound/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
