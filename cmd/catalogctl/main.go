package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/kailas-cloud/catalograg/internal/cli"
	"github.com/kailas-cloud/catalograg/internal/version"
)

func main() {
	_ = godotenv.Load()

	cmd := cli.NewRootCommand(version.Get())
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
