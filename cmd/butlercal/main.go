package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"butlercal/internal/cli"
	"butlercal/internal/scraper"
)

func main() {
	// Load .env if present; environment always wins.
	_ = godotenv.Load()

	if err := scraper.RegisterBuiltins(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitError)
	}

	cli.Execute()
}
