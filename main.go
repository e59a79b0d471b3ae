package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"portal-swap/cmd"
)

func main() {
	// .env is optional; env vars and the config file still apply
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
