package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err, OutputFormat(formatFlag))
		os.Exit(1)
	}
}
