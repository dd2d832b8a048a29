package main

import (
	"log"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("histcheck: %v", err)
	}
	os.Exit(exitCode)
}
