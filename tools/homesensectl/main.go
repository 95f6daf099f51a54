// homesensectl is the command line client of the homesense backend
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// a .env file is optional
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
