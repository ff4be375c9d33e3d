// Package main is the entry point for wait-for-it.
package main

import (
	"os"
)

func main() {
	os.Exit(Execute())
}
