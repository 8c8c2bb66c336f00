// Package main is the entry point for the modhook CLI.
package main

import "modhook.dev/pkg/modhook/cmd"

func main() {
	cmd.Execute()
}
