package main

import "github.com/pfrederiksen/grant-triage/internal/cli"

func main() {
	cli.Execute()
}
