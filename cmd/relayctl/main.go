package main

import "relayctl/internal/cli"

func main() {
	cli.Execute()
}
