package main

import "github.com/campaignpulse/pulse/internal/cli"

func main() {
	cli.Execute()
}
