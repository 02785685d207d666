package main

import "github.com/nextest-rs/download-stats/internal/cli"

func main() {
	cli.Execute()
}
