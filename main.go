package main

import "github.com/d00mkeeps/ibhackathon/internal/cli"

func main() {
	cli.Run()
}
