package main

import "github.com/mcoot/omokgame/internal/cli"

func main() {
	cli.Execute()
}
