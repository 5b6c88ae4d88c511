package main

import "github.com/mcoot/skillmatch/internal/cli"

func main() {
	cli.Execute()
}
