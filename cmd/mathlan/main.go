package main

import (
	"github.com/mcoot/mathlan/internal/cli"
)

func main() {
	cli.Execute()
}
