package main

import (
	"os"

	"github.com/dkeye/Pairline/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
