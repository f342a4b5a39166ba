package main

import (
	"os"

	"github.com/clublg/utymap/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
