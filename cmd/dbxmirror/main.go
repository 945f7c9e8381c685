package main

import (
	"os"

	"github.com/dl-alexandre/dbxmirror/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
