package main

import (
	"os"

	"github.com/hashicorp-forge/gdc/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
