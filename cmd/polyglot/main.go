package main

import (
	"os"

	"github.com/MeKo-Tech/polyglot/cmd/polyglot/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
