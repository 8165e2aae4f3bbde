// Command pokedex manages a pokemon catalog from the command line and
// serves it over HTTP.
package main

import (
	"os"

	"github.com/mesh-intelligence/pokedex/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
