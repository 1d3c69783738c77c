// Command postbook is a terminal post journal backed by SQLite.
package main

import (
	"os"

	"github.com/abelbrown/postbook/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
