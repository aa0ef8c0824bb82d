package main

import (
	"os"

	"github.com/riffle-ml/riffle/cmd/riffle/app"
)

func main() {
	cmd := app.NewRiffleCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
