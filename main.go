package main

import (
	"os"

	"github.com/scan-io-git/scanio-playground/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
