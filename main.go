package main

import (
	"os"

	"github.com/scan-io-git/brakit/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
