package main

import (
	"os"

	"github.com/structcoder/setup"
)

func main() {
	os.Exit(setup.Run())
}
