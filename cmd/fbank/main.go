package main

import (
	"os"

	"github.com/RyanBlaney/sonido-fbank/logging"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		logging.Error(err, "fbank failed")
		os.Exit(1)
	}
}
