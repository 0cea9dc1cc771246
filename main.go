package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const usage = `Expected a subcommand:
  run     render spike plots for every spectrogram under a split/class tree
  encode  render the spike plot of a single spectrogram`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	_ = godotenv.Load()

	switch os.Args[1] {
	case "run":
		os.Exit(runBatch(os.Args[2:]))
	case "encode":
		os.Exit(encodeOne(os.Args[2:]))
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}
