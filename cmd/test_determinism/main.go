package main

import (
	"bytes"
	"crypto/sha256"
	"flag"
	"fmt"
	"log"
	"os"

	"spatiotemporal/batch"
	"spatiotemporal/render"
)

// Renders the same spectrogram several times and checks the PNGs match byte for byte.
func main() {
	runs := flag.Int("n", 5, "Number of repeated renders")
	duration := flag.Float64("duration", 1.0, "Clip length in seconds")
	stride := flag.Int("stride", 10, "Sampling stride")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("Usage: go run ./cmd/test_determinism [-n 5] [-duration 1] <clip_stft.png>")
	}
	testFile := flag.Arg(0)
	log.Printf("Testing determinism with: %s\n", testFile)

	cfg := batch.DefaultConfig()
	cfg.Stride = *stride
	cfg.Style = render.StyleBoth

	var standalone, combined [][]byte
	for i := 0; i < *runs; i++ {
		out, err := batch.Pipeline(testFile, *duration, cfg)
		if err != nil {
			log.Fatalf("Run %d failed: %v", i+1, err)
		}
		standalone = append(standalone, out.Standalone.PNG)
		combined = append(combined, out.Combined.PNG)
		log.Printf("Run %d: %d events, %d raster spikes, %d plotted, sha256 %x",
			i+1, out.Events, out.Raster, out.Plotted(), sha256.Sum256(out.Standalone.PNG))
	}

	fmt.Println("\n=== Determinism Check ===")
	allIdentical := true
	for i := 1; i < *runs; i++ {
		if !bytes.Equal(standalone[0], standalone[i]) {
			allIdentical = false
			fmt.Printf("❌ Standalone plot differs between run 1 and run %d\n", i+1)
		}
		if !bytes.Equal(combined[0], combined[i]) {
			allIdentical = false
			fmt.Printf("❌ Combined plot differs between run 1 and run %d\n", i+1)
		}
	}

	if !allIdentical {
		fmt.Println("❌ Rendering is NON-DETERMINISTIC")
		os.Exit(1)
	}
	fmt.Println("✅ All runs produced IDENTICAL plots (deterministic)")
}
