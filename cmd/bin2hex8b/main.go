package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// paddingLines of "00" precede the image so the hex dump lines up with the
// ROM region the synthesis tools expect.
const paddingLines = 0xa0000

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <input_path> <output_path>\n", os.Args[0])
		os.Exit(1)
	}

	if err := convert(os.Args[1], os.Args[2]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func convert(inputPath, outputPath string) error {
	input, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer input.Close()

	output, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}

	w := bufio.NewWriter(output)

	for i := 0; i < paddingLines; i++ {
		if _, err := w.WriteString("00\n"); err != nil {
			output.Close()
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	r := bufio.NewReader(input)
	for {
		b, err := r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			output.Close()
			return fmt.Errorf("failed to read input: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%02x\n", b); err != nil {
			output.Close()
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		output.Close()
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return output.Close()
}
