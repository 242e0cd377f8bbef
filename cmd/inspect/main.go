// Inspect a B+ tree index file.
// Usage: go run ./cmd/inspect <path-to-index>
// Example: go run ./cmd/inspect demo/people.10
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"BurrowDB/btree"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	innerColor  = color.New(color.FgYellow)
	leafColor   = color.New(color.FgGreen)
	totalColor  = color.New(color.FgWhite, color.Bold)
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <index-file>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s demo/people.10\n", os.Args[0])
		os.Exit(1)
	}

	var buf bytes.Buffer
	if err := btree.Inspect(&buf, os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	lines := bufio.NewScanner(&buf)
	lines.Buffer(make([]byte, 1024*1024), 1024*1024)
	for lines.Scan() {
		line := lines.Text()
		switch {
		case strings.HasPrefix(line, "header:"):
			headerColor.Println(line)
		case strings.HasPrefix(line, "inner"):
			innerColor.Println(line)
		case strings.HasPrefix(line, "leaf"):
			leafColor.Println(line)
		default:
			totalColor.Println(line)
		}
	}
}
