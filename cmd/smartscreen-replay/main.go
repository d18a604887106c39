// Command smartscreen-replay analyzes a captured line-delimited JSON
// protocol transcript and reports the classified packet counts.
package main

import (
	"flag"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/devodan69/smartscreen/internal/replay"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	transcriptPath := flag.String("transcript", "", "path to a line-delimited JSON transcript")
	strict := flag.Bool("strict", true, "fail if HELLO/SET_ORIENTATION/DISPLAY_BITMAP are never observed")
	flag.Parse()

	if *transcriptPath == "" {
		fmt.Fprintln(os.Stderr, "usage: smartscreen-replay -transcript <path> [-strict=false]")
		os.Exit(2)
	}

	f, err := os.Open(*transcriptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening transcript: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	report, err := replay.Run(f, *strict)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parsing transcript: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshaling report: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if len(report.Errors) > 0 {
		os.Exit(1)
	}
}
