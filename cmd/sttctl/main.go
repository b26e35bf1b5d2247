// Command sttctl is a demo harness for the FastConformer-CTC engine:
// it loads a backend from a YAML config, feeds it a raw PCM audio
// file in chunks, and prints the transcript. It is not part of the
// engine's design surface — every operation it drives goes through
// the same pkg/stt.Backend interface any other caller would use.
package main

import (
	"fmt"
	"os"

	"github.com/jms90h5/com.teracloud.streamsx.stt/cmd/sttctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sttctl:", err)
		os.Exit(1)
	}
}
