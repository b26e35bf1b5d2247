package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jms90h5/com.teracloud.streamsx.stt/pkg/stt"
)

var (
	inputFile  string
	sampleRate int
	channels   int
	chunkMS    int
	skipWAV    bool
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Transcribe a raw PCM16 audio file end to end",
	Long: `Reads -f/--file as headerless little-endian PCM16 mono audio
(or, with --skip-wav-header, a .wav file whose 44-byte canonical header
is discarded), cuts it into --chunk-ms chunks delivered as if they
arrived from a live stream, and prints the accumulated transcript after
every chunk plus the final result from Finalize.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile == "" {
			return fmt.Errorf("missing required flag -f/--file")
		}
		backend, _, err := loadBackend()
		if err != nil {
			return err
		}

		data, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("read %s: %w", inputFile, err)
		}
		if skipWAV && len(data) > 44 {
			data = data[44:]
		}

		bytesPerSample := 2 * channels
		chunkBytes := (sampleRate * chunkMS / 1000) * bytesPerSample
		if chunkBytes <= 0 {
			return fmt.Errorf("invalid chunk size derived from --rate/--channels/--chunk-ms")
		}

		var elapsed time.Duration
		chunkDuration := time.Duration(chunkMS) * time.Millisecond
		for offset := 0; offset < len(data); offset += chunkBytes {
			end := offset + chunkBytes
			if end > len(data) {
				end = len(data)
			}

			result := backend.ProcessAudio(stt.AudioChunk{
				Data:          data[offset:end],
				Encoding:      stt.EncodingPCM16,
				SampleRate:    sampleRate,
				Channels:      channels,
				BitsPerSample: 16,
				Timestamp:     elapsed,
				ChannelIndex:  -1,
			}, stt.TranscriptionOptions{})
			elapsed += chunkDuration

			if result.HasError {
				fmt.Fprintf(os.Stderr, "chunk at %s: %s: %s\n", elapsed, result.ErrorCode, result.ErrorMessage)
				continue
			}
			if result.Text != "" {
				fmt.Printf("[%s] %s\n", elapsed, result.Text)
			}
		}

		final := backend.Finalize()
		if final.HasError {
			return fmt.Errorf("finalize: %s: %s", final.ErrorCode, final.ErrorMessage)
		}
		fmt.Printf("=== final (confidence %.3f) ===\n%s\n", final.Confidence, final.Text)
		return nil
	},
}

func init() {
	transcribeCmd.Flags().StringVarP(&inputFile, "file", "f", "", "PCM16 audio file to transcribe")
	transcribeCmd.Flags().IntVar(&sampleRate, "rate", 16000, "sample rate of the input file")
	transcribeCmd.Flags().IntVar(&channels, "channels", 1, "channel count of the input file")
	transcribeCmd.Flags().IntVar(&chunkMS, "chunk-ms", 200, "simulated chunk size in milliseconds")
	transcribeCmd.Flags().BoolVar(&skipWAV, "skip-wav-header", false, "discard the first 44 bytes as a canonical WAV header")
}
