package codec

import (
	"github.com/zaf/g711"
)

// DecodeULaw decodes ITU-T G.711 mu-law bytes into normalized float32
// PCM via github.com/zaf/g711, then splits channels exactly as
// DecodePCM16 does: odd-sized non-interleaved input rounds its channel
// split down, since the halves are taken by integer division.
func DecodeULaw(data []byte, channels int, opts Options) (ChannelBuffers, error) {
	pcm := g711.DecodeUlaw(data)
	return DecodePCM16(pcm, channels, opts)
}

// DecodeALaw decodes ITU-T G.711 A-law bytes into normalized float32
// PCM via github.com/zaf/g711, then splits channels exactly as
// DecodePCM16 does.
func DecodeALaw(data []byte, channels int, opts Options) (ChannelBuffers, error) {
	pcm := g711.DecodeAlaw(data)
	return DecodePCM16(pcm, channels, opts)
}

// EncodeULaw converts normalized float32 PCM back to mu-law bytes. It
// exists to support round-trip testing of [DecodeULaw]; the streaming
// pipeline itself never re-encodes.
func EncodeULaw(samples []float32) []byte {
	pcm := float32ToPCM16Bytes(samples)
	return g711.EncodeUlaw(pcm)
}

// EncodeALaw converts normalized float32 PCM back to A-law bytes, for
// round-trip testing.
func EncodeALaw(samples []float32) []byte {
	pcm := float32ToPCM16Bytes(samples)
	return g711.EncodeAlaw(pcm)
}

func float32ToPCM16Bytes(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(s * 32768)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}
