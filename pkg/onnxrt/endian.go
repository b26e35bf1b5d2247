package onnxrt

import "math"

// putFloat32/getFloat32/putInt64/getInt64 give Tensor's byte-view a
// fixed, platform-independent layout (little-endian) so cached tensors
// round-trip identically regardless of host architecture.

func putFloat32(dst []byte, v float32) {
	putUint32(dst, math.Float32bits(v))
}

func getFloat32(src []byte) float32 {
	return math.Float32frombits(getUint32(src))
}

func putInt64(dst []byte, v int64) {
	putUint64(dst, uint64(v))
}

func getInt64(src []byte) int64 {
	return int64(getUint64(src))
}

func putUint32(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

func getUint32(src []byte) uint32 {
	return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
}

func putUint64(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

func getUint64(src []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(src[i]) << (8 * i)
	}
	return v
}
