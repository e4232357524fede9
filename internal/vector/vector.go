/*
Package vector provides the numeric helpers shared by the embedding, search,
learning and duplicate packages: cosine similarity and a compact binary codec
for float32 vectors.
*/
package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Cosine computes the cosine similarity between two vectors.
// Vectors of different length, empty vectors and zero vectors score 0.
// The result is clamped to [-1, 1] to absorb floating point drift.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dotProduct float64
	var normA float64
	var normB float64

	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	// One square root keeps identical vectors at exactly 1.
	sim := dotProduct / math.Sqrt(normA*normB)
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// Encode serializes a vector as little-endian float32 values.
func Encode(v []float32) []byte {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

// Decode parses bytes produced by Encode.
func Decode(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid vector encoding: %d bytes is not a multiple of 4", len(b))
	}
	n := len(b) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return v, nil
}
