// Package rag provides a lightweight retrieval layer for business knowledge.
// Embeddings are a placeholder scheme: tokens are hashed into fixed frequency
// buckets and compared by cosine similarity. Good enough for small per-business
// knowledge bases, not a substitute for real vector search.
package rag

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Dims is the number of hash buckets in a pseudo-embedding vector.
const Dims = 256

// Vector is a float32 embedding vector.
type Vector = []float32

// Embed maps text to a normalized token-frequency vector. Tokens shorter than
// two runes carry no signal and are skipped.
func Embed(text string) Vector {
	vec := make(Vector, Dims)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%Dims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := 1 / math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
	return vec
}

// Cosine computes cosine similarity between two vectors.
func Cosine(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(stripAccents(text)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "ì", "i", "î", "i", "ï", "i",
	"ó", "o", "ò", "o", "ô", "o", "õ", "o", "ö", "o",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"ç", "c", "ñ", "n",
)

func stripAccents(s string) string {
	return accentReplacer.Replace(strings.ToLower(s))
}
