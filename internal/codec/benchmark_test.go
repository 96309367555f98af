package codec

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
)

// ============================================================================
// Codec Benchmarks
// ============================================================================

func benchCSV(rows int) []byte {
	var b strings.Builder
	b.WriteString("id,email,name,plan\n")
	for i := range rows {
		n := strconv.Itoa(i)
		b.WriteString(n + ",user" + n + "@example.com,User " + n + ",pro\n")
	}
	return []byte(b.String())
}

// BenchmarkDecode measures decoding through the BOM and UTF-8 readers.
func BenchmarkDecode(b *testing.B) {
	data := benchCSV(10000)

	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(bytes.NewReader(data), true); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkEncode measures writing a decoded table back out.
func BenchmarkEncode(b *testing.B) {
	t, err := DecodeBytes(benchCSV(10000), true)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := EncodeTable(t); err != nil {
			b.Fatal(err)
		}
	}
}
