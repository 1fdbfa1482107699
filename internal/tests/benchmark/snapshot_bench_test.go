package benchmark

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/yndnr/tuamail-go/internal/storage"
	"github.com/yndnr/tuamail-go/internal/storage/memory"
	"github.com/yndnr/tuamail-go/internal/storage/snapshot"
)

var benchKey = []byte("0123456789abcdef0123456789abcdef")

// BenchmarkSnapshotEncode measures serializing exported state into an envelope.
func BenchmarkSnapshotEncode(b *testing.B) {
	for _, tc := range []struct {
		name string
		key  []byte
	}{
		{"plain", nil},
		{"encrypted", benchKey},
	} {
		b.Run(tc.name, func(b *testing.B) {
			runWithMailCounts(b, SmallMailCounts, func(b *testing.B, count int) {
				f := newFixture()
				prefill(b, f, count)
				codec := newCodec(b, tc.key)
				state := f.svc.Stores().Export()

				b.ResetTimer()
				b.ReportAllocs()
				var size int
				for i := 0; i < b.N; i++ {
					blob, err := codec.Encode(state)
					if err != nil {
						b.Fatalf("encode: %v", err)
					}
					size = len(blob)
				}
				b.ReportMetric(float64(size), "bytes")
			})
		})
	}
}

// BenchmarkSnapshotDecode measures decoding and importing a blob.
func BenchmarkSnapshotDecode(b *testing.B) {
	runWithMailCounts(b, SmallMailCounts, func(b *testing.B, count int) {
		f := newFixture()
		prefill(b, f, count)
		codec := newCodec(b, nil)
		blob, err := codec.Encode(f.svc.Stores().Export())
		if err != nil {
			b.Fatalf("encode: %v", err)
		}

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			state, _, err := codec.Decode(blob)
			if err != nil {
				b.Fatalf("decode: %v", err)
			}
			memory.New().Import(state)
		}
	})
}

// BenchmarkEnginePersist measures a full save through each stable backend.
func BenchmarkEnginePersist(b *testing.B) {
	for _, backend := range []string{storage.BackendFile, storage.BackendBadger} {
		b.Run(backend, func(b *testing.B) {
			runWithMailCounts(b, SmallMailCounts, func(b *testing.B, count int) {
				f := newFixture()
				prefill(b, f, count)

				cfg := storage.DefaultConfig(b.TempDir())
				cfg.Backend = backend
				cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
				engine, err := storage.New(cfg)
				if err != nil {
					b.Fatalf("open engine: %v", err)
				}
				defer engine.Close()

				ctx := context.Background()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := engine.Persist(ctx, f.svc.Stores()); err != nil {
						b.Fatalf("persist: %v", err)
					}
				}
				b.StopTimer()
				reportMemory(b, "mem")
			})
		})
	}
}

func newCodec(b *testing.B, key []byte) *snapshot.Codec {
	b.Helper()
	cipher, err := snapshot.NewCipher(key)
	if err != nil {
		b.Fatalf("cipher: %v", err)
	}
	return snapshot.NewCodec(snapshot.WithCipher(cipher))
}
