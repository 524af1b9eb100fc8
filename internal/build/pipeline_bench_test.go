package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/conneroisu/semtex/internal/macros"
)

// benchTree writes a root including n chapters, each with a few sums.
func benchTree(b *testing.B, n int) string {
	b.Helper()
	dir := b.TempDir()

	var root strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&root, "\\input{ch%d.stex}\n", i)
		chapter := strings.Repeat("text $\\summ[lim]{k}{1}{n} a_k$ and $\\summ[inf]{j}$\n", 50)
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("ch%d.stex", i)), []byte(chapter), 0o644); err != nil {
			b.Fatal(err)
		}
	}

	path := filepath.Join(dir, "main.stex")
	if err := os.WriteFile(path, []byte(root.String()), 0o644); err != nil {
		b.Fatal(err)
	}
	return path
}

func benchmarkPipeline(b *testing.B, files, workers int) {
	root := benchTree(b, files)
	p, err := NewPipeline(Options{
		Workers:      workers,
		PollInterval: time.Millisecond,
		Registry:     macros.Default(),
	})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Run(context.Background(), root); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPipeline_10Files_2Workers(b *testing.B)  { benchmarkPipeline(b, 10, 2) }
func BenchmarkPipeline_10Files_8Workers(b *testing.B)  { benchmarkPipeline(b, 10, 8) }
func BenchmarkPipeline_100Files_8Workers(b *testing.B) { benchmarkPipeline(b, 100, 8) }

// BenchmarkBuildMetrics_RecordFile benchmarks result recording
func BenchmarkBuildMetrics_RecordFile(b *testing.B) {
	metrics := NewBuildMetrics()
	result := FileResult{
		Path:         "doc.stex",
		Output:       "doc.tex",
		Replacements: 12,
		Duration:     time.Millisecond,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		metrics.RecordFile(result)
	}
}

// BenchmarkBuildMetrics_ConcurrentRecord benchmarks recording from many workers
func BenchmarkBuildMetrics_ConcurrentRecord(b *testing.B) {
	metrics := NewBuildMetrics()
	result := FileResult{Path: "doc.stex", Replacements: 3, Duration: time.Millisecond}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			metrics.RecordFile(result)
		}
	})
}
