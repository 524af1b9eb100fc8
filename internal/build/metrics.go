package build

import (
	"sync"
	"time"

	"github.com/conneroisu/semtex/internal/scanner"
)

// FileResult describes the processing of one source file.
type FileResult struct {
	Path         string
	Output       string
	Replacements int
	Newlines     scanner.NewlineStats
	Duration     time.Duration
	// Skipped is set when the output already held identical content.
	Skipped bool
	Error   error
}

// BuildMetrics tracks per-run processing totals
type BuildMetrics struct {
	filesProcessed int64
	filesFailed    int64
	replacements   int64
	outputsSkipped int64
	newlines       scanner.NewlineStats
	totalDuration  time.Duration
	mutex          sync.RWMutex
}

// MetricsSnapshot is a point-in-time copy of BuildMetrics.
type MetricsSnapshot struct {
	FilesProcessed  int64                `yaml:"files_processed"`
	FilesFailed     int64                `yaml:"files_failed"`
	Replacements    int64                `yaml:"replacements"`
	OutputsSkipped  int64                `yaml:"outputs_skipped"`
	Newlines        scanner.NewlineStats `yaml:"newlines"`
	TotalDuration   time.Duration        `yaml:"total_duration"`
	AverageDuration time.Duration        `yaml:"average_duration"`
	SuccessRate     float64              `yaml:"success_rate"`
}

// NewBuildMetrics creates a new metrics tracker
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{}
}

// RecordFile adds one file result to the totals
func (bm *BuildMetrics) RecordFile(result FileResult) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.filesProcessed++
	bm.totalDuration += result.Duration
	bm.newlines.Add(result.Newlines)

	if result.Error != nil {
		bm.filesFailed++
		return
	}

	bm.replacements += int64(result.Replacements)
	if result.Skipped {
		bm.outputsSkipped++
	}
}

// GetSnapshot returns a snapshot of current metrics
func (bm *BuildMetrics) GetSnapshot() MetricsSnapshot {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()

	snap := MetricsSnapshot{
		FilesProcessed: bm.filesProcessed,
		FilesFailed:    bm.filesFailed,
		Replacements:   bm.replacements,
		OutputsSkipped: bm.outputsSkipped,
		Newlines:       bm.newlines,
		TotalDuration:  bm.totalDuration,
	}
	if bm.filesProcessed > 0 {
		snap.AverageDuration = bm.totalDuration / time.Duration(bm.filesProcessed)
	}
	snap.SuccessRate = bm.successRate()
	return snap
}

// successRate is the share of files processed without error as a
// percentage. The caller holds the lock.
func (bm *BuildMetrics) successRate() float64 {
	if bm.filesProcessed == 0 {
		return 0.0
	}
	return float64(bm.filesProcessed-bm.filesFailed) / float64(bm.filesProcessed) * 100.0
}
