package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/semtex/internal/errors"
	"github.com/conneroisu/semtex/internal/macros"
	"github.com/conneroisu/semtex/internal/scanner"
)

// slowReplacer expands \slow to nothing after a pause, to keep a worker busy.
type slowReplacer struct{ delay time.Duration }

func (slowReplacer) Triggers() []string { return []string{`\slow`} }

func (s slowReplacer) Replace(trigger string, p *scanner.Parser) error {
	start := p.Pos()
	p.Skip(len(trigger))
	time.Sleep(s.delay)
	return p.AddReplacement(start, "")
}

func newTestPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	if opts.Registry == nil {
		opts.Registry = macros.Default()
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Millisecond
	}
	p, err := NewPipeline(opts)
	require.NoError(t, err)
	return p
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestPipelineSingleFile(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "main.stex")
	writeFile(t, root, "$\\summ{i}{1}{n} i$\n")

	result, err := newTestPipeline(t, Options{Workers: 2}).Run(context.Background(), root)
	require.NoError(t, err)

	assert.False(t, result.Failed())
	assert.Zero(t, result.Workers, "pool is not started for a single file")
	assert.Equal(t, filepath.Join(dir, "main.tex"), result.RootOutput)
	assert.Equal(t, []string{result.RootOutput}, result.Generated)
	assert.Equal(t, "$\\sum_{i=1}^{n} i$\n", readFile(t, result.RootOutput))

	require.Len(t, result.Files, 1)
	assert.Equal(t, 1, result.Files[0].Replacements)
	assert.Equal(t, int64(1), result.Metrics.FilesProcessed)
}

func TestPipelineIncludeTree(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "main.stex")
	writeFile(t, root, "\\input{chapters/one.stex}\n\\include{two}\n\\input{preamble}\n\\summ[inf]{k}\n")
	writeFile(t, filepath.Join(dir, "preamble.tex"), "\\usepackage{amsmath}\n")
	writeFile(t, filepath.Join(dir, "chapters", "one.stex"), "\\input{nested.sex}\r\n\\summ{j}\r\n")
	writeFile(t, filepath.Join(dir, "chapters", "nested.sex"), "\\summ[lim]{a}{0}{1}")
	writeFile(t, filepath.Join(dir, "two.stex"), "\\input{main.stex}\n\\summation{}{}{N}\n")

	result, err := newTestPipeline(t, Options{Workers: 3}).Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Workers)
	assert.Equal(t, int64(4), result.Metrics.FilesProcessed, "cycle back to main is not processed twice")
	assert.Equal(t, []string{
		filepath.Join(dir, "chapters", "nested.tex"),
		filepath.Join(dir, "chapters", "one.tex"),
		filepath.Join(dir, "main.tex"),
		filepath.Join(dir, "two.tex"),
	}, result.Generated)

	assert.Equal(t, "\\input{chapters/one.tex}\n\\include{two}\n\\input{preamble}\n\\sum_{k=-\\infty}^{\\infty}\n",
		readFile(t, filepath.Join(dir, "main.tex")))
	assert.Equal(t, "\\input{nested.tex}\r\n\\sum_{j}\r\n",
		readFile(t, filepath.Join(dir, "chapters", "one.tex")))
	assert.Equal(t, "\\sum\\limits_{a=0}^{1}",
		readFile(t, filepath.Join(dir, "chapters", "nested.tex")))
	assert.Equal(t, "\\input{main.tex}\n\\sum^{N}\n",
		readFile(t, filepath.Join(dir, "two.tex")))

	assert.Equal(t, 6, result.Metrics.Newlines.Unix)
	assert.Equal(t, 2, result.Metrics.Newlines.Windows)
}

func TestPipelineWaitsForBusyWorkers(t *testing.T) {
	dir := t.TempDir()
	const depth = 6

	// A chain keeps the queue empty while each link is being processed.
	for i := 0; i < depth; i++ {
		content := "\\slow x"
		if i+1 < depth {
			content += fmt.Sprintf("\\input{f%d.stex}", i+1)
		}
		writeFile(t, filepath.Join(dir, fmt.Sprintf("f%d.stex", i)), content)
	}

	reg, err := scanner.NewRegistry(append(macros.Builtin(), slowReplacer{delay: 15 * time.Millisecond})...)
	require.NoError(t, err)

	result, err := newTestPipeline(t, Options{Workers: 4, Registry: reg}).Run(context.Background(), filepath.Join(dir, "f0.stex"))
	require.NoError(t, err)

	assert.Equal(t, int64(depth), result.Metrics.FilesProcessed)
	for i := 0; i < depth; i++ {
		assert.FileExists(t, filepath.Join(dir, fmt.Sprintf("f%d.tex", i)))
	}
}

func TestPipelineCancelled(t *testing.T) {
	dir := t.TempDir()
	const depth = 8

	for i := 0; i < depth; i++ {
		content := "\\slow x"
		if i+1 < depth {
			content += fmt.Sprintf("\\input{f%d.stex}", i+1)
		}
		writeFile(t, filepath.Join(dir, fmt.Sprintf("f%d.stex", i)), content)
	}

	reg, err := scanner.NewRegistry(append(macros.Builtin(), slowReplacer{delay: 40 * time.Millisecond})...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(60*time.Millisecond, cancel)

	result, err := newTestPipeline(t, Options{Workers: 2, Registry: reg}).Run(ctx, filepath.Join(dir, "f0.stex"))
	require.Error(t, err)
	assert.True(t, result.Failed())

	var messages []string
	for _, e := range result.Errors {
		messages = append(messages, e.Error())
	}
	assert.Contains(t, strings.Join(messages, "\n"), "run cancelled: context canceled")

	assert.Less(t, result.Metrics.FilesProcessed, int64(depth), "no new files start after cancellation")
	assert.FileExists(t, filepath.Join(dir, "f0.tex"))
	assert.NoFileExists(t, filepath.Join(dir, fmt.Sprintf("f%d.tex", depth-1)))

	// Files already taken by a worker run to completion.
	for _, f := range result.Files {
		require.NoError(t, f.Error, f.Path)
		assert.FileExists(t, f.Output)
	}
}

func TestPipelineManyFiles(t *testing.T) {
	dir := t.TempDir()
	const n = 40

	var root strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&root, "\\input{part%d}\n", i)
		writeFile(t, filepath.Join(dir, fmt.Sprintf("part%d.stex", i)), fmt.Sprintf("\\summ{i}{%d}", i))
	}
	writeFile(t, filepath.Join(dir, "main.stex"), root.String())

	result, err := newTestPipeline(t, Options{Workers: 8}).Run(context.Background(), filepath.Join(dir, "main.stex"))
	require.NoError(t, err)

	assert.Equal(t, int64(n+1), result.Metrics.FilesProcessed)
	assert.Len(t, result.Generated, n+1)
	for i := 0; i < n; i++ {
		assert.Equal(t, fmt.Sprintf("\\sum_{i=%d}", i), readFile(t, filepath.Join(dir, fmt.Sprintf("part%d.tex", i))))
	}
}

func TestPipelineDryRun(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "main.stex")
	writeFile(t, root, "\\input{sub}\n\\summ{i}\n")
	writeFile(t, filepath.Join(dir, "sub.stex"), "\\summ[bogus]{i}\n")

	result, err := newTestPipeline(t, Options{DryRun: true}).Run(context.Background(), root)
	require.Error(t, err)

	assert.Empty(t, result.Generated)
	assert.NoFileExists(t, filepath.Join(dir, "main.tex"))
	assert.NoFileExists(t, filepath.Join(dir, "sub.tex"))
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), "sub.stex:1:")
	assert.Contains(t, result.Errors[0].Error(), `unknown flag "bogus"`)
}

func TestPipelineErrorInInclude(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "main.stex")
	writeFile(t, root, "ok\n\\input{bad}\n")
	writeFile(t, filepath.Join(dir, "bad.stex"), "line\n\\summ{a}{b}{c}{d}\n")

	var stderr bytes.Buffer
	p := newTestPipeline(t, Options{Printer: errors.NewPrinter(&stderr, false)})
	result, err := p.Run(context.Background(), root)
	require.Error(t, err)

	assert.True(t, result.Failed())
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, int64(1), result.Metrics.FilesFailed)
	assert.Equal(t, []string{filepath.Join(dir, "main.tex")}, result.Generated)
	assert.NoFileExists(t, filepath.Join(dir, "bad.tex"))

	line := strings.TrimSpace(stderr.String())
	assert.Equal(t, filepath.Join(dir, "bad.stex")+`:2: too many arguments for \summation`, line)
}

func TestPipelineMissingInclude(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "main.stex")
	writeFile(t, root, "\n\n\\include{nowhere.stex}\n")

	result, err := newTestPipeline(t, Options{}).Run(context.Background(), root)
	require.Error(t, err)

	var se *errors.SemtexError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, errors.ErrCodeIncludeNotFound, se.Code)
	assert.Equal(t, root, se.FilePath)
	assert.Equal(t, 3, se.Line)
	assert.Empty(t, result.Generated)
}

func TestPipelineMissingRoot(t *testing.T) {
	result, err := newTestPipeline(t, Options{}).Run(context.Background(), filepath.Join(t.TempDir(), "none.stex"))
	require.Error(t, err)

	var se *errors.SemtexError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, errors.ErrCodeFileNotFound, se.Code)
	assert.True(t, result.Failed())
}

func TestPipelineSkipsUnchangedOutput(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "main.stex")
	writeFile(t, root, "\\summ{i}")

	p := newTestPipeline(t, Options{})

	first, err := p.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, int64(0), first.Metrics.OutputsSkipped)

	second, err := p.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.Metrics.OutputsSkipped)
	assert.Equal(t, []string{filepath.Join(dir, "main.tex")}, second.Generated)
}

func TestPipelineMixedNewlines(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "main.stex")
	writeFile(t, root, "a\nb\r\nc\rd")

	result, err := newTestPipeline(t, Options{}).Run(context.Background(), root)
	require.NoError(t, err)
	assert.True(t, result.Files[0].Newlines.Mixed())
	assert.Equal(t, "a\nb\r\nc\rd", readFile(t, result.RootOutput))
}

func TestReportWriteFile(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "main.stex")
	writeFile(t, root, "\\input{sub}\n")
	writeFile(t, filepath.Join(dir, "sub.stex"), "\\summ{i}{1}{2}{3}")

	started := time.Now()
	result, _ := newTestPipeline(t, Options{}).Run(context.Background(), root)

	reportPath := filepath.Join(dir, "report.yml")
	require.NoError(t, NewReport(result, started, false).WriteFile(reportPath))

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(readFile(t, reportPath)), &decoded))

	assert.Equal(t, root, decoded["root"])
	assert.Equal(t, false, decoded["succeeded"])
	assert.Len(t, decoded["files"], 2)
	assert.Len(t, decoded["errors"], 1)

	metrics, ok := decoded["metrics"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 2, metrics["files_processed"])
	assert.Equal(t, 1, metrics["files_failed"])
	assert.EqualValues(t, 50, metrics["success_rate"])
}
