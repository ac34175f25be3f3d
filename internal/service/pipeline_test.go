package service

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/srt-line-translator/internal/checkpoint"
	"github.com/MimeLyc/srt-line-translator/internal/subtitle"
	"github.com/MimeLyc/srt-line-translator/internal/translator"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:02,500
Hello there.

2
00:00:03,000 --> 00:00:04,000
[MUSIC]

3
00:00:05,000 --> 00:00:06,000
How are you?
I'm fine.

4
00:00:07,000 --> 00:00:08,000
Good night.

5
00:01:00,000 --> 00:01:02,000
See you.
`

var backends = []checkpoint.Backend{checkpoint.BackendFile, checkpoint.BackendSQLite}

// recordingTranslator prefixes every text with "T:" and records each request.
// Requests whose text is listed in fail return an error.
type recordingTranslator struct {
	mu       sync.Mutex
	requests []translator.Request
	fail     map[string]bool
}

func (r *recordingTranslator) Translate(_ context.Context, req translator.Request) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if r.fail[req.Text] {
		return "", errors.New("503 service unavailable")
	}
	return "T:" + req.Text, nil
}

func (r *recordingTranslator) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func (r *recordingTranslator) callsFor(text string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, req := range r.requests {
		if req.Text == text {
			n++
		}
	}
	return n
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) Write(path string, f *subtitle.File) error {
	args := m.Called(path, f)
	return args.Error(0)
}

func noSleep(context.Context, time.Duration) error { return nil }

func writeSource(t *testing.T, content string) (src, out string) {
	t.Helper()
	dir := t.TempDir()
	src = filepath.Join(dir, "movie.srt")
	require.NoError(t, os.WriteFile(src, []byte(content), 0o644))
	return src, filepath.Join(dir, "movie.zh.srt")
}

func sourceLines(t *testing.T) []subtitle.Line {
	t.Helper()
	f, err := subtitle.ReadSRTBytes([]byte(sampleSRT), "sample.srt")
	require.NoError(t, err)
	return f.Lines
}

// expectedOutput is the file an uninterrupted run produces
func expectedOutput(t *testing.T) string {
	t.Helper()
	var sb strings.Builder
	for _, line := range sourceLines(t) {
		sb.WriteString(subtitle.FormatBlock(line.WithText("T:" + line.Text)))
	}
	return sb.String()
}

func newTestPipeline(t *testing.T, src, out string, backend checkpoint.Backend, tr translator.Translator, retries int, mutate ...func(*Options)) *Pipeline {
	t.Helper()
	opts := Options{
		SourcePath:     src,
		OutputPath:     out,
		TargetLanguage: "Chinese",
		Backend:        backend,
		Invoker: translator.NewInvoker(tr,
			translator.WithMaxRetries(retries),
			translator.WithSleeper(noSleep),
			translator.WithSkipMarkers(false)),
	}
	for _, m := range mutate {
		m(&opts)
	}
	p, err := NewPipeline(opts)
	require.NoError(t, err)
	return p
}

func loadCheckpoint(t *testing.T, backend checkpoint.Backend, out string) []subtitle.Line {
	t.Helper()
	cpLog, err := checkpoint.Open(backend, out)
	require.NoError(t, err)
	defer cpLog.Close()
	lines, err := cpLog.Load(context.Background())
	require.NoError(t, err)
	return lines
}

func assertNoCheckpoint(t *testing.T, backend checkpoint.Backend, out string) {
	t.Helper()
	path := checkpoint.PathFor(out, backend)
	for _, p := range []string{path, path + ".lock", path + "-wal", path + "-shm"} {
		_, err := os.Stat(p)
		assert.ErrorIs(t, err, fs.ErrNotExist, p)
	}
}

func TestPipeline_TranslatesWithNeighborContext(t *testing.T) {
	t.Parallel()

	src, out := writeSource(t, `1
00:00:01,000 --> 00:00:02,000
A

2
00:00:02,000 --> 00:00:03,000
B

3
00:00:03,000 --> 00:00:04,000
C
`)
	tr := &recordingTranslator{}
	var transitions []string
	p := newTestPipeline(t, src, out, checkpoint.BackendFile, tr, 3, func(o *Options) {
		o.OnTransition = func(from, to State) { transitions = append(transitions, to.String()) }
	})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Entries)
	assert.Equal(t, 3, res.Translated)
	assert.Zero(t, res.Resumed)
	assert.Equal(t, out, res.OutputPath)

	require.Len(t, tr.requests, 3)
	assert.Equal(t, translator.Request{Text: "A", Above: "", Below: "B", SourceLang: tr.requests[0].SourceLang, TargetLang: "Chinese"}, tr.requests[0])
	assert.Equal(t, "A", tr.requests[1].Above)
	assert.Equal(t, "C", tr.requests[1].Below)
	assert.Equal(t, "B", tr.requests[2].Above)
	assert.Equal(t, "", tr.requests[2].Below)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,000\nT:A\n\n"+
		"2\n00:00:02,000 --> 00:00:03,000\nT:B\n\n"+
		"3\n00:00:03,000 --> 00:00:04,000\nT:C\n\n", string(data))
	assertNoCheckpoint(t, checkpoint.BackendFile, out)

	assert.Equal(t, []string{
		"RESUMING",
		"TRANSLATING", "CHECKPOINTING",
		"TRANSLATING", "CHECKPOINTING",
		"TRANSLATING", "CHECKPOINTING",
		"DONE", "FINALIZING", "CLEANUP", "TERMINATED",
	}, transitions)
}

func TestPipeline_SourceOutOfOrderUsesEntryOrder(t *testing.T) {
	t.Parallel()

	for _, backend := range backends {
		src, out := writeSource(t, `2
00:00:02,000 --> 00:00:03,000
B

1
00:00:01,000 --> 00:00:02,000
A

3
00:00:03,000 --> 00:00:04,000
C
`)
		// first run dies on C so the checkpoint order can be inspected
		broken := &recordingTranslator{fail: map[string]bool{"C": true}}
		_, err := newTestPipeline(t, src, out, backend, broken, 0).Run(context.Background())
		require.Error(t, err)

		require.Len(t, broken.requests, 3)
		got := make([][3]string, 0, len(broken.requests))
		for _, req := range broken.requests {
			got = append(got, [3]string{req.Text, req.Above, req.Below})
		}
		assert.Equal(t, [][3]string{
			{"A", "", "B"},
			{"B", "A", "C"},
			{"C", "B", ""},
		}, got, "backend %s", backend)

		saved := loadCheckpoint(t, backend, out)
		require.Len(t, saved, 2)
		assert.Equal(t, []int{1, 2}, []int{saved[0].Index, saved[1].Index})
		assert.Equal(t, "T:A", saved[0].Text)

		healthy := &recordingTranslator{}
		res, err := newTestPipeline(t, src, out, backend, healthy, 0).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, res.Resumed)
		require.Len(t, healthy.requests, 1)
		assert.Equal(t, translator.Request{Text: "C", Above: "B", Below: "", SourceLang: healthy.requests[0].SourceLang, TargetLang: "Chinese"}, healthy.requests[0])

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,000\nT:A\n\n"+
			"2\n00:00:02,000 --> 00:00:03,000\nT:B\n\n"+
			"3\n00:00:03,000 --> 00:00:04,000\nT:C\n\n", string(data))
		assertNoCheckpoint(t, backend, out)
	}
}

func TestPipeline_ResumeMatchesUninterruptedRun(t *testing.T) {
	t.Parallel()

	source := sourceLines(t)
	want := expectedOutput(t)

	for _, backend := range backends {
		for k := 0; k < len(source); k++ {
			src, out := writeSource(t, sampleSRT)

			// first run dies on entry k
			broken := &recordingTranslator{fail: map[string]bool{source[k].Text: true}}
			_, err := newTestPipeline(t, src, out, backend, broken, 0).Run(context.Background())
			require.Error(t, err, "backend %s k=%d", backend, k)
			assert.True(t, IsErrorType(err, ErrFatalTranslation))

			saved := loadCheckpoint(t, backend, out)
			require.Len(t, saved, k, "backend %s k=%d", backend, k)
			for i, line := range saved {
				assert.Equal(t, source[i].WithText("T:"+source[i].Text), line)
			}
			_, statErr := os.Stat(out)
			assert.ErrorIs(t, statErr, fs.ErrNotExist, "no output before the run completes")

			// second run resumes
			healthy := &recordingTranslator{}
			res, err := newTestPipeline(t, src, out, backend, healthy, 0).Run(context.Background())
			require.NoError(t, err, "backend %s k=%d", backend, k)
			assert.Equal(t, k, res.Resumed)
			assert.Equal(t, len(source)-k, healthy.calls(), "only untranslated entries are sent")

			for j, req := range healthy.requests {
				i := k + j
				above, below := ContextWindow(source, i)
				assert.Equal(t, source[i].Text, req.Text)
				assert.Equal(t, above, req.Above, "context uses original text after resume")
				assert.Equal(t, below, req.Below)
			}

			data, err := os.ReadFile(out)
			require.NoError(t, err)
			assert.Equal(t, want, string(data), "backend %s k=%d", backend, k)
			assertNoCheckpoint(t, backend, out)
		}
	}
}

func TestPipeline_FatalAfterRetriesKeepsConfirmedEntries(t *testing.T) {
	t.Parallel()

	source := sourceLines(t)
	for _, backend := range backends {
		src, out := writeSource(t, sampleSRT)
		failing := source[3].Text
		tr := &recordingTranslator{fail: map[string]bool{failing: true}}

		const retries = 2
		_, err := newTestPipeline(t, src, out, backend, tr, retries).Run(context.Background())
		require.Error(t, err)
		assert.True(t, IsErrorType(err, ErrFatalTranslation))

		var exhausted *translator.ExhaustedError
		require.True(t, errors.As(err, &exhausted))
		assert.Equal(t, retries+1, exhausted.Attempts)
		assert.Equal(t, retries+1, tr.callsFor(failing))
		assert.Equal(t, 3+retries+1, tr.calls())

		var pErr *PipelineError
		require.True(t, errors.As(err, &pErr))
		assert.Equal(t, source[3].Index, pErr.Context["index"])

		saved := loadCheckpoint(t, backend, out)
		require.Len(t, saved, 3)
		assert.Equal(t, []int{1, 2, 3}, []int{saved[0].Index, saved[1].Index, saved[2].Index})
		_, statErr := os.Stat(out)
		assert.ErrorIs(t, statErr, fs.ErrNotExist)
	}
}

func TestPipeline_OutputWriteFailureKeepsCheckpoint(t *testing.T) {
	t.Parallel()

	for _, backend := range backends {
		src, out := writeSource(t, sampleSRT)
		writer := &mockWriter{}
		writer.On("Write", out, mock.Anything).Return(errors.New("disk full")).Once()

		_, err := newTestPipeline(t, src, out, backend, &recordingTranslator{}, 0, func(o *Options) {
			o.Writer = writer
		}).Run(context.Background())
		require.Error(t, err)
		assert.True(t, IsErrorType(err, ErrOutputWrite))
		writer.AssertExpectations(t)

		assert.Len(t, loadCheckpoint(t, backend, out), len(sourceLines(t)))

		// nothing left to translate, the rerun only writes the file
		rerun := &recordingTranslator{}
		res, err := newTestPipeline(t, src, out, backend, rerun, 0).Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, rerun.calls())
		assert.Equal(t, len(sourceLines(t)), res.Resumed)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, expectedOutput(t), string(data))
		assertNoCheckpoint(t, backend, out)
	}
}

func TestPipeline_TornCheckpointTail(t *testing.T) {
	t.Parallel()

	source := sourceLines(t)
	src, out := writeSource(t, sampleSRT)

	var sb strings.Builder
	for _, line := range source[:2] {
		sb.WriteString(subtitle.FormatBlock(line.WithText("T:" + line.Text)))
	}
	sb.WriteString("3\n00:00:05,000 --> 00:0")
	require.NoError(t, os.WriteFile(checkpoint.PathFor(out, checkpoint.BackendFile), []byte(sb.String()), 0o644))

	tr := &recordingTranslator{}
	res, err := newTestPipeline(t, src, out, checkpoint.BackendFile, tr, 0).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Resumed)
	assert.Equal(t, len(source)-2, tr.calls())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, expectedOutput(t), string(data))
}

func TestPipeline_CheckpointLongerThanSource(t *testing.T) {
	t.Parallel()

	src, out := writeSource(t, `1
00:00:01,000 --> 00:00:02,000
Only one
`)
	cpPath := checkpoint.PathFor(out, checkpoint.BackendFile)
	content := subtitle.FormatBlock(subtitle.Line{Index: 1, EndTime: time.Second, Text: "x"}) +
		subtitle.FormatBlock(subtitle.Line{Index: 2, StartTime: time.Second, EndTime: 2 * time.Second, Text: "y"})
	require.NoError(t, os.WriteFile(cpPath, []byte(content), 0o644))

	tr := &recordingTranslator{}
	_, err := newTestPipeline(t, src, out, checkpoint.BackendFile, tr, 0).Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrCheckpointRead))
	assert.Zero(t, tr.calls())

	kept, readErr := os.ReadFile(cpPath)
	require.NoError(t, readErr)
	assert.Equal(t, content, string(kept), "checkpoint must not be touched")
}

func TestPipeline_SourceParseError(t *testing.T) {
	t.Parallel()

	src, out := writeSource(t, "1\n00:00:01,000 --> 00:00:02,000\nok\n\nx\n00:00:03,000 --> 00:00:04,000\nbad\n")
	var states []State
	tr := &recordingTranslator{}
	_, err := newTestPipeline(t, src, out, checkpoint.BackendFile, tr, 0, func(o *Options) {
		o.OnTransition = func(_, to State) { states = append(states, to) }
	}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrSourceParse))

	var parseErr *subtitle.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 5, parseErr.Line)
	assert.Zero(t, tr.calls())
	assert.Equal(t, []State{StateAborted}, states)
	assertNoCheckpoint(t, checkpoint.BackendFile, out)
}

func TestPipeline_PassThroughAndTimingPreserved(t *testing.T) {
	t.Parallel()

	src, out := writeSource(t, sampleSRT)
	tr := &recordingTranslator{}
	p, err := NewPipeline(Options{
		SourcePath:     src,
		OutputPath:     out,
		TargetLanguage: "Chinese",
		Invoker:        translator.NewInvoker(tr, translator.WithSleeper(noSleep)),
	})
	require.NoError(t, err)

	var progress [][2]int
	p.opts.Progress = func(done, total int) { progress = append(progress, [2]int{done, total}) }

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.PassedThrough)
	assert.Equal(t, 4, res.Translated)
	assert.Equal(t, 4, tr.calls(), "marker-only entries are not sent")
	assert.Len(t, progress, 5)
	assert.Equal(t, [2]int{5, 5}, progress[4])

	written, err := subtitle.NewReader(out).Read()
	require.NoError(t, err)
	source := sourceLines(t)
	require.Len(t, written.Lines, len(source))
	for i, line := range written.Lines {
		assert.Equal(t, source[i].Index, line.Index)
		assert.Equal(t, source[i].StartTime, line.StartTime)
		assert.Equal(t, source[i].EndTime, line.EndTime)
	}
	assert.Equal(t, "[MUSIC]", written.Lines[1].Text)
	assert.Equal(t, "T:How are you?\nI'm fine.", written.Lines[2].Text)
}

func TestPipeline_CancelledRunRecordsNothingInFlight(t *testing.T) {
	t.Parallel()

	src, out := writeSource(t, sampleSRT)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	tr := translator.TranslatorFunc(func(ctx context.Context, req translator.Request) (string, error) {
		calls++
		if calls == 2 {
			cancel()
			return "", ctx.Err()
		}
		return "T:" + req.Text, nil
	})

	_, err := newTestPipeline(t, src, out, checkpoint.BackendFile, tr, 3).Run(ctx)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrFatalTranslation))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls, "a cancelled call is not retried")
	assert.Len(t, loadCheckpoint(t, checkpoint.BackendFile, out), 1)
}

func TestPipeline_ConcurrentRunIsRejected(t *testing.T) {
	t.Parallel()

	src, out := writeSource(t, sampleSRT)
	held, err := checkpoint.Open(checkpoint.BackendFile, out)
	require.NoError(t, err)
	defer held.Close()

	tr := &recordingTranslator{}
	_, err = newTestPipeline(t, src, out, checkpoint.BackendFile, tr, 0).Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrCheckpointWrite))
	assert.ErrorIs(t, err, checkpoint.ErrLocked)
	assert.Zero(t, tr.calls())
}

func TestPipeline_EmptySource(t *testing.T) {
	t.Parallel()

	src, out := writeSource(t, "")
	tr := &recordingTranslator{}
	res, err := newTestPipeline(t, src, out, checkpoint.BackendFile, tr, 0).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Entries)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestNewPipeline_Validation(t *testing.T) {
	t.Parallel()

	inv := translator.NewInvoker(&recordingTranslator{})
	_, err := NewPipeline(Options{OutputPath: "out.srt", Invoker: inv})
	assert.True(t, IsErrorType(err, ErrValidation))

	_, err = NewPipeline(Options{SourcePath: "in.srt", OutputPath: "out.srt"})
	assert.True(t, IsErrorType(err, ErrValidation))
}

func TestContextWindow(t *testing.T) {
	t.Parallel()

	lines := []subtitle.Line{{Index: 1, Text: "A"}, {Index: 2, Text: "B"}, {Index: 3, Text: "C"}}
	tests := []struct {
		i            int
		above, below string
	}{
		{i: 0, above: "", below: "B"},
		{i: 1, above: "A", below: "C"},
		{i: 2, above: "B", below: ""},
		{i: 3, above: "", below: ""},
		{i: -1, above: "", below: ""},
	}
	for _, tt := range tests {
		above, below := ContextWindow(lines, tt.i)
		assert.Equal(t, tt.above, above, "i=%d", tt.i)
		assert.Equal(t, tt.below, below, "i=%d", tt.i)
	}

	above, below := ContextWindow(lines[:1], 0)
	assert.Empty(t, above)
	assert.Empty(t, below)
}
