package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/MimeLyc/srt-line-translator/internal/checkpoint"
	"github.com/MimeLyc/srt-line-translator/internal/subtitle"
	"github.com/MimeLyc/srt-line-translator/internal/translator"
	"github.com/MimeLyc/srt-line-translator/pkg/log"
)

// Invoker translates one entry, retrying as it sees fit
type Invoker interface {
	Invoke(ctx context.Context, req translator.Request) (translator.Result, error)
}

// Options configures a Pipeline
type Options struct {
	SourcePath string
	OutputPath string
	// TargetLanguage is the human readable name sent to the service
	TargetLanguage string
	TargetTag      language.Tag
	Backend        checkpoint.Backend
	Invoker        Invoker

	// Optional collaborators, defaults are the SRT file reader and writer
	// and checkpoint.Open.
	Reader  func(path string) (*subtitle.File, error)
	Writer  subtitle.Writer
	OpenLog func(backend checkpoint.Backend, output string) (checkpoint.Log, error)

	// Progress is called after every confirmed entry, including resumed ones
	Progress func(done, total int)
	// OnTransition is called on every state change
	OnTransition func(from, to State)
}

// Result summarizes a finished run
type Result struct {
	Entries       int
	Resumed       int
	Translated    int
	PassedThrough int
	OutputPath    string
	Duration      time.Duration
}

// Pipeline translates one subtitle file entry by entry, recording each
// confirmed entry in a checkpoint log so an interrupted run can resume.
type Pipeline struct {
	opts Options
}

func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.SourcePath == "" || opts.OutputPath == "" {
		return nil, NewError(ErrValidation, "source and output paths are required")
	}
	if opts.Invoker == nil {
		return nil, NewError(ErrValidation, "invoker is required")
	}
	if opts.Reader == nil {
		opts.Reader = func(path string) (*subtitle.File, error) {
			return subtitle.NewReader(path).Read()
		}
	}
	if opts.Writer == nil {
		opts.Writer = subtitle.NewWriter()
	}
	if opts.OpenLog == nil {
		opts.OpenLog = checkpoint.Open
	}
	return &Pipeline{opts: opts}, nil
}

// Run executes the whole pipeline. Entries are translated strictly in source
// order, one call at a time; each is durably checkpointed before the next
// begins. The checkpoint is removed only after the output file is written.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	st := &RunState{State: StateInit}
	result := &Result{OutputPath: p.opts.OutputPath}

	abort := func(err *PipelineError) (*Result, error) {
		p.transition(st, StateAborted)
		result.Duration = time.Since(start)
		return result, err
	}

	// INIT
	source, err := p.opts.Reader(p.opts.SourcePath)
	if err != nil {
		return abort(WrapError(err, ErrSourceParse, "failed to read source subtitles").
			WithContext("path", p.opts.SourcePath))
	}
	// entries are consumed in index order whatever the file layout
	lines := append([]subtitle.Line(nil), source.Lines...)
	subtitle.SortByIndex(lines)
	st.Source = lines
	result.Entries = len(source.Lines)
	sourceLang := languageName(source.Language)
	log.Info("Loaded %d entries from %s (language: %s)", len(source.Lines), p.opts.SourcePath, source.Language)

	cpLog, err := p.opts.OpenLog(p.opts.Backend, p.opts.OutputPath)
	if err != nil {
		return abort(WrapError(err, ErrCheckpointWrite, "failed to open checkpoint").
			WithContext("output", p.opts.OutputPath))
	}
	defer func() {
		if err := cpLog.Close(); err != nil {
			log.Warn("Failed to close checkpoint %s: %v", cpLog.Path(), err)
		}
	}()

	// RESUMING
	p.transition(st, StateResuming)
	done, resumeErr := p.resume(ctx, cpLog)
	if resumeErr != nil {
		return abort(resumeErr)
	}
	if len(done) > len(st.Source) {
		return abort(NewError(ErrCheckpointRead, "checkpoint holds more entries than the source").
			WithContext("checkpoint", cpLog.Path()).
			WithContext("checkpoint_entries", len(done)).
			WithContext("source_entries", len(st.Source)))
	}
	st.Output = make([]subtitle.Line, 0, len(st.Source))
	st.Output = append(st.Output, done...)
	st.ResumeIndex = len(done)
	result.Resumed = st.ResumeIndex
	if st.ResumeIndex > 0 {
		log.Info("Resuming from checkpoint %s: %d/%d entries already translated", cpLog.Path(), st.ResumeIndex, len(st.Source))
		p.progress(len(st.Output), len(st.Source))
	}

	for i := st.ResumeIndex; i < len(st.Source); i++ {
		st.Index = i
		line := st.Source[i]

		// TRANSLATING
		p.transition(st, StateTranslating)
		if err := ctx.Err(); err != nil {
			return abort(WrapError(err, ErrFatalTranslation, "run cancelled").
				WithContext("index", line.Index))
		}
		above, below := ContextWindow(st.Source, i)
		res, err := p.opts.Invoker.Invoke(ctx, translator.Request{
			Text:       line.Text,
			Above:      above,
			Below:      below,
			SourceLang: sourceLang,
			TargetLang: p.opts.TargetLanguage,
		})
		if err != nil {
			cause := err
			var exhausted *translator.ExhaustedError
			if errors.As(err, &exhausted) {
				cause = WrapError(err, ErrServiceCall, "translation service call failed").
					WithContext("attempts", exhausted.Attempts)
			}
			return abort(WrapError(cause, ErrFatalTranslation, fmt.Sprintf("entry %d could not be translated", line.Index)).
				WithContext("index", line.Index).
				WithContext("confirmed", len(st.Output)))
		}

		// CHECKPOINTING
		p.transition(st, StateCheckpointing)
		translated := line.WithText(res.Text)
		if err := cpLog.Append(ctx, translated); err != nil {
			return abort(WrapError(err, ErrCheckpointWrite, "failed to record entry in checkpoint").
				WithContext("index", line.Index).
				WithContext("checkpoint", cpLog.Path()))
		}
		st.Output = append(st.Output, translated)
		if res.PassedThrough {
			result.PassedThrough++
		} else {
			result.Translated++
		}
		log.Debug("Entry %d translated (%d/%d, attempts: %d)", line.Index, len(st.Output), len(st.Source), res.Attempts)
		p.progress(len(st.Output), len(st.Source))
	}

	// DONE
	p.transition(st, StateDone)
	subtitle.SortByIndex(st.Output)

	// FINALIZING
	p.transition(st, StateFinalizing)
	out := &subtitle.File{
		Lines:    st.Output,
		Language: p.opts.TargetTag,
		Format:   "SRT",
		Path:     p.opts.OutputPath,
	}
	if err := p.opts.Writer.Write(p.opts.OutputPath, out); err != nil {
		return abort(WrapError(err, ErrOutputWrite, "failed to write translated subtitles").
			WithContext("output", p.opts.OutputPath).
			WithContext("checkpoint", cpLog.Path()))
	}

	// CLEANUP
	p.transition(st, StateCleanup)
	if err := cpLog.Clear(ctx); err != nil {
		warn := WrapError(err, ErrCleanup, "failed to remove checkpoint").
			WithContext("checkpoint", cpLog.Path())
		log.Warn("%v", warn)
	}

	p.transition(st, StateTerminated)
	result.Duration = time.Since(start)
	log.Info("Wrote %d entries to %s in %s (resumed: %d, translated: %d, passed through: %d)",
		len(st.Output), p.opts.OutputPath, result.Duration.Round(time.Millisecond),
		result.Resumed, result.Translated, result.PassedThrough)
	return result, nil
}

// resume loads the confirmed entries. An unreadable log is discarded and the
// run starts over.
func (p *Pipeline) resume(ctx context.Context, cpLog checkpoint.Log) ([]subtitle.Line, *PipelineError) {
	done, err := cpLog.Load(ctx)
	if err == nil {
		return done, nil
	}

	log.Warn("%v", WrapError(err, ErrCheckpointRead, "checkpoint unreadable, starting over").
		WithContext("checkpoint", cpLog.Path()))
	if clearErr := cpLog.Clear(ctx); clearErr != nil {
		return nil, WrapError(errors.Join(err, clearErr), ErrCheckpointRead, "failed to discard unreadable checkpoint").
			WithContext("checkpoint", cpLog.Path())
	}
	return nil, nil
}

func (p *Pipeline) transition(st *RunState, to State) {
	from := st.State
	st.State = to
	if p.opts.OnTransition != nil {
		p.opts.OnTransition(from, to)
	}
}

func (p *Pipeline) progress(done, total int) {
	if p.opts.Progress != nil {
		p.opts.Progress(done, total)
	}
}

// languageName gives the English name of tag, or "" when it is undetermined
func languageName(tag language.Tag) string {
	if tag == language.Und {
		return ""
	}
	return display.English.Tags().Name(tag)
}
