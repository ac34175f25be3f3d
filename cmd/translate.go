package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/srt-line-translator/internal/config"
	"github.com/MimeLyc/srt-line-translator/internal/dify"
	"github.com/MimeLyc/srt-line-translator/internal/llm"
	"github.com/MimeLyc/srt-line-translator/internal/service"
	"github.com/MimeLyc/srt-line-translator/internal/translator"
	"github.com/MimeLyc/srt-line-translator/pkg/file"
	"github.com/MimeLyc/srt-line-translator/pkg/log"
)

func runTranslate(cmd *cobra.Command, flags *rootFlags) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return service.WrapError(err, service.ErrConfig, "failed to load configuration")
	}
	closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	if err := cfg.Validate(); err != nil {
		return service.WrapError(err, service.ErrConfig, "invalid configuration")
	}

	dest := flags.dest
	if dest == "" {
		dest = file.OutputPath(flags.src, cfg.TargetLanguageCode())
	}

	backend, err := newTranslator(cfg)
	if err != nil {
		return service.WrapError(err, service.ErrServiceCall, "failed to create translation client")
	}
	invoker := translator.NewInvoker(backend,
		translator.WithMaxRetries(cfg.Translate.MaxRetries),
		translator.WithRetryDelay(cfg.Translate.RetryDelay.Std()),
		translator.WithSkipMarkers(cfg.Translate.SkipMarkers))

	tag, _ := cfg.TargetTag()
	progress := newProgressReporter(cmd.ErrOrStderr(), filepath.Base(flags.src))
	pipeline, err := service.NewPipeline(service.Options{
		SourcePath:     flags.src,
		OutputPath:     dest,
		TargetLanguage: cfg.TargetLanguageName(),
		TargetTag:      tag,
		Backend:        cfg.CheckpointBackend(),
		Invoker:        invoker,
		Progress:       progress.Update,
	})
	if err != nil {
		return err
	}

	log.Info("Translating %s to %s (%s) -> %s", flags.src, cfg.TargetLanguageName(), cfg.Service.Kind, dest)

	var result *service.Result
	err = service.ScheduleUntilDone(cmd.Context(), cfg.Translate.ResumeCron, func(ctx context.Context) error {
		res, err := pipeline.Run(ctx)
		result = res
		return err
	})
	progress.Finish()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(result))
	return nil
}

func newTranslator(cfg *config.Config) (translator.Translator, error) {
	switch cfg.Service.Kind {
	case config.ServiceDify:
		client, err := dify.NewClient(dify.Config{
			APIKey:  cfg.Service.APIKey,
			APIURL:  cfg.Service.APIURL,
			Timeout: cfg.Service.CallTimeout(),
		})
		if err != nil {
			return nil, err
		}
		log.Debug("Dify requests are sent as user %s", client.User())
		return translator.NewCompletionTranslator(client), nil
	default:
		client, err := llm.NewClient(llm.Options{
			APIKey:      cfg.Service.APIKey,
			BaseURL:     cfg.Service.APIURL,
			Model:       cfg.Service.Model,
			MaxTokens:   cfg.Service.MaxTokens,
			Temperature: cfg.Service.Temperature,
			Timeout:     cfg.Service.CallTimeout(),
			AppName:     appName,
		})
		if err != nil {
			return nil, err
		}
		return translator.NewChatTranslator(client), nil
	}
}

// setupLogging installs the global logger; the returned func closes the log file
func setupLogging(cfg *config.Config) (func(), error) {
	level := log.ParseLevel(cfg.Log.Level)
	if cfg.Log.File == "" {
		log.InitLogger(level)
		return func() {}, nil
	}

	fileLogger, err := log.NewFileLogger(cfg.Log.File, level, os.Stdout)
	if err != nil {
		return nil, service.WrapError(err, service.ErrConfig, "failed to open log file")
	}
	log.SetLogger(fileLogger.Logger)
	return func() {
		_ = fileLogger.Close()
	}, nil
}

func renderSummary(res *service.Result) string {
	rows := [][]string{
		{"Output", res.OutputPath},
		{"Entries", fmt.Sprint(res.Entries)},
		{"Resumed", fmt.Sprint(res.Resumed)},
		{"Translated", fmt.Sprint(res.Translated)},
		{"Passed through", fmt.Sprint(res.PassedThrough)},
		{"Duration", res.Duration.Round(time.Millisecond).String()},
	}
	return renderTable([]string{"Result", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}

