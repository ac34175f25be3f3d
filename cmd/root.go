package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/srt-line-translator/internal/config"
)

const appName = "srt-line-translator"

type rootFlags struct {
	src               string
	dest              string
	lang              string
	apiURL            string
	apiKey            string
	service           string
	model             string
	maxRetries        int
	retryDelay        time.Duration
	checkpointBackend string
	resumeCron        string
	printOnly         bool
	configPath        string
	logLevel          string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Translate SRT subtitles line by line with resumable progress",
		Long: `Translates every entry of an SRT file through a remote completion service,
sending the previous and next entries as context. Progress is recorded in a
checkpoint next to the output, so an interrupted run continues where it stopped
when started again with the same arguments.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.printOnly {
				cfg, err := loadConfig(cmd, flags)
				if err != nil {
					return err
				}
				closeLog, err := setupLogging(cfg)
				if err != nil {
					return err
				}
				defer closeLog()
				return printEntries(cmd.OutOrStdout(), flags.src)
			}
			return runTranslate(cmd, flags)
		},
	}

	fs := rootCmd.Flags()
	fs.StringVarP(&flags.src, "src", "s", "", "Source SRT file")
	fs.StringVarP(&flags.dest, "dest", "t", "", "Destination SRT file (default <src>.<lang>.srt)")
	fs.StringVarP(&flags.lang, "lang", "l", "", "Target language, BCP 47 tag or name (default zh)")
	fs.StringVar(&flags.apiURL, "api-url", "", "Translation service base URL")
	fs.StringVar(&flags.apiKey, "api-key", "", "Translation service API key")
	fs.StringVar(&flags.service, "service", "", "Service kind: openai or dify")
	fs.StringVar(&flags.model, "model", "", "Model name for the openai service")
	fs.IntVar(&flags.maxRetries, "max-retries", 0, "Extra attempts per entry after a failed call (default 3)")
	fs.DurationVar(&flags.retryDelay, "retry-delay", 0, "Pause between attempts (default 3s)")
	fs.StringVar(&flags.checkpointBackend, "checkpoint-backend", "", "Checkpoint storage: file or sqlite")
	fs.StringVar(&flags.resumeCron, "resume-cron", "", "After a failed run, retry on this cron schedule (seconds field first, or @every 10m)")
	fs.BoolVarP(&flags.printOnly, "print", "p", false, "Print the parsed source entries and exit")
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file path (TOML)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	_ = rootCmd.MarkFlagRequired("src")

	rootCmd.AddCommand(newSplitCommand(flags), newConfigCommand(flags))

	return rootCmd
}

// loadConfig layers the flags that were set on top of file and environment values
func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	var opts []config.Option
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("lang") {
		opts = append(opts, config.WithTargetLanguage(flags.lang))
	}
	if changed("api-url") {
		opts = append(opts, config.WithAPIURL(flags.apiURL))
	}
	if changed("api-key") {
		opts = append(opts, config.WithAPIKey(flags.apiKey))
	}
	if changed("service") {
		opts = append(opts, config.WithServiceKind(flags.service))
	}
	if changed("model") {
		opts = append(opts, config.WithModel(flags.model))
	}
	if changed("max-retries") {
		opts = append(opts, config.WithMaxRetries(flags.maxRetries))
	}
	if changed("retry-delay") {
		opts = append(opts, config.WithRetryDelay(flags.retryDelay))
	}
	if changed("checkpoint-backend") {
		opts = append(opts, config.WithCheckpointBackend(flags.checkpointBackend))
	}
	if changed("resume-cron") {
		opts = append(opts, config.WithResumeCron(flags.resumeCron))
	}
	if changed("log-level") {
		opts = append(opts, config.WithLogLevel(flags.logLevel))
	}

	return config.Load(flags.configPath, opts...)
}
