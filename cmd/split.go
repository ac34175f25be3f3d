package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MimeLyc/srt-line-translator/internal/subtitle"
	"github.com/MimeLyc/srt-line-translator/pkg/log"
)

func newSplitCommand(root *rootFlags) *cobra.Command {
	var src, dest string

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a bilingual SRT file into two single-language files",
		Long: `Entries holding exactly two text lines are split: the first line goes to
<dest>_lang1.srt and the second to <dest>_lang2.srt with the original index and
timing. Other entries are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			closeLog, err := setupLogging(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			if dest == "" {
				dest = src
			}
			first, second, err := splitFile(src, dest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", first, second)
			return nil
		},
	}

	cmd.Flags().StringVarP(&src, "src", "s", "", "Bilingual source SRT file")
	cmd.Flags().StringVarP(&dest, "dest", "t", "", "Output path prefix (default the source path)")
	_ = cmd.MarkFlagRequired("src")
	return cmd
}

func splitFile(src, dest string) (string, string, error) {
	f, err := subtitle.NewReader(src).Read()
	if err != nil {
		return "", "", err
	}

	first, second := subtitle.Split(f)
	firstPath, secondPath := subtitle.SplitPaths(dest)
	log.Info("Split %d of %d entries from %s", len(first.Lines), len(f.Lines), src)

	writer := subtitle.NewWriter()
	var g errgroup.Group
	g.Go(func() error {
		return writer.Write(firstPath, first)
	})
	g.Go(func() error {
		return writer.Write(secondPath, second)
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return firstPath, secondPath, nil
}
