package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/osilab/ometiff/internal/batch"
	"github.com/osilab/ometiff/internal/config"
)

// batchCmd represents the batch command for parallel slide processing.
var batchCmd = &cobra.Command{
	Use:   "batch [paths...]",
	Short: "Process multiple slides in parallel",
	Long: `Process OME-TIFF slides in parallel using a worker pool. Paths may
be files or directories; directories are scanned for OME-TIFF files.

Modes:
  info       collect metadata summaries (default)
  thumbnail  render a PNG thumbnail per slide into --output-dir

Examples:
  ometiff batch slides/ --recursive --workers 8
  ometiff batch slides/ --mode thumbnail --output-dir thumbs/
  ometiff batch a.ome.tiff b.ome.tiff --format json --output results.json`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

// configToBatchConfig maps centralized configuration to batch.Config.
// CLI flags override config file values.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	batchConfig := batch.DefaultConfig()
	batchConfig.ReaderOptions = readerOptions(cfg)

	batchConfig.Workers = cfg.Batch.Workers
	if cmd.Flags().Changed("workers") {
		batchConfig.Workers, _ = cmd.Flags().GetInt("workers")
	}
	batchConfig.Recursive = cfg.Batch.Recursive
	if cmd.Flags().Changed("recursive") {
		batchConfig.Recursive, _ = cmd.Flags().GetBool("recursive")
	}
	batchConfig.IncludePatterns = cfg.Batch.IncludePatterns
	if cmd.Flags().Changed("include") {
		batchConfig.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	}
	batchConfig.ExcludePatterns = cfg.Batch.ExcludePatterns
	if cmd.Flags().Changed("exclude") {
		batchConfig.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	}
	batchConfig.ShowProgress = cfg.Batch.ShowProgress
	if cmd.Flags().Changed("progress") {
		batchConfig.ShowProgress, _ = cmd.Flags().GetBool("progress")
	}
	batchConfig.Quiet = cfg.Batch.Quiet
	if cmd.Flags().Changed("quiet") {
		batchConfig.Quiet, _ = cmd.Flags().GetBool("quiet")
	}

	mode, _ := cmd.Flags().GetString("mode")
	batchConfig.Mode = batch.Mode(mode)
	batchConfig.OutputDir, _ = cmd.Flags().GetString("output-dir")
	batchConfig.ThumbnailEdge, _ = cmd.Flags().GetInt("thumb-size")

	return &batchConfig
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	batchConfig := configToBatchConfig(cfg, cmd)

	res, err := batch.ProcessBatch(args, batchConfig)
	if err != nil {
		return err
	}

	format := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	out, err := batch.FormatResult(res, format)
	if err != nil {
		return err
	}

	outputFile := cfg.Output.File
	if cmd.Flags().Changed("output") {
		outputFile, _ = cmd.Flags().GetString("output")
	}
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(out), 0o600); err != nil {
			return err
		}
	} else if _, err := fmt.Fprintln(cmd.OutOrStdout(), out); err != nil {
		return err
	}

	if res.Failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", res.Failed, res.Total)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().String("mode", "info", "batch mode (info, thumbnail)")
	batchCmd.Flags().IntP("workers", "w", 4, "number of parallel workers")
	batchCmd.Flags().BoolP("recursive", "r", false, "scan directories recursively")
	batchCmd.Flags().StringSlice("include", nil, "glob patterns for files to include")
	batchCmd.Flags().StringSlice("exclude", nil, "glob patterns for files to exclude")
	batchCmd.Flags().Bool("progress", true, "show progress bar")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress progress output")
	batchCmd.Flags().StringP("format", "f", "text", "output format (text, json, csv)")
	batchCmd.Flags().StringP("output", "o", "", "write results to file instead of stdout")
	batchCmd.Flags().String("output-dir", "thumbnails", "output directory for thumbnail mode")
	batchCmd.Flags().Int("thumb-size", 512, "thumbnail edge length for thumbnail mode")
}
