package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/osilab/ometiff/internal/config"
	"github.com/osilab/ometiff/internal/reader"
)

// infoCmd represents the info command.
var infoCmd = &cobra.Command{
	Use:   "info [files...]",
	Short: "Inspect pyramidal OME-TIFF metadata",
	Long: `Print pyramid levels, axes, pixel type and physical scale of one
or more OME-TIFF slides.

Examples:
  ometiff info slide.ome.tiff
  ometiff info *.ome.tiff --format json
  ometiff info slide.ome.tiff --output info.json`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input files provided")
		}

		cfg := GetConfig()
		format := cfg.Output.Format
		if cmd.Flags().Changed("format") {
			format, _ = cmd.Flags().GetString("format")
		}
		if format != config.FormatText && format != config.FormatJSON {
			return fmt.Errorf("invalid output format: %s (must be one of: text, json)", format)
		}
		outputFile := cfg.Output.File
		if cmd.Flags().Changed("output") {
			outputFile, _ = cmd.Flags().GetString("output")
		}

		infos := make([]reader.Info, 0, len(args))
		for _, path := range args {
			s, err := reader.Open(path, readerOptions(cfg))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			infos = append(infos, s.Info())
			_ = s.Close()
		}

		var out string
		if format == config.FormatJSON {
			b, err := json.MarshalIndent(infos, "", "  ")
			if err != nil {
				return err
			}
			out = string(b)
		} else {
			out = formatInfosText(infos)
		}

		if outputFile != "" {
			return os.WriteFile(outputFile, []byte(out), 0o600)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	},
}

// formatInfosText renders slide summaries as plain text.
func formatInfosText(infos []reader.Info) string {
	var b strings.Builder
	for i, info := range infos {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "File: %s\n", info.Path)
		if info.Name != "" {
			fmt.Fprintf(&b, "Name: %s\n", info.Name)
		}
		fmt.Fprintf(&b, "Size: %dx%d\n", info.Width, info.Height)
		fmt.Fprintf(&b, "Axes: %s (dimension order %s)\n", info.Axes, info.DimensionOrder)
		fmt.Fprintf(&b, "Pixel type: %s", info.PixelType)
		if info.RGB {
			b.WriteString(" (rgb)")
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "Channels: %d", info.SizeC)
		if len(info.Channels) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(info.Channels, ", "))
		}
		b.WriteString("\n")
		if info.MicronsPerPxX > 0 || info.MicronsPerPxY > 0 {
			fmt.Fprintf(&b, "Scale: %.4f x %.4f um/px\n", info.MicronsPerPxY, info.MicronsPerPxX)
		}
		fmt.Fprintf(&b, "Tile size: %dx%d, compression: %s", info.TileWidth, info.TileHeight, info.Compression)
		if info.BigTIFF {
			b.WriteString(", bigtiff")
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "Levels: %d\n", len(info.Levels))
		for _, lv := range info.Levels {
			fmt.Fprintf(&b, "  #%d %dx%d (downsample %.1f)\n", lv.Index, lv.Width, lv.Height, lv.Downsample)
		}
		for _, warning := range info.Warnings {
			fmt.Fprintf(&b, "Warning: %s\n", warning)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringP("format", "f", "text", "output format (text, json)")
	infoCmd.Flags().StringP("output", "o", "", "write output to file instead of stdout")
}
