package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatResult renders a batch result in the requested format.
func FormatResult(res *Result, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(res)
	case "csv":
		return formatCSV(res)
	default: // text
		return formatText(res), nil
	}
}

// formatJSON formats the result as indented JSON.
func formatJSON(res *Result) (string, error) {
	bts, err := json.MarshalIndent(res, "", "  ")
	return string(bts), err
}

// formatCSV formats the result as CSV, one row per file.
func formatCSV(res *Result) (string, error) {
	rows := [][]string{
		{"file", "status", "width", "height", "levels", "channels", "pixel_type", "output", "error"},
	}
	for _, f := range res.Files {
		row := []string{f.Path, "ok", "", "", "", "", "", f.Output, f.Error}
		if f.Err != nil {
			row[1] = "error"
		}
		if f.Info != nil {
			row[2] = strconv.Itoa(f.Info.Width)
			row[3] = strconv.Itoa(f.Info.Height)
			row[4] = strconv.Itoa(len(f.Info.Levels))
			row[5] = strconv.Itoa(f.Info.SizeC)
			row[6] = f.Info.PixelType
		}
		rows = append(rows, row)
	}

	var output strings.Builder
	writer := csv.NewWriter(&output)
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), nil
}

// formatText formats the result as plain text, one block per file.
func formatText(res *Result) string {
	var output strings.Builder
	for i, f := range res.Files {
		if i > 0 {
			output.WriteString("\n")
		}
		fmt.Fprintf(&output, "# %s\n", f.Path)
		switch {
		case f.Err != nil:
			fmt.Fprintf(&output, "error: %s\n", f.Error)
		case f.Info != nil:
			fmt.Fprintf(&output, "size: %dx%d  levels: %d  channels: %d  pixel type: %s\n",
				f.Info.Width, f.Info.Height, len(f.Info.Levels), f.Info.SizeC, f.Info.PixelType)
		case f.Output != "":
			fmt.Fprintf(&output, "wrote %s\n", f.Output)
		}
	}
	fmt.Fprintf(&output, "\n%d file(s), %d failed, %s\n", res.Total, res.Failed, res.Duration.Round(time.Millisecond))
	return output.String()
}
