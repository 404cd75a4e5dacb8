// package formatter renders jobs and the main data record as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/botanica/internal/models"
	"github.com/desertthunder/botanica/internal/shared"
)

// Format is an export format name.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatJSON     Format = "json"
)

// Formats lists the accepted export formats.
var Formats = []Format{FormatCSV, FormatMarkdown, FormatText, FormatJSON}

// ParseFormat accepts a format name or a common alias ("markdown", "text").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want csv, md, txt or json)", shared.ErrInvalidArgument, s)
	}
}

// activeLabel renders the isActive flag.
func activeLabel(active bool) string {
	if active {
		return "yes"
	}
	return "no"
}

// ExportToCSV converts jobs to CSV with columns: ID, Name, Short Description, Long Description, Active
func ExportToCSV(jobs []models.Subcategory) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Short Description", "Long Description", "Active"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, job := range jobs {
		record := []string{
			job.ID.String(),
			job.Name,
			job.ShortDescription,
			job.LongDescription,
			activeLabel(job.IsActive),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts jobs to a Markdown document headed by title.
func ExportToMarkdown(jobs []models.Subcategory, title string) ([]byte, error) {
	if title == "" {
		title = "Jobs"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Jobs**: %d\n\n", len(jobs))

	for _, job := range jobs {
		status := ""
		if !job.IsActive {
			status = " _(inactive)_"
		}
		fmt.Fprintf(&buf, "## %s%s\n\n", job.Name, status)
		fmt.Fprintf(&buf, "- **ID**: %s\n", job.ID)
		if job.ShortDescription != "" {
			fmt.Fprintf(&buf, "- **Summary**: %s\n", job.ShortDescription)
		}
		buf.WriteString("\n")
		if job.LongDescription != "" {
			buf.WriteString(job.LongDescription)
			buf.WriteString("\n\n")
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts jobs to a numbered plain text list.
func ExportToText(jobs []models.Subcategory) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Jobs: %d\n\n", len(jobs))
	for i, job := range jobs {
		fmt.Fprintf(&buf, "%d. %s [%s]", i+1, job.Name, job.ID)
		if !job.IsActive {
			buf.WriteString(" (inactive)")
		}
		buf.WriteString("\n")
		if job.ShortDescription != "" {
			fmt.Fprintf(&buf, "   %s\n", job.ShortDescription)
		}
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts jobs to indented JSON in the backend's wire format.
func ExportToJSON(jobs []models.Subcategory) ([]byte, error) {
	if jobs == nil {
		jobs = []models.Subcategory{}
	}
	return shared.MarshalJSON(jobs, true)
}

// Export renders jobs in format.
func Export(format Format, jobs []models.Subcategory) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(jobs)
	case FormatMarkdown:
		return ExportToMarkdown(jobs, "")
	case FormatText:
		return ExportToText(jobs)
	case FormatJSON:
		return ExportToJSON(jobs)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteExport renders jobs in format and writes them to path.
//
// Defaults to jobs.{format} in the working directory.
func WriteExport(format Format, jobs []models.Subcategory, path string) (string, error) {
	if path == "" {
		path = "jobs." + string(format)
	}

	data, err := Export(format, jobs)
	if err != nil {
		return "", fmt.Errorf("failed to generate export: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

// MainDataToText renders the main data record as "Label (key): value" lines in field order.
// Long fields are indented on the following lines.
func MainDataToText(d models.MainData) []byte {
	var buf bytes.Buffer

	for _, f := range models.MainDataFields {
		v := d.Get(f.Key)
		if !f.Long {
			fmt.Fprintf(&buf, "%s (%s): %s\n", f.Label, f.Key, v)
			continue
		}

		fmt.Fprintf(&buf, "%s (%s):\n", f.Label, f.Key)
		for _, line := range strings.Split(v, "\n") {
			if line == "" {
				continue
			}
			fmt.Fprintf(&buf, "    %s\n", line)
		}
	}

	return buf.Bytes()
}
