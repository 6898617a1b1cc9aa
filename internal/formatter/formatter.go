// package formatter renders playlist exports and sync reports to CSV,
// Markdown, and plain text.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/playsync/playsync/internal/models"
	"github.com/playsync/playsync/internal/shared"
	"github.com/playsync/playsync/internal/tasks"
)

// ExportToCSV converts a PlaylistExport to CSV format with columns: ID, Title, Artists, Album, Duration
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artists", "Album", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.ID,
			track.Title,
			strings.Join(track.Artists, "; "),
			track.Album,
			strconv.Itoa(track.Duration),
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

// ExportToMarkdown converts a PlaylistExport to Markdown format
func ExportToMarkdown(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", export.Playlist.Name))

	if export.Playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", export.Playlist.Description))
	}

	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", len(export.Tracks)))
	buf.WriteString(fmt.Sprintf("**Visibility**: %s\n\n", shared.VisibilityString(export.Playlist.Public)))

	buf.WriteString("## Tracks\n\n")
	for i, track := range export.Tracks {
		duration := shared.FormatDuration(track.Duration)
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, track.Artist(), track.Title, albumPart, duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", export.Playlist.Name))
	if export.Playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", export.Playlist.Description))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(export.Tracks)))

	for i, track := range export.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Artist(), track.Title))
	}

	return buf.Bytes(), nil
}

// matchStatus labels one match result for report output.
func matchStatus(match tasks.TrackMatchResult) string {
	switch {
	case match.Matched != nil:
		return "matched"
	case match.NotFound():
		return "not_found"
	default:
		return "error"
	}
}

// ReportToCSV converts a SyncResult to CSV format with one row per source
// track: Title, Artists, Album, Status, MatchedID
func ReportToCSV(result *tasks.SyncResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Title", "Artists", "Album", "Status", "MatchedID"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, match := range result.Matches {
		matchedID := ""
		if match.Matched != nil {
			matchedID = match.Matched.ID
		}
		record := []string{
			match.Original.Title,
			strings.Join(match.Original.Artists, "; "),
			match.Original.Album,
			matchStatus(match),
			matchedID,
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

// ReportToMarkdown converts a SyncResult to a Markdown report with summary
// counts followed by the per-track outcomes.
func ReportToMarkdown(result *tasks.SyncResult) ([]byte, error) {
	var buf bytes.Buffer

	name := "Sync Report"
	if result.Playlist != nil {
		name = fmt.Sprintf("Sync Report: %s", result.Playlist.Name)
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", name))

	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", result.TotalTracks))
	buf.WriteString(fmt.Sprintf("**Added**: %d\n", result.SongsAdded))
	buf.WriteString(fmt.Sprintf("**Not found**: %d\n", result.SongsNotFound))
	buf.WriteString(fmt.Sprintf("**Match rate**: %.1f%%\n\n", result.MatchPercentage()))

	buf.WriteString("## Tracks\n\n")
	for i, match := range result.Matches {
		line := fmt.Sprintf("%d. %s - %s", i+1, match.Original.Artist(), match.Original.Title)
		switch {
		case match.Matched != nil:
			line += fmt.Sprintf(" -> %s", match.Matched.ID)
		case match.NotFound():
			line += " (not found)"
		default:
			line += fmt.Sprintf(" (search failed: %v)", match.Err)
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// ReportToText converts a SyncResult to a plain text summary.
func ReportToText(result *tasks.SyncResult) ([]byte, error) {
	var buf bytes.Buffer

	if result.Playlist != nil {
		buf.WriteString(fmt.Sprintf("Playlist: %s\n", result.Playlist.Name))
	}
	buf.WriteString(result.Message + "\n\n")

	for i, match := range result.Matches {
		buf.WriteString(fmt.Sprintf("%d. [%s] %s - %s\n", i+1, matchStatus(match), match.Original.Artist(), match.Original.Title))
	}

	return buf.Bytes(), nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist ID as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(export *models.PlaylistExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Playlist.ID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := shared.MarshalJSON(export.Playlist, true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {playlist.ID}_tracks.txt as the filename.
func WriteTextExport(export *models.PlaylistExport, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_tracks.txt", export.Playlist.ID)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}

// WriteReport renders a sync report in the requested format ("csv", "md", or
// "txt") and writes it to path. Defaults the filename to the sync log ID when
// path is empty.
func WriteReport(result *tasks.SyncResult, format, path string) (string, error) {
	var (
		data []byte
		err  error
		ext  string
	)

	switch format {
	case "csv":
		data, err = ReportToCSV(result)
		ext = ".csv"
	case "md", "markdown":
		data, err = ReportToMarkdown(result)
		ext = ".md"
	case "txt", "text", "":
		data, err = ReportToText(result)
		ext = ".txt"
	default:
		return "", fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidRequest, format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	if path == "" {
		base := "sync_report"
		if result.Log != nil {
			base = "sync_report_" + result.Log.ID()
		}
		path = base + ext
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	return path, nil
}
