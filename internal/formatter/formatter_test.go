package formatter

import (
	"fmt"
	"strings"
	"testing"

	"github.com/playsync/playsync/internal/models"
	"github.com/playsync/playsync/internal/shared"
	"github.com/playsync/playsync/internal/tasks"
	th "github.com/playsync/playsync/internal/testing"
)

func testExport() *models.PlaylistExport {
	return &models.PlaylistExport{
		Playlist: models.Playlist{
			ID:          "test123",
			Name:        "Test Playlist",
			Description: "A test playlist",
			TrackCount:  2,
			Public:      true,
		},
		Tracks: []models.Track{
			{
				ID:       "track1",
				Title:    "Song One",
				Artists:  []string{"Artist One", "Featured Artist"},
				Album:    "Album One",
				Duration: 180,
			},
			{
				ID:       "track2",
				Title:    "Song Two",
				Artists:  []string{"Artist Two"},
				Duration: 240,
			},
		},
	}
}

func testResult() *tasks.SyncResult {
	export := testExport()
	return &tasks.SyncResult{
		Playlist: &export.Playlist,
		Matches: []tasks.TrackMatchResult{
			{
				Original: export.Tracks[0],
				Matched:  &models.Track{ID: "yt1", Title: "Song One", Artists: []string{"Artist One"}},
			},
			{
				Original: export.Tracks[1],
				Err:      fmt.Errorf("%w: no results", shared.ErrTrackNotFound),
			},
		},
		TotalTracks:   2,
		SongsAdded:    1,
		SongsNotFound: 1,
		Message:       "Synced 1 of 2 tracks (1 not found)",
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "ID,Title,Artists,Album,Duration") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "track1") {
			t.Errorf("CSV missing track1 ID")
		}
		if !strings.Contains(output, "Artist One; Featured Artist") {
			t.Errorf("CSV missing joined artists, got: %s", output)
		}
		if !strings.Contains(output, "180") {
			t.Errorf("CSV missing duration")
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(testExport())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "# Test Playlist") {
			t.Errorf("Markdown missing title")
		}
		if !strings.Contains(output, "**Description**: A test playlist") {
			t.Errorf("Markdown missing description")
		}
		if !strings.Contains(output, "**Visibility**: Public") {
			t.Errorf("Markdown missing visibility")
		}
		if !strings.Contains(output, "1. Artist One - Song One (Album One) [3:00]") {
			t.Errorf("Markdown missing track1, got: %s", output)
		}
		if !strings.Contains(output, "2. Artist Two - Song Two [4:00]") {
			t.Errorf("Markdown missing track2 (no album)")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "Playlist: Test Playlist") {
			t.Errorf("Text missing playlist name")
		}
		if !strings.Contains(output, "Tracks: 2") {
			t.Errorf("Text missing track count")
		}
		if !strings.Contains(output, "1. Artist One - Song One") {
			t.Errorf("Text missing track1")
		}
	})
}

func TestReports(t *testing.T) {
	t.Run("ReportToCSV", func(t *testing.T) {
		data, err := ReportToCSV(testResult())
		if err != nil {
			t.Fatalf("ReportToCSV failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "Title,Artists,Album,Status,MatchedID") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "matched,yt1") {
			t.Errorf("CSV missing matched row, got: %s", output)
		}
		if !strings.Contains(output, "not_found") {
			t.Errorf("CSV missing not_found row, got: %s", output)
		}
	})

	t.Run("ReportToMarkdown", func(t *testing.T) {
		data, err := ReportToMarkdown(testResult())
		if err != nil {
			t.Fatalf("ReportToMarkdown failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "# Sync Report: Test Playlist") {
			t.Errorf("Markdown missing title, got: %s", output)
		}
		if !strings.Contains(output, "**Added**: 1") {
			t.Errorf("Markdown missing added count")
		}
		if !strings.Contains(output, "**Match rate**: 50.0%") {
			t.Errorf("Markdown missing match rate, got: %s", output)
		}
		if !strings.Contains(output, "1. Artist One - Song One -> yt1") {
			t.Errorf("Markdown missing matched track, got: %s", output)
		}
		if !strings.Contains(output, "2. Artist Two - Song Two (not found)") {
			t.Errorf("Markdown missing unmatched track, got: %s", output)
		}
	})

	t.Run("ReportToMarkdown flags search failures", func(t *testing.T) {
		result := testResult()
		result.Matches[1].Err = fmt.Errorf("%w: upstream 503", shared.ErrServiceUnavailable)

		data, err := ReportToMarkdown(result)
		if err != nil {
			t.Fatalf("ReportToMarkdown failed: %v", err)
		}
		if !strings.Contains(string(data), "search failed") {
			t.Errorf("Markdown should distinguish failures from no-match, got: %s", data)
		}
	})

	t.Run("ReportToText", func(t *testing.T) {
		data, err := ReportToText(testResult())
		if err != nil {
			t.Fatalf("ReportToText failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "Synced 1 of 2 tracks (1 not found)") {
			t.Errorf("Text missing summary message")
		}
		if !strings.Contains(output, "[matched] Artist One - Song One") {
			t.Errorf("Text missing matched track, got: %s", output)
		}
		if !strings.Contains(output, "[not_found] Artist Two - Song Two") {
			t.Errorf("Text missing unmatched track, got: %s", output)
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		result, err := WriteCSVExport(testExport(), "")
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}

		if result.TracksFile != "test123_tracks.csv" {
			t.Errorf("Expected 'test123_tracks.csv', got '%s'", result.TracksFile)
		}
		if result.MetadataFile != "test123_metadata.json" {
			t.Errorf("Expected 'test123_metadata.json', got '%s'", result.MetadataFile)
		}

		th.AssertFileExists(t, result.TracksFile)
		th.AssertFileExists(t, result.MetadataFile)

		metadata := th.MustReadFile(t, result.MetadataFile)
		if !strings.Contains(metadata, "Test Playlist") {
			t.Errorf("Metadata JSON missing playlist name")
		}
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		filepath, err := WriteTextExport(testExport(), "my_playlist.txt")
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if filepath != "my_playlist.txt" {
			t.Errorf("Expected 'my_playlist.txt', got '%s'", filepath)
		}
		th.AssertFileExists(t, filepath)
	})

	t.Run("WriteReport", func(t *testing.T) {
		t.Run("DefaultPathPerFormat", func(t *testing.T) {
			tempDir := t.TempDir()
			originalDir := th.MustGetwd(t)
			th.MustChdir(t, tempDir)
			defer th.MustChdir(t, originalDir)

			for _, format := range []string{"csv", "md", "txt"} {
				path, err := WriteReport(testResult(), format, "")
				if err != nil {
					t.Fatalf("WriteReport(%s) failed: %v", format, err)
				}
				if path != "sync_report."+format {
					t.Errorf("Expected 'sync_report.%s', got '%s'", format, path)
				}
				th.AssertFileExists(t, path)
			}
		})

		t.Run("CustomPath", func(t *testing.T) {
			tempDir := t.TempDir()
			originalDir := th.MustGetwd(t)
			th.MustChdir(t, tempDir)
			defer th.MustChdir(t, originalDir)

			path, err := WriteReport(testResult(), "md", "report.md")
			if err != nil {
				t.Fatalf("WriteReport failed: %v", err)
			}
			if path != "report.md" {
				t.Errorf("Expected 'report.md', got '%s'", path)
			}

			content := th.MustReadFile(t, path)
			if !strings.Contains(content, "# Sync Report: Test Playlist") {
				t.Errorf("Report missing title")
			}
		})

		t.Run("UnknownFormat", func(t *testing.T) {
			if _, err := WriteReport(testResult(), "yaml", ""); err == nil {
				t.Error("Expected an error for an unknown format")
			}
		})
	})
}
