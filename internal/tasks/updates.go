package tasks

import (
	"fmt"

	"github.com/playsync/playsync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Validate Phase = iota
	FetchSource
	SearchTracks
	PersistTracks
	WriteLog
	Complete
)

func (p Phase) String() string {
	switch p {
	case Validate:
		return "validate"
	case FetchSource:
		return "fetch_source"
	case SearchTracks:
		return "search_tracks"
	case PersistTracks:
		return "persist_tracks"
	case WriteLog:
		return "write_log"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func validatingUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   Validate,
		Step:    1,
		Total:   1,
		Message: "Validating linked accounts...",
	}
}

func fetchSourceUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching source playlist from %s...", name),
	}
}

func foundPlaylistUpdate(export *models.PlaylistExport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", export.Playlist.Name, len(export.Tracks)),
		Data:    export,
	}
}

func searchTracksUpdate(step, total int, tr *models.Track) ProgressUpdate {
	if tr == nil {
		return ProgressUpdate{
			Phase:   SearchTracks,
			Step:    step,
			Total:   total,
			Message: "Searching for tracks on the destination...",
		}
	}
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, tr.Artist(), tr.Title),
	}
}

func persistTracksUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PersistTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Recording matches (%d/%d)...", step, total),
	}
}

func writeLogUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteLog,
		Step:    1,
		Total:   1,
		Message: "Writing sync log...",
	}
}

func completeUpdate(result *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: result.Message,
		Data:    result,
	}
}
