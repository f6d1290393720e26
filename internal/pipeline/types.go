package pipeline

import (
	"github.com/acme-edu/recording-pipeline/internal/conferencing"
	"github.com/acme-edu/recording-pipeline/internal/webhook"
)

// FileCandidate is one recording-file entry considered for MP4 selection
// (spec §4.7). webhook.RecordingFile and conferencing.RecordingFile carry
// the identical shape but are distinct Go types in distinct packages (the
// webhook envelope and the polling listing are two different wire
// responses from the same provider) — FileCandidate lets selection.go
// operate on either source without this package importing json tags from
// two places.
type FileCandidate struct {
	ID            string
	FileType      string
	RecordingType string
	Status        string
	DownloadURL   string
	FileSize      int64
}

// fromWebhookFiles adapts a webhook event's recording files.
func fromWebhookFiles(files []webhook.RecordingFile) []FileCandidate {
	out := make([]FileCandidate, 0, len(files))

	for _, f := range files {
		out = append(out, FileCandidate{
			ID:            f.ID,
			FileType:      f.FileType,
			RecordingType: f.RecordingType,
			Status:        f.Status,
			DownloadURL:   f.DownloadURL,
			FileSize:      f.FileSize,
		})
	}

	return out
}

// fromConferencingFiles adapts a polled meeting listing's recording files.
func fromConferencingFiles(files []conferencing.RecordingFile) []FileCandidate {
	out := make([]FileCandidate, 0, len(files))

	for _, f := range files {
		out = append(out, FileCandidate{
			ID:            f.ID,
			FileType:      f.FileType,
			RecordingType: f.RecordingType,
			Status:        f.Status,
			DownloadURL:   f.DownloadURL,
			FileSize:      f.FileSize,
		})
	}

	return out
}
