package pipeline

import "sort"

// recordingTypePreference is spec §4.7's tie-break order among multiple
// completed MP4 candidates.
var recordingTypePreference = []string{
	"shared_screen_with_speaker_view",
	"active_speaker",
	"speaker_view",
	"gallery_view",
}

// SelectMP4 implements spec §4.7's file-selection rule: candidates must
// report file_type MP4, carry a download URL, and have status completed.
// Among survivors, prefer recordingTypePreference's order, breaking ties by
// larger reported size.
func SelectMP4(files []FileCandidate) (*FileCandidate, bool) {
	var candidates []FileCandidate

	for _, f := range files {
		if !isMP4(f.FileType) || f.DownloadURL == "" || f.Status != "completed" {
			continue
		}

		candidates = append(candidates, f)
	}

	if len(candidates) == 0 {
		return nil, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := recordingTypeRank(candidates[i].RecordingType), recordingTypeRank(candidates[j].RecordingType)
		if ri != rj {
			return ri < rj
		}

		return candidates[i].FileSize > candidates[j].FileSize
	})

	return &candidates[0], true
}

func isMP4(fileType string) bool {
	return fileType == "MP4" || fileType == "mp4"
}

func recordingTypeRank(recordingType string) int {
	for i, t := range recordingTypePreference {
		if t == recordingType {
			return i
		}
	}

	return len(recordingTypePreference)
}
