package pipeline

import (
	"fmt"
	"regexp"
	"time"
)

// maxTopicLength truncates a sanitized topic before it becomes part of a
// filename, per spec §4.7.
const maxTopicLength = 50

var unsafeFileChar = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// sanitizeTopic replaces any character outside [A-Za-z0-9_-] with an
// underscore and truncates to maxTopicLength, per spec §4.7's file-naming
// rule.
func sanitizeTopic(topic string) string {
	sanitized := unsafeFileChar.ReplaceAllString(topic, "_")
	if len(sanitized) > maxTopicLength {
		sanitized = sanitized[:maxTopicLength]
	}

	return sanitized
}

// buildFileName constructs "<sanitized-topic>_<timestamp>_<externalRecordingId>.mp4"
// per spec §4.7. The timestamp uses a colon-free ISO 8601 basic-format
// rendering rather than time.RFC3339 — colons in a filename are fine on
// POSIX but this keeps the name portable without a second sanitize pass.
func buildFileName(topic string, ts time.Time, externalRecordingID string) string {
	return fmt.Sprintf("%s_%s_%s.mp4", sanitizeTopic(topic), ts.UTC().Format("20060102T150405Z"), externalRecordingID)
}
