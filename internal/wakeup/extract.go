package wakeup

import "regexp"

// driveFileIDPatterns extracts an object-store file id from a preview URL,
// per spec §4.9's two accepted shapes: a path segment (`/file/d/<id>`) or a
// query parameter (`?id=<id>`/`&id=<id>`).
var driveFileIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/file/d/([^/?#]+)`),
	regexp.MustCompile(`[?&]id=([^&#]+)`),
}

// extractArtifactID pulls a file id out of artifactURL, returning false if
// neither accepted shape matches.
func extractArtifactID(artifactURL string) (string, bool) {
	for _, p := range driveFileIDPatterns {
		if m := p.FindStringSubmatch(artifactURL); m != nil {
			return m[1], true
		}
	}

	return "", false
}
