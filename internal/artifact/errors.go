// Package artifact implements resumable download and chunked resumable
// upload of recording files: a retrying HTTP client with a
// fresh-SectionReader-per-attempt invariant on chunk upload, plus
// .partial-file resume, atomic rename, and post-transfer verification on
// download.
package artifact

import "errors"

// Failure taxonomy per spec §4.1/§4.2/§7. Callers use errors.Is to classify.
var (
	ErrNotReady        = errors.New("artifact: not ready")
	ErrTransport       = errors.New("artifact: transport error")
	ErrInvalidArtifact = errors.New("artifact: invalid artifact")
	ErrAuth            = errors.New("artifact: auth error")
	ErrStuck308        = errors.New("artifact: upload stuck without progress")
)
