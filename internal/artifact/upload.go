package artifact

import (
	"context"
	"crypto/md5" //nolint:gosec // integrity compare against object store's reported MD5, not a security boundary
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// maxStuckRetries bounds how many times a 308 response with no Range header
// (the session reporting no progress at all) is retried before the upload
// is abandoned as stuck, per spec §4.2.
const maxStuckRetries = 5

// sizeToleranceBytes is the maximum acceptable drift between the object
// store's reported size and the local file size, per spec §4.2.
const sizeToleranceBytes = 1024

// UploadResult reports what the completed upload session returned, for the
// caller to verify against the local file and persist alongside the recording.
type UploadResult struct {
	FileID     string
	ViewURL    string
	RemoteMD5  string
	RemoteSize int64
}

type uploadCompleteResponse struct {
	FileID  string `json:"fileId"`
	ViewURL string `json:"viewUrl"`
	MD5     string `json:"md5"`
	Size    int64  `json:"size"`
}

// Upload performs a session-based chunked upload of localPath, per spec
// §4.2: initiate a session, PUT chunks of c.chunkSize with Content-Range,
// advance on a 308 that carries a Range header, retry the same chunk up to
// maxStuckRetries when a 308 carries none, and verify the completion
// response's MD5/size against the local file.
func (c *Client) Upload(
	ctx context.Context, initiator SessionInitiator, localPath, name, folderID string, tags map[string]string,
) (*UploadResult, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("artifact: stat upload source: %w", err)
	}

	size := info.Size()

	localMD5, err := fileMD5(localPath)
	if err != nil {
		return nil, fmt.Errorf("artifact: hashing upload source: %w", err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("artifact: opening upload source: %w", err)
	}
	defer f.Close()

	session, err := initiator.InitiateUpload(ctx, name, folderID, tags, size)
	if err != nil {
		return nil, fmt.Errorf("artifact: initiating upload session: %w", err)
	}

	result, err := c.uploadAllChunks(ctx, session, f, size)
	if err != nil {
		return nil, err
	}

	if err := verifyUpload(result, localMD5, size); err != nil {
		return nil, err
	}

	c.logger.Debug("upload: complete", slog.String("name", name), slog.Int64("size", size))

	return result, nil
}

// uploadAllChunks drives the chunk PUT loop directly (not through
// retry.Policy.Run) because two independent retry semantics are in play: a
// transient-network/429/5xx counter bounded by c.uploadPolicy and backed off
// by c.uploadPolicy.Delay, and a separate stuck-308 counter bounded by
// maxStuckRetries with no backoff, per spec §4.2.
func (c *Client) uploadAllChunks(ctx context.Context, session *UploadSession, content io.ReaderAt, size int64) (*UploadResult, error) {
	offset := int64(0)
	networkAttempt := 0
	stuckAttempts := 0

	for offset < size {
		chunkSize := c.chunkSize
		if offset+chunkSize > size {
			chunkSize = size - offset
		}

		resp, err := c.putChunk(ctx, session, content, offset, chunkSize, size)
		if err != nil {
			if networkAttempt >= c.uploadPolicy.MaxAttempts-1 {
				return nil, fmt.Errorf("%w: chunk upload at offset %d: %v", ErrTransport, offset, err)
			}

			if sleepErr := c.clock.Sleep(ctx, c.uploadPolicy.Delay(networkAttempt)); sleepErr != nil {
				return nil, sleepErr
			}

			networkAttempt++

			continue
		}

		result, nextOffset, retryStuck, err := c.handleChunkResponse(resp, offset)
		if err != nil {
			if retryStuck {
				stuckAttempts++
				if stuckAttempts >= maxStuckRetries {
					return nil, fmt.Errorf("%w: offset %d after %d attempts", ErrStuck308, offset, stuckAttempts)
				}

				continue
			}

			if networkAttempt >= c.uploadPolicy.MaxAttempts-1 {
				return nil, err
			}

			if sleepErr := c.clock.Sleep(ctx, c.uploadPolicy.Delay(networkAttempt)); sleepErr != nil {
				return nil, sleepErr
			}

			networkAttempt++

			continue
		}

		if result != nil {
			return result, nil
		}

		offset = nextOffset
		networkAttempt = 0
		stuckAttempts = 0
	}

	return nil, fmt.Errorf("%w: session ended without a completion response", ErrInvalidArtifact)
}

// putChunk issues a single PUT for one chunk. chunk content is read through
// a fresh io.SectionReader built inside this call — never reused across
// attempts — because io.SectionReader.ReadAt is safe to call concurrently
// with a previous attempt's transport goroutine, but the underlying request
// body of a failed attempt must never be handed to a new request.
func (c *Client) putChunk(ctx context.Context, session *UploadSession, content io.ReaderAt, offset, length, total int64) (*http.Response, error) {
	reader := io.NewSectionReader(content, offset, length)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, session.URL, reader)
	if err != nil {
		return nil, fmt.Errorf("artifact: building chunk request: %w", err)
	}

	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, offset+length-1, total))
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("User-Agent", userAgent)
	req.ContentLength = length

	return c.httpClient.Do(req) //nolint:bodyclose // body closed by handleChunkResponse
}

// handleChunkResponse classifies one chunk PUT response. retryStuck reports
// whether the failure is a 308-without-Range (caller bumps its own counter
// with no backoff); otherwise a non-nil error is a transient failure the
// caller backs off and retries, or — for statuses outside the retryable
// set — a terminal failure.
func (c *Client) handleChunkResponse(resp *http.Response, offset int64) (result *UploadResult, nextOffset int64, retryStuck bool, err error) {
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var body uploadCompleteResponse
		if decErr := json.NewDecoder(resp.Body).Decode(&body); decErr != nil {
			return nil, offset, false, fmt.Errorf("%w: decoding upload completion response: %v", ErrInvalidArtifact, decErr)
		}

		return &UploadResult{FileID: body.FileID, ViewURL: body.ViewURL, RemoteMD5: body.MD5, RemoteSize: body.Size}, offset, false, nil

	case http.StatusPermanentRedirect:
		rangeHeader := resp.Header.Get("Range")
		if rangeHeader == "" {
			return nil, offset, true, fmt.Errorf("%w: 308 without Range header", ErrTransport)
		}

		next, parseErr := parseNextOffset(rangeHeader)
		if parseErr != nil {
			return nil, offset, false, fmt.Errorf("artifact: parsing 308 Range header %q: %w", rangeHeader, parseErr)
		}

		return nil, next, false, nil

	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		body, _ := io.ReadAll(resp.Body)
		return nil, offset, false, fmt.Errorf("%w: chunk upload status %d: %s", ErrTransport, resp.StatusCode, string(body))

	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, offset, false, fmt.Errorf("%w: chunk upload status %d: %s", ErrInvalidArtifact, resp.StatusCode, string(body))
	}
}

// parseNextOffset reads the byte offset to resume from out of a 308
// response's "Range: bytes=0-1047" style header (inclusive end, so the
// next offset is end+1).
func parseNextOffset(rangeHeader string) (int64, error) {
	spec := strings.TrimPrefix(rangeHeader, "bytes=")

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("unrecognized range format %q", rangeHeader)
	}

	end, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing range end: %w", err)
	}

	return end + 1, nil
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New() //nolint:gosec // integrity compare, not a security boundary

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// verifyUpload checks the completed session's reported MD5/size against the
// local file, per spec §4.2: a missing remote MD5 means the upload is
// probably incomplete and fails outright; size is allowed to drift by
// sizeToleranceBytes in either direction.
func verifyUpload(result *UploadResult, localMD5 string, localSize int64) error {
	if result.RemoteMD5 == "" {
		return fmt.Errorf("%w: upload response missing remote md5, upload likely incomplete", ErrInvalidArtifact)
	}

	if result.RemoteMD5 != localMD5 {
		return fmt.Errorf("%w: remote md5 %s does not match local md5 %s", ErrInvalidArtifact, result.RemoteMD5, localMD5)
	}

	diff := result.RemoteSize - localSize
	if diff < -sizeToleranceBytes || diff > sizeToleranceBytes {
		return fmt.Errorf("%w: remote size %d differs from local size %d by more than tolerance",
			ErrInvalidArtifact, result.RemoteSize, localSize)
	}

	return nil
}
