package forum

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// PreviewURL derives the embeddable preview URL from a stored view URL, per
// spec §6: "/view" replaced by "/preview".
func PreviewURL(viewURL string) string {
	return strings.Replace(viewURL, "/view", "/preview", 1)
}

// iframeTemplate is the fixed embed snippet from spec §6: a 56.25% aspect
// ratio (16:9) wrapper with a transparent overlay over the pop-out control
// region in the preview player's corner.
const iframeTemplate = `<div style="position:relative;padding-top:56.25%;">` +
	`<iframe src="%s" style="position:absolute;top:0;left:0;width:100%%;height:100%%;border:0;" allow="autoplay"></iframe>` +
	`<div style="position:absolute;top:0;right:0;width:48px;height:48px;background:transparent;"></div>` +
	`</div>`

// BuildEmbed wraps a preview URL in the fixed iframe snippet.
func BuildEmbed(previewURL string) string {
	return fmt.Sprintf(iframeTemplate, previewURL)
}

// CreateDiscussion implements mod_forum_add_discussion, posting a new
// top-level thread with the given subject and HTML message. Returns the new
// discussion id.
func (c *Client) CreateDiscussion(ctx context.Context, forumID int, subject, message string) (int, error) {
	params := url.Values{
		"forumid": {strconv.Itoa(forumID)},
		"subject": {subject},
		"message": {message},
	}

	var respBody addDiscussionResponse
	if err := c.call(ctx, "mod_forum_add_discussion", params, &respBody); err != nil {
		return 0, fmt.Errorf("forum: create discussion in forum %d: %w", forumID, err)
	}

	if len(respBody.Warnings) > 0 {
		w := respBody.Warnings[0]
		return respBody.DiscussionID, fmt.Errorf("forum: discussion created with warning %s: %s", w.WarningCode, w.Message)
	}

	return respBody.DiscussionID, nil
}
