package forum

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// preferredForumNames is the cascade order from spec §4.7/§9's worked
// example: the purpose-built recordings forum first, then whichever of the
// LMS's default announcement forums exists, else the course's first forum.
var preferredForumNames = []string{"Clases Grabadas", "Anuncios", "Announcements", "News forum"}

// ListForumsByCourse implements mod_forum_get_forums_by_courses for a
// single course id.
func (c *Client) ListForumsByCourse(ctx context.Context, courseID int) ([]Forum, error) {
	params := url.Values{
		"courseids[0]": {strconv.Itoa(courseID)},
	}

	var forums []Forum
	if err := c.call(ctx, "mod_forum_get_forums_by_courses", params, &forums); err != nil {
		return nil, fmt.Errorf("forum: list forums for course %d: %w", courseID, err)
	}

	return forums, nil
}

// ResolveForumID picks the forum to post a published-recording discussion
// into, per spec §4.7: "Clases Grabadas" by name, else one of the LMS's
// default announcement forums, else the first forum returned by the
// listing call. Returns an error if the course has no forums at all.
func (c *Client) ResolveForumID(ctx context.Context, courseID int) (int, error) {
	forums, err := c.ListForumsByCourse(ctx, courseID)
	if err != nil {
		return 0, err
	}

	if len(forums) == 0 {
		return 0, fmt.Errorf("forum: course %d has no forums", courseID)
	}

	for _, name := range preferredForumNames {
		for _, f := range forums {
			if f.Name == name {
				return f.ID, nil
			}
		}
	}

	return forums[0].ID, nil
}
