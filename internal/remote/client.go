package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"stride/internal/models"
)

// TokenProvider supplies the current bearer credential, or empty when the
// actor holds none. Acquisition and refresh live outside this package.
type TokenProvider interface {
	Token() string
}

// StaticToken is a TokenProvider for a fixed credential; useful in tests and
// simple daemons.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Client is the HTTP implementation of Store.
type Client struct {
	baseURL    string
	actorID    string
	tokens     TokenProvider
	httpClient *http.Client
}

// NewClient creates a client for the backend at baseURL. actorID is the
// authenticated actor's id, used to translate the backend's "liked" flag
// into the caller-only LikedBy membership.
func NewClient(baseURL, actorID string, tokens TokenProvider) *Client {
	return &Client{
		baseURL: baseURL,
		actorID: actorID,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiActivity is the feed wire shape; the backend reports the caller's own
// like status as a flag, never a roster.
type apiActivity struct {
	ID           string            `json:"id"`
	OwnerID      string            `json:"owner_id"`
	Title        string            `json:"title"`
	Visibility   models.Visibility `json:"visibility"`
	LikeCount    int               `json:"like_count"`
	CommentCount int               `json:"comment_count"`
	Liked        bool              `json:"liked"`
	StartedAt    time.Time         `json:"started_at"`
	EndedAt      time.Time         `json:"ended_at"`
	CreatedAt    time.Time         `json:"created_at"`
}

func (c *Client) toActivity(a apiActivity) *models.Activity {
	likedBy := models.ActorSet{}
	if a.Liked && c.actorID != "" {
		likedBy.Add(c.actorID)
	}
	out := &models.Activity{
		ID:           a.ID,
		OwnerID:      a.OwnerID,
		Title:        a.Title,
		Visibility:   a.Visibility,
		LikeCount:    a.LikeCount,
		LikedBy:      likedBy,
		CommentCount: a.CommentCount,
		StartedAt:    a.StartedAt,
		EndedAt:      a.EndedAt,
		CreatedAt:    a.CreatedAt,
	}
	out.Normalize()
	return out
}

func (c *Client) FetchPublicActivities(ctx context.Context, limit int) ([]*models.Activity, error) {
	var resp struct {
		Activities []apiActivity `json:"activities"`
	}
	path := fmt.Sprintf("/api/feed?limit=%d", limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, false); err != nil {
		return nil, err
	}
	out := make([]*models.Activity, 0, len(resp.Activities))
	for _, a := range resp.Activities {
		out = append(out, c.toActivity(a))
	}
	return out, nil
}

func (c *Client) ToggleLike(ctx context.Context, activityID string) (bool, error) {
	var resp struct {
		Liked     bool `json:"liked"`
		LikeCount int  `json:"like_count"`
	}
	path := fmt.Sprintf("/api/activities/%s/like", activityID)
	if err := c.do(ctx, http.MethodPost, path, nil, &resp, true); err != nil {
		return false, err
	}
	return resp.Liked, nil
}

func (c *Client) AddComment(ctx context.Context, activityID, text, authorName, authorAvatarURL string) (*models.Comment, error) {
	body := map[string]string{
		"text":              text,
		"author_name":       authorName,
		"author_avatar_url": authorAvatarURL,
	}
	var resp models.Comment
	path := fmt.Sprintf("/api/activities/%s/comments", activityID)
	if err := c.do(ctx, http.MethodPost, path, body, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	path := fmt.Sprintf("/api/comments/%s", commentID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, true)
}

func (c *Client) LoadComments(ctx context.Context, activityID string) ([]models.Comment, error) {
	var resp struct {
		Comments []models.Comment `json:"comments"`
	}
	path := fmt.Sprintf("/api/activities/%s/comments", activityID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, false); err != nil {
		return nil, err
	}
	return resp.Comments, nil
}

// do performs one JSON round trip. Writes without a credential are rejected
// locally, matching the backend's behavior without the round trip; public
// reads go out regardless.
func (c *Client) do(ctx context.Context, method, path string, body, out any, write bool) error {
	token := ""
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if write && token == "" {
		return models.NewRejectedError("no credential for write operation")
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.NewRemoteUnavailableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return models.NewRemoteUnavailableError(fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		var apiErr models.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return models.NewRejectedError(apiErr.Error)
		}
		return models.NewRejectedError(fmt.Sprintf("%s %s: status %d", method, path, resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return models.NewRemoteUnavailableError(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
