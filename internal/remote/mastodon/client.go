// Package mastodon implements the remote.Client contract for the
// Mastodon-like backend.
package mastodon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/d60-Lab/unifeed/internal/model"
	"github.com/d60-Lab/unifeed/internal/remote"
)

const maxResponseBytes = 4 << 20

type Client struct {
	baseURL string
	http    *http.Client

	mu       sync.Mutex
	lastRate remote.RateInfo
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Platform() model.Platform { return model.PlatformMastodon }

func (c *Client) LastRate() remote.RateInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRate
}

func (c *Client) LookupUser(ctx context.Context, cred remote.Credentials, remoteID string) (remote.UserPayload, error) {
	var a Account
	path := fmt.Sprintf("/api/v1/accounts/%s", url.PathEscape(remoteID))
	if err := c.do(ctx, cred, http.MethodGet, path, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) Relationship(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	var rels []relationshipDTO
	q := url.Values{"id[]": {remoteID}}
	if err := c.do(ctx, cred, http.MethodGet, "/api/v1/accounts/relationships", q, &rels); err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		return nil, &remote.Error{Kind: remote.ErrSemantic, Message: "relationship not found"}
	}
	return rels[0].toRelationship(), nil
}

func (c *Client) Follow(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	return c.accountAction(ctx, cred, remoteID, "follow")
}

func (c *Client) Unfollow(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	return c.accountAction(ctx, cred, remoteID, "unfollow")
}

func (c *Client) Block(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	return c.accountAction(ctx, cred, remoteID, "block")
}

func (c *Client) Unblock(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	return c.accountAction(ctx, cred, remoteID, "unblock")
}

func (c *Client) Mute(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	return c.accountAction(ctx, cred, remoteID, "mute")
}

func (c *Client) Unmute(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	return c.accountAction(ctx, cred, remoteID, "unmute")
}

// accountAction POST /api/v1/accounts/:id/:action，响应即最新关系
func (c *Client) accountAction(ctx context.Context, cred remote.Credentials, remoteID, action string) (*remote.Relationship, error) {
	var rel relationshipDTO
	path := fmt.Sprintf("/api/v1/accounts/%s/%s", url.PathEscape(remoteID), action)
	if err := c.do(ctx, cred, http.MethodPost, path, nil, &rel); err != nil {
		return nil, err
	}
	return rel.toRelationship(), nil
}

func (c *Client) Like(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error) {
	return c.statusAction(ctx, cred, statusRemoteID, "favourite")
}

func (c *Client) Unlike(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error) {
	return c.statusAction(ctx, cred, statusRemoteID, "unfavourite")
}

func (c *Client) Repost(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error) {
	return c.statusAction(ctx, cred, statusRemoteID, "reblog")
}

func (c *Client) Unrepost(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error) {
	return c.statusAction(ctx, cred, statusRemoteID, "unreblog")
}

func (c *Client) statusAction(ctx context.Context, cred remote.Credentials, statusRemoteID, action string) (remote.StatusPayload, error) {
	var s Status
	path := fmt.Sprintf("/api/v1/statuses/%s/%s", url.PathEscape(statusRemoteID), action)
	if err := c.do(ctx, cred, http.MethodPost, path, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) HomeTimeline(ctx context.Context, cred remote.Credentials, cursor remote.Cursor) (*remote.Page, error) {
	q := url.Values{}
	if cursor.Limit > 0 {
		q.Set("limit", strconv.Itoa(cursor.Limit))
	}
	if cursor.MaxID != "" {
		q.Set("max_id", cursor.MaxID)
	}
	if cursor.SinceID != "" {
		q.Set("since_id", cursor.SinceID)
	}
	var statuses []*Status
	if err := c.do(ctx, cred, http.MethodGet, "/api/v1/timelines/home", q, &statuses); err != nil {
		return nil, err
	}
	page := &remote.Page{Rate: c.LastRate()}
	for _, s := range statuses {
		page.Statuses = append(page.Statuses, s)
	}
	if len(statuses) > 0 {
		page.NextMaxID = statuses[len(statuses)-1].ID
	}
	return page, nil
}

func (c *Client) do(ctx context.Context, cred remote.Credentials, method, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return &remote.Error{Kind: remote.ErrTransport, Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &remote.Error{Kind: remote.ErrTransport, Cause: err}
	}
	defer resp.Body.Close()
	c.captureRate(resp.Header)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &remote.Error{Kind: remote.ErrTransport, Cause: err}
	}

	if resp.StatusCode >= 400 {
		return c.statusError(resp, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		var env errorEnvelope
		if json.Unmarshal(body, &env) == nil && env.ErrorField != "" {
			return &remote.Error{Kind: remote.ErrDecode, StatusCode: resp.StatusCode, Message: env.ErrorField, Cause: err}
		}
		return &remote.Error{Kind: remote.ErrDecode, StatusCode: resp.StatusCode, Cause: err}
	}
	return nil
}

func (c *Client) statusError(resp *http.Response, body []byte) error {
	var env errorEnvelope
	msg := ""
	if json.Unmarshal(body, &env) == nil {
		msg = env.ErrorField
	}
	e := &remote.Error{StatusCode: resp.StatusCode, Message: msg}
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		e.Kind = remote.ErrRateLimited
		if reset := c.LastRate().Reset; !reset.IsZero() {
			e.RetryAfter = time.Until(reset)
		}
	case http.StatusUnauthorized:
		e.Kind = remote.ErrAuthInvalid
	default:
		e.Kind = remote.ErrSemantic
	}
	return e
}

func (c *Client) captureRate(h http.Header) {
	limit, err1 := strconv.Atoi(h.Get("X-RateLimit-Limit"))
	remaining, err2 := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if err1 != nil && err2 != nil {
		return
	}
	info := remote.RateInfo{Limit: limit, Remaining: remaining, ObservedAt: time.Now()}
	if reset, err := time.Parse(time.RFC3339, h.Get("X-RateLimit-Reset")); err == nil {
		info.Reset = reset
	}
	c.mu.Lock()
	c.lastRate = info
	c.mu.Unlock()
}
