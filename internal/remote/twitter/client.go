// Package twitter implements the remote.Client contract for the Twitter-like
// backend (v1.1-style REST surface).
package twitter

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

func (c *Client) Platform() model.Platform { return model.PlatformTwitter }

func (c *Client) LastRate() remote.RateInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRate
}

func (c *Client) LookupUser(ctx context.Context, cred remote.Credentials, remoteID string) (remote.UserPayload, error) {
	var u User
	q := url.Values{"user_id": {remoteID}}
	if err := c.do(ctx, cred, http.MethodGet, "/1.1/users/show.json", q, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Relationship(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	// friendships/show 的 source 侧即 viewer 视角
	var out struct {
		Relationship struct {
			Source struct {
				Following          bool `json:"following"`
				FollowedBy         bool `json:"followed_by"`
				FollowingRequested bool `json:"following_requested"`
				Blocking           bool `json:"blocking"`
				BlockedBy          bool `json:"blocked_by"`
				Muting             bool `json:"muting"`
			} `json:"source"`
		} `json:"relationship"`
	}
	q := url.Values{"target_id": {remoteID}}
	if err := c.do(ctx, cred, http.MethodGet, "/1.1/friendships/show.json", q, &out); err != nil {
		return nil, err
	}
	s := out.Relationship.Source
	return &remote.Relationship{
		Target:     model.Identity{Platform: model.PlatformTwitter, RemoteID: remoteID},
		Following:  s.Following,
		FollowedBy: s.FollowedBy,
		Pending:    s.FollowingRequested,
		Blocking:   s.Blocking,
		BlockedBy:  s.BlockedBy,
		Muting:     s.Muting,
	}, nil
}

func (c *Client) Follow(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	return c.userAction(ctx, cred, "/1.1/friendships/create.json", remoteID, nil)
}

func (c *Client) Unfollow(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	return c.userAction(ctx, cred, "/1.1/friendships/destroy.json", remoteID, func(rel *remote.Relationship) {
		rel.Following = false
		rel.Pending = false
	})
}

func (c *Client) Block(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	return c.userAction(ctx, cred, "/1.1/blocks/create.json", remoteID, func(rel *remote.Relationship) {
		rel.Blocking = true
		rel.Following = false
		rel.Pending = false
	})
}

func (c *Client) Unblock(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	return c.userAction(ctx, cred, "/1.1/blocks/destroy.json", remoteID, func(rel *remote.Relationship) {
		rel.Blocking = false
	})
}

func (c *Client) Mute(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	return c.userAction(ctx, cred, "/1.1/mutes/users/create.json", remoteID, func(rel *remote.Relationship) {
		rel.Muting = true
	})
}

func (c *Client) Unmute(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	return c.userAction(ctx, cred, "/1.1/mutes/users/destroy.json", remoteID, func(rel *remote.Relationship) {
		rel.Muting = false
	})
}

// userAction 发起以用户为目标的写操作；v1.1 返回目标用户对象，
// 从中归一出 Relationship，normalize 补齐响应不携带的标志位。
func (c *Client) userAction(ctx context.Context, cred remote.Credentials, path, remoteID string, normalize func(*remote.Relationship)) (*remote.Relationship, error) {
	var u User
	q := url.Values{"user_id": {remoteID}}
	if err := c.do(ctx, cred, http.MethodPost, path, q, &u); err != nil {
		return nil, err
	}
	rel, ok := u.Relationship()
	if !ok {
		rel = remote.Relationship{Target: u.Identity()}
	}
	if normalize != nil {
		normalize(&rel)
	}
	return &rel, nil
}

func (c *Client) Like(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error) {
	return c.statusAction(ctx, cred, "/1.1/favorites/create.json", statusRemoteID)
}

func (c *Client) Unlike(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error) {
	return c.statusAction(ctx, cred, "/1.1/favorites/destroy.json", statusRemoteID)
}

func (c *Client) Repost(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error) {
	return c.statusPathAction(ctx, cred, fmt.Sprintf("/1.1/statuses/retweet/%s.json", statusRemoteID))
}

func (c *Client) Unrepost(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error) {
	return c.statusPathAction(ctx, cred, fmt.Sprintf("/1.1/statuses/unretweet/%s.json", statusRemoteID))
}

func (c *Client) statusAction(ctx context.Context, cred remote.Credentials, path, statusRemoteID string) (remote.StatusPayload, error) {
	var t Tweet
	q := url.Values{"id": {statusRemoteID}}
	if err := c.do(ctx, cred, http.MethodPost, path, q, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) statusPathAction(ctx context.Context, cred remote.Credentials, path string) (remote.StatusPayload, error) {
	var t Tweet
	if err := c.do(ctx, cred, http.MethodPost, path, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) HomeTimeline(ctx context.Context, cred remote.Credentials, cursor remote.Cursor) (*remote.Page, error) {
	q := url.Values{"tweet_mode": {"extended"}}
	if cursor.Limit > 0 {
		q.Set("count", strconv.Itoa(cursor.Limit))
	}
	if cursor.MaxID != "" {
		q.Set("max_id", cursor.MaxID)
	}
	if cursor.SinceID != "" {
		q.Set("since_id", cursor.SinceID)
	}
	var tweets []*Tweet
	if err := c.do(ctx, cred, http.MethodGet, "/1.1/statuses/home_timeline.json", q, &tweets); err != nil {
		return nil, err
	}
	page := &remote.Page{Rate: c.LastRate()}
	for _, t := range tweets {
		page.Statuses = append(page.Statuses, t)
	}
	if len(tweets) > 0 {
		page.NextMaxID = tweets[len(tweets)-1].IDStr
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
		// 二次解码错误包裹，尽量带出人类可读原因
		var env errorEnvelope
		if json.Unmarshal(body, &env) == nil && env.message() != "" {
			return &remote.Error{Kind: remote.ErrDecode, StatusCode: resp.StatusCode, Message: env.message(), Cause: err}
		}
		return &remote.Error{Kind: remote.ErrDecode, StatusCode: resp.StatusCode, Cause: err}
	}
	return nil
}

func (c *Client) statusError(resp *http.Response, body []byte) error {
	var env errorEnvelope
	msg := ""
	if json.Unmarshal(body, &env) == nil {
		msg = env.message()
	}
	e := &remote.Error{StatusCode: resp.StatusCode, Message: msg}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		e.Kind = remote.ErrRateLimited
		if reset := c.LastRate().Reset; !reset.IsZero() {
			e.RetryAfter = time.Until(reset)
		}
	case resp.StatusCode == http.StatusUnauthorized:
		e.Kind = remote.ErrAuthInvalid
	default:
		e.Kind = remote.ErrSemantic
	}
	return e
}

func (c *Client) captureRate(h http.Header) {
	limit, err1 := strconv.Atoi(h.Get("x-rate-limit-limit"))
	remaining, err2 := strconv.Atoi(h.Get("x-rate-limit-remaining"))
	if err1 != nil && err2 != nil {
		return
	}
	info := remote.RateInfo{Limit: limit, Remaining: remaining, ObservedAt: time.Now()}
	if resetSec, err := strconv.ParseInt(h.Get("x-rate-limit-reset"), 10, 64); err == nil {
		info.Reset = time.Unix(resetSec, 0)
	}
	c.mu.Lock()
	c.lastRate = info
	c.mu.Unlock()
}
