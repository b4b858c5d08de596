package twitter

import (
	"time"

	"github.com/d60-Lab/unifeed/internal/model"
	"github.com/d60-Lab/unifeed/internal/remote"
)

const createdAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

// User v1.1 用户对象
type User struct {
	IDStr                string `json:"id_str"`
	ScreenName           string `json:"screen_name"`
	Name                 string `json:"name"`
	Description          string `json:"description"`
	ProfileImageURLHTTPS string `json:"profile_image_url_https"`
	FollowersCountField  int64  `json:"followers_count"`
	FriendsCount         int64  `json:"friends_count"`
	StatusesCountField   int64  `json:"statuses_count"`
	Protected            bool   `json:"protected"`
	Following            *bool  `json:"following"`
	FollowRequestSent    *bool  `json:"follow_request_sent"`
	Muting               *bool  `json:"muting"`
	Blocking             *bool  `json:"blocking"`
}

func (u *User) Identity() model.Identity {
	return model.Identity{Platform: model.PlatformTwitter, RemoteID: u.IDStr}
}
func (u *User) Handle() string        { return u.ScreenName }
func (u *User) DisplayName() string   { return u.Name }
func (u *User) AvatarURL() string     { return u.ProfileImageURLHTTPS }
func (u *User) Bio() string           { return u.Description }
func (u *User) FollowersCount() int64 { return u.FollowersCountField }
func (u *User) FollowingCount() int64 { return u.FriendsCount }
func (u *User) StatusesCount() int64  { return u.StatusesCountField }
func (u *User) Locked() bool          { return u.Protected }

func (u *User) Relationship() (remote.Relationship, bool) {
	if u.Following == nil {
		return remote.Relationship{}, false
	}
	rel := remote.Relationship{Target: u.Identity(), Following: *u.Following}
	if u.FollowRequestSent != nil {
		rel.Pending = *u.FollowRequestSent
	}
	if u.Muting != nil {
		rel.Muting = *u.Muting
	}
	if u.Blocking != nil {
		rel.Blocking = *u.Blocking
	}
	return rel, true
}

// Tweet v1.1 推文对象；retweeted_status/quoted_status 嵌套完整推文
type Tweet struct {
	IDStr             string `json:"id_str"`
	CreatedAtStr      string `json:"created_at"`
	FullText          string `json:"full_text"`
	Text              string `json:"text"`
	FavoriteCount     int64  `json:"favorite_count"`
	RetweetCountField int64  `json:"retweet_count"`
	Favorited         bool   `json:"favorited"`
	Retweeted         bool   `json:"retweeted"`
	User              *User  `json:"user"`
	RetweetedStatus   *Tweet `json:"retweeted_status"`
	QuotedStatus      *Tweet `json:"quoted_status"`
}

func (t *Tweet) Identity() model.Identity {
	return model.Identity{Platform: model.PlatformTwitter, RemoteID: t.IDStr}
}

func (t *Tweet) Author() remote.UserPayload {
	if t.User == nil {
		return nil
	}
	return t.User
}

func (t *Tweet) Body() string {
	if t.FullText != "" {
		return t.FullText
	}
	return t.Text
}

func (t *Tweet) PostedAt() time.Time {
	ts, err := time.Parse(createdAtLayout, t.CreatedAtStr)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func (t *Tweet) LikeCount() int64   { return t.FavoriteCount }
func (t *Tweet) RepostCount() int64 { return t.RetweetCountField }

func (t *Tweet) LikedByViewer() (bool, bool)    { return t.Favorited, true }
func (t *Tweet) RepostedByViewer() (bool, bool) { return t.Retweeted, true }

func (t *Tweet) RepostOf() remote.StatusPayload {
	if t.RetweetedStatus == nil {
		return nil
	}
	return t.RetweetedStatus
}

func (t *Tweet) QuoteOf() remote.StatusPayload {
	if t.QuotedStatus == nil {
		return nil
	}
	return t.QuotedStatus
}

// v1.1 推文不携带投票实体
func (t *Tweet) Poll() remote.PollPayload { return nil }

// errorEnvelope v1.1 错误包裹 {"errors":[{"code":..,"message":..}]}
type errorEnvelope struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (e *errorEnvelope) message() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Message
}
