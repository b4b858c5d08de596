package mastodon

import (
	"strings"
	"time"

	"github.com/d60-Lab/unifeed/internal/model"
	"github.com/d60-Lab/unifeed/internal/remote"
)

// Account /api/v1/accounts 实体；acct 形如 "user" 或 "user@example.social"
type Account struct {
	ID                  string `json:"id"`
	Acct                string `json:"acct"`
	Username            string `json:"username"`
	DisplayNameField    string `json:"display_name"`
	Avatar              string `json:"avatar"`
	Note                string `json:"note"`
	FollowersCountField int64  `json:"followers_count"`
	FollowingCountField int64  `json:"following_count"`
	StatusesCountField  int64  `json:"statuses_count"`
	LockedField         bool   `json:"locked"`
}

func (a *Account) domain() string {
	if i := strings.IndexByte(a.Acct, '@'); i >= 0 {
		return a.Acct[i+1:]
	}
	return ""
}

func (a *Account) Identity() model.Identity {
	return model.Identity{Platform: model.PlatformMastodon, Domain: a.domain(), RemoteID: a.ID}
}
func (a *Account) Handle() string        { return a.Acct }
func (a *Account) DisplayName() string   { return a.DisplayNameField }
func (a *Account) AvatarURL() string     { return a.Avatar }
func (a *Account) Bio() string           { return a.Note }
func (a *Account) FollowersCount() int64 { return a.FollowersCountField }
func (a *Account) FollowingCount() int64 { return a.FollowingCountField }
func (a *Account) StatusesCount() int64  { return a.StatusesCountField }
func (a *Account) Locked() bool          { return a.LockedField }

// 账号实体不内嵌 viewer 关系，关系走 /accounts/relationships
func (a *Account) Relationship() (remote.Relationship, bool) {
	return remote.Relationship{}, false
}

// Poll 投票实体
type Poll struct {
	ID              string     `json:"id"`
	ExpiresAtField  *time.Time `json:"expires_at"`
	Voted           bool       `json:"voted"`
	VotesCountField int64      `json:"votes_count"`
	OptionsField    []struct {
		Title      string `json:"title"`
		VotesCount int64  `json:"votes_count"`
	} `json:"options"`
}

func (p *Poll) Identity() model.Identity {
	return model.Identity{Platform: model.PlatformMastodon, RemoteID: p.ID}
}

func (p *Poll) Options() []model.PollOption {
	opts := make([]model.PollOption, 0, len(p.OptionsField))
	for _, o := range p.OptionsField {
		opts = append(opts, model.PollOption{Label: o.Title, Votes: o.VotesCount})
	}
	return opts
}

func (p *Poll) VotesCount() int64     { return p.VotesCountField }
func (p *Poll) VotedByViewer() bool   { return p.Voted }
func (p *Poll) ExpiresAt() *time.Time { return p.ExpiresAtField }

// Status /api/v1/statuses 实体；reblog 嵌套完整实体，quote 为部分
// fork 扩展（缺省为 nil，merge 侧容忍缺失）。
type Status struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	Content         string    `json:"content"`
	FavouritesCount int64     `json:"favourites_count"`
	ReblogsCount    int64     `json:"reblogs_count"`
	Favourited      *bool     `json:"favourited"`
	Reblogged       *bool     `json:"reblogged"`
	AccountField    *Account  `json:"account"`
	Reblog          *Status   `json:"reblog"`
	Quote           *Status   `json:"quote"`
	PollField       *Poll     `json:"poll"`
}

func (s *Status) Identity() model.Identity {
	domain := ""
	if s.AccountField != nil {
		domain = s.AccountField.domain()
	}
	return model.Identity{Platform: model.PlatformMastodon, Domain: domain, RemoteID: s.ID}
}

func (s *Status) Author() remote.UserPayload {
	if s.AccountField == nil {
		return nil
	}
	return s.AccountField
}

func (s *Status) Body() string        { return s.Content }
func (s *Status) PostedAt() time.Time { return s.CreatedAt }
func (s *Status) LikeCount() int64    { return s.FavouritesCount }
func (s *Status) RepostCount() int64  { return s.ReblogsCount }

func (s *Status) LikedByViewer() (bool, bool) {
	if s.Favourited == nil {
		return false, false
	}
	return *s.Favourited, true
}

func (s *Status) RepostedByViewer() (bool, bool) {
	if s.Reblogged == nil {
		return false, false
	}
	return *s.Reblogged, true
}

func (s *Status) RepostOf() remote.StatusPayload {
	if s.Reblog == nil {
		return nil
	}
	return s.Reblog
}

func (s *Status) QuoteOf() remote.StatusPayload {
	if s.Quote == nil {
		return nil
	}
	return s.Quote
}

func (s *Status) Poll() remote.PollPayload {
	if s.PollField == nil {
		return nil
	}
	return s.PollField
}

// relationshipDTO /api/v1/accounts/relationships 元素
type relationshipDTO struct {
	ID         string `json:"id"`
	Following  bool   `json:"following"`
	FollowedBy bool   `json:"followed_by"`
	Requested  bool   `json:"requested"`
	Blocking   bool   `json:"blocking"`
	BlockedBy  bool   `json:"blocked_by"`
	Muting     bool   `json:"muting"`
}

func (r *relationshipDTO) toRelationship() *remote.Relationship {
	return &remote.Relationship{
		Target:     model.Identity{Platform: model.PlatformMastodon, RemoteID: r.ID},
		Following:  r.Following,
		FollowedBy: r.FollowedBy,
		Pending:    r.Requested,
		Blocking:   r.Blocking,
		BlockedBy:  r.BlockedBy,
		Muting:     r.Muting,
	}
}

// errorEnvelope {"error": "..."}
type errorEnvelope struct {
	ErrorField string `json:"error"`
}
