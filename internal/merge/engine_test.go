package merge

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/unifeed/internal/model"
	"github.com/d60-Lab/unifeed/internal/remote"
	"github.com/d60-Lab/unifeed/internal/remote/remotetest"
	"github.com/d60-Lab/unifeed/pkg/database"
)

func setupMergeDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func mastoIdentity(remoteID string) model.Identity {
	return model.Identity{Platform: model.PlatformMastodon, Domain: "example.social", RemoteID: remoteID}
}

func TestMergeUserCreateThenUpdate(t *testing.T) {
	db := setupMergeDB(t)
	e := NewEngine()
	ctx := context.Background()

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := &remotetest.User{ID: mastoIdentity("u1"), UserHandle: "alice", Name: "Alice", Followers: 10}

	u, created, err := e.MergeUser(ctx, db, "acct-1", payload, t0)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "alice", u.Handle)
	require.Equal(t, int64(10), u.FollowersCount)
	require.Equal(t, t0, u.LastUpdated.UTC())

	// newer timestamp wins
	payload.Name = "Alice v2"
	payload.Followers = 11
	u2, created, err := e.MergeUser(ctx, db, "acct-1", payload, t0.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, u.ID, u2.ID)
	require.Equal(t, "Alice v2", u2.DisplayName)
	require.Equal(t, int64(11), u2.FollowersCount)
}

func TestMergeUserStaleAndTieSkipContent(t *testing.T) {
	db := setupMergeDB(t)
	e := NewEngine()
	ctx := context.Background()

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := &remotetest.User{ID: mastoIdentity("u1"), UserHandle: "alice", Name: "Alice"}
	_, _, err := e.MergeUser(ctx, db, "acct-1", payload, t0)
	require.NoError(t, err)

	// identical timestamp counts as not-newer: no content change
	payload.Name = "should not land"
	u, created, err := e.MergeUser(ctx, db, "acct-1", payload, t0)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "Alice", u.DisplayName)

	// older timestamp likewise
	u, _, err = e.MergeUser(ctx, db, "acct-1", payload, t0.Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, "Alice", u.DisplayName)
}

func TestMergeUserSeedsEmbeddedRelationship(t *testing.T) {
	db := setupMergeDB(t)
	e := NewEngine()
	ctx := context.Background()

	payload := &remotetest.User{
		ID:         mastoIdentity("u1"),
		UserHandle: "alice",
		Rel:        &remote.Relationship{Following: true, FollowedBy: true},
	}
	u, created, err := e.MergeUser(ctx, db, "acct-1", payload, time.Now())
	require.NoError(t, err)
	require.True(t, created)
	require.True(t, u.IsFollowing)
	require.True(t, u.IsFollowedBy)
}

func TestMergeStatusNestedEntities(t *testing.T) {
	db := setupMergeDB(t)
	e := NewEngine()
	ctx := context.Background()

	author := &remotetest.User{ID: mastoIdentity("author"), UserHandle: "alice"}
	expires := time.Now().Add(time.Hour)
	payload := &remotetest.Status{
		ID:     mastoIdentity("s-outer"),
		ByUser: author,
		Text:   "look at this",
		At:     time.Now().Add(-time.Minute),
		Retweet: &remotetest.Status{
			ID:     mastoIdentity("s-reposted"),
			ByUser: author,
			Text:   "original",
			At:     time.Now().Add(-time.Hour),
			Quote: &remotetest.Status{
				ID:     mastoIdentity("s-quoted"),
				ByUser: author,
				Text:   "quoted",
				At:     time.Now().Add(-2 * time.Hour),
			},
		},
		PollData: &remotetest.Poll{
			ID:      mastoIdentity("p1"),
			Opts:    []model.PollOption{{Label: "yes", Votes: 3}, {Label: "no", Votes: 1}},
			Votes:   4,
			Expires: &expires,
		},
	}

	s, created, err := e.MergeStatus(ctx, db, "acct-1", payload, time.Now())
	require.NoError(t, err)
	require.True(t, created)
	require.NotEmpty(t, s.AuthorID)
	require.NotNil(t, s.RepostOfID)
	require.NotNil(t, s.PollID)

	var inner model.Status
	require.NoError(t, db.Where("id = ?", *s.RepostOfID).First(&inner).Error)
	require.Equal(t, "s-reposted", inner.RemoteID)
	require.NotNil(t, inner.QuoteOfID)

	var quoted model.Status
	require.NoError(t, db.Where("id = ?", *inner.QuoteOfID).First(&quoted).Error)
	require.Equal(t, "quoted", quoted.Body)

	// author merged once, shared by all three
	var count int64
	require.NoError(t, db.Model(&model.User{}).Where("remote_id = ?", "author").Count(&count).Error)
	require.Equal(t, int64(1), count)
	require.Equal(t, s.AuthorID, inner.AuthorID)

	var poll model.Poll
	require.NoError(t, db.Where("id = ?", *s.PollID).First(&poll).Error)
	require.Equal(t, int64(4), poll.VotesCount)
	require.Len(t, poll.Options, 2)
}

func TestMergeStatusSharedRepostTarget(t *testing.T) {
	db := setupMergeDB(t)
	e := NewEngine()
	ctx := context.Background()

	original := &remotetest.Status{ID: mastoIdentity("orig"), Text: "original", At: time.Now().Add(-time.Hour)}
	a := &remotetest.Status{ID: mastoIdentity("ra"), Text: "rt a", At: time.Now(), Retweet: original}
	b := &remotetest.Status{ID: mastoIdentity("rb"), Text: "rt b", At: time.Now(), Retweet: original}

	sa, _, err := e.MergeStatus(ctx, db, "acct-1", a, time.Now())
	require.NoError(t, err)
	sb, _, err := e.MergeStatus(ctx, db, "acct-1", b, time.Now().Add(time.Second))
	require.NoError(t, err)

	// both reposts reference the same local row
	require.Equal(t, *sa.RepostOfID, *sb.RepostOfID)
	var count int64
	require.NoError(t, db.Model(&model.Status{}).Where("remote_id = ?", "orig").Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestMergeStatusDepthCap(t *testing.T) {
	db := setupMergeDB(t)
	e := NewEngine()
	ctx := context.Background()

	var chain *remotetest.Status
	for i := MaxDepth + 1; i >= 0; i-- {
		chain = &remotetest.Status{
			ID:      mastoIdentity(fmt.Sprintf("deep-%d", i)),
			Text:    "x",
			At:      time.Now(),
			Retweet: chain,
		}
	}

	_, _, err := e.MergeStatus(ctx, db, "acct-1", chain, time.Now())
	require.ErrorIs(t, err, ErrMergeDepth)
}

func TestMergeStatusMissingNestedTolerated(t *testing.T) {
	db := setupMergeDB(t)
	e := NewEngine()
	ctx := context.Background()

	payload := &remotetest.Status{ID: mastoIdentity("bare"), Text: "no author attached", At: time.Now()}
	s, created, err := e.MergeStatus(ctx, db, "acct-1", payload, time.Now())
	require.NoError(t, err)
	require.True(t, created)
	require.Empty(t, s.AuthorID)
	require.Nil(t, s.RepostOfID)
	require.Nil(t, s.PollID)
}

func TestMergeStatusViewerFlagsBypassGate(t *testing.T) {
	db := setupMergeDB(t)
	e := NewEngine()
	ctx := context.Background()

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := &remotetest.Status{ID: mastoIdentity("s1"), Text: "body v1", At: t0, Likes: 5}
	_, _, err := e.MergeStatus(ctx, db, "acct-1", payload, t0)
	require.NoError(t, err)

	// stale response, but it carries the viewer flag
	stale := &remotetest.Status{ID: mastoIdentity("s1"), Text: "body should not land", At: t0, Likes: 99, Liked: true, LikedOK: true}
	s, created, err := e.MergeStatus(ctx, db, "acct-1", stale, t0.Add(-time.Minute))
	require.NoError(t, err)
	require.False(t, created)
	require.True(t, s.LikedByMe)
	require.Equal(t, "body v1", s.Body)
	require.Equal(t, int64(5), s.LikeCount)

	// flag persisted, not just on the returned struct
	var row model.Status
	require.NoError(t, db.Where("id = ?", s.ID).First(&row).Error)
	require.True(t, row.LikedByMe)
}

func TestMergeStatusViewerFlagAbsentLeavesLocal(t *testing.T) {
	db := setupMergeDB(t)
	e := NewEngine()
	ctx := context.Background()

	t0 := time.Now().Add(-time.Hour)
	first := &remotetest.Status{ID: mastoIdentity("s1"), Text: "v1", At: t0, Liked: true, LikedOK: true}
	_, _, err := e.MergeStatus(ctx, db, "acct-1", first, t0)
	require.NoError(t, err)

	// newer content without the viewer flag: content lands, flag keeps local value
	second := &remotetest.Status{ID: mastoIdentity("s1"), Text: "v2", At: t0}
	s, _, err := e.MergeStatus(ctx, db, "acct-1", second, t0.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, "v2", s.Body)
	require.True(t, s.LikedByMe)
}

func TestMergePageKeepsOrder(t *testing.T) {
	db := setupMergeDB(t)
	e := NewEngine()
	ctx := context.Background()

	page := &remote.Page{Statuses: []remote.StatusPayload{
		&remotetest.Status{ID: mastoIdentity("10"), Text: "10", At: time.Now()},
		&remotetest.Status{ID: mastoIdentity("9"), Text: "9", At: time.Now().Add(-time.Minute)},
		&remotetest.Status{ID: mastoIdentity("8"), Text: "8", At: time.Now().Add(-2 * time.Minute)},
	}}

	out, err := e.MergePage(ctx, db, "acct-1", page, time.Now())
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, "10", out[0].RemoteID)
	require.Equal(t, "8", out[2].RemoteID)
}

func TestUpdateRelationshipUngated(t *testing.T) {
	db := setupMergeDB(t)
	e := NewEngine()
	ctx := context.Background()

	// first sight creates a skeleton row
	rel := remote.Relationship{Target: mastoIdentity("u1"), Following: true}
	u, created, err := e.UpdateRelationship(ctx, db, "acct-1", rel)
	require.NoError(t, err)
	require.True(t, created)
	require.True(t, u.IsFollowing)
	require.Empty(t, u.Handle)

	// content merge stamps a future LastUpdated; relationship still lands after
	future := time.Now().Add(time.Hour)
	payload := &remotetest.User{ID: mastoIdentity("u1"), UserHandle: "alice"}
	_, _, err = e.MergeUser(ctx, db, "acct-1", payload, future)
	require.NoError(t, err)

	rel.Following = false
	rel.Muting = true
	u, created, err = e.UpdateRelationship(ctx, db, "acct-1", rel)
	require.NoError(t, err)
	require.False(t, created)
	require.False(t, u.IsFollowing)
	require.True(t, u.IsMuting)
}

func TestUpdateRelationshipBlockingClearsFollow(t *testing.T) {
	db := setupMergeDB(t)
	e := NewEngine()
	ctx := context.Background()

	rel := remote.Relationship{Target: mastoIdentity("u1"), Following: true, Blocking: true, Pending: true}
	u, _, err := e.UpdateRelationship(ctx, db, "acct-1", rel)
	require.NoError(t, err)
	require.True(t, u.IsBlocking)
	require.False(t, u.IsFollowing)
	require.False(t, u.IsFollowRequestPending)
}

func TestMergeUserIsolatedPerAccount(t *testing.T) {
	db := setupMergeDB(t)
	e := NewEngine()
	ctx := context.Background()

	payload := &remotetest.User{ID: mastoIdentity("u1"), UserHandle: "alice"}
	a, _, err := e.MergeUser(ctx, db, "acct-1", payload, time.Now())
	require.NoError(t, err)
	b, _, err := e.MergeUser(ctx, db, "acct-2", payload, time.Now())
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)
}
