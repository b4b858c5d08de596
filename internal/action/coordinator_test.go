package action

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/unifeed/internal/merge"
	"github.com/d60-Lab/unifeed/internal/model"
	"github.com/d60-Lab/unifeed/internal/remote"
	"github.com/d60-Lab/unifeed/internal/remote/remotetest"
	"github.com/d60-Lab/unifeed/internal/store"
	"github.com/d60-Lab/unifeed/pkg/database"
)

const (
	testAccountID = "acct-1"
	testDomain    = "example.social"
)

type staticCreds struct{}

func (staticCreds) Credentials(ctx context.Context, account *model.Account) (remote.Credentials, error) {
	return remote.Credentials{AccessToken: "tok"}, nil
}

type recordingInvalidator struct {
	calls []string
}

func (r *recordingInvalidator) InvalidateRelationship(ctx context.Context, accountID, userID string) {
	r.calls = append(r.calls, accountID+"|"+userID)
}

type fixture struct {
	db     *gorm.DB
	client *remotetest.Client
	inval  *recordingInvalidator
	coord  *Coordinator
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	require.NoError(t, db.Create(&model.Account{
		ID: testAccountID, Platform: model.PlatformMastodon, Domain: testDomain, RemoteID: "me",
	}).Error)

	client := &remotetest.Client{On: model.PlatformMastodon}
	inval := &recordingInvalidator{}
	coord := NewCoordinator(
		store.New(db, nil),
		merge.NewEngine(),
		map[model.Platform]remote.Client{model.PlatformMastodon: client},
		staticCreds{},
		inval,
	)
	return &fixture{db: db, client: client, inval: inval, coord: coord}
}

func (f *fixture) seedUser(t *testing.T, u model.User) *model.User {
	t.Helper()
	if u.ID == "" {
		u.ID = "u-" + u.RemoteID
	}
	u.AccountID = testAccountID
	u.Platform = model.PlatformMastodon
	u.Domain = testDomain
	require.NoError(t, f.db.Create(&u).Error)
	return &u
}

func (f *fixture) seedStatus(t *testing.T, s model.Status) *model.Status {
	t.Helper()
	if s.ID == "" {
		s.ID = "s-" + s.RemoteID
	}
	s.AccountID = testAccountID
	s.Platform = model.PlatformMastodon
	s.Domain = testDomain
	if s.PostedAt.IsZero() {
		s.PostedAt = time.Now().Add(-time.Hour)
	}
	require.NoError(t, f.db.Create(&s).Error)
	return &s
}

func (f *fixture) reloadUser(t *testing.T, id string) *model.User {
	t.Helper()
	var u model.User
	require.NoError(t, f.db.Where("id = ?", id).First(&u).Error)
	return &u
}

func (f *fixture) reloadStatus(t *testing.T, id string) *model.Status {
	t.Helper()
	var s model.Status
	require.NoError(t, f.db.Where("id = ?", id).First(&s).Error)
	return &s
}

func TestToggleFollowConfirmed(t *testing.T) {
	f := setupFixture(t)
	target := f.seedUser(t, model.User{RemoteID: "target", FollowersCount: 10})

	var calledID string
	f.client.FollowFn = func(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
		calledID = remoteID
		return &remote.Relationship{Following: true}, nil
	}

	require.NoError(t, f.coord.ToggleFollow(context.Background(), testAccountID, target.ID))
	require.Equal(t, "target", calledID)

	got := f.reloadUser(t, target.ID)
	require.True(t, got.IsFollowing)
	require.Equal(t, []string{testAccountID + "|" + target.ID}, f.inval.calls)
}

func TestToggleFollowLockedTargetPending(t *testing.T) {
	f := setupFixture(t)
	target := f.seedUser(t, model.User{RemoteID: "target", Locked: true})

	f.client.FollowFn = func(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
		return &remote.Relationship{Pending: true}, nil
	}

	require.NoError(t, f.coord.ToggleFollow(context.Background(), testAccountID, target.ID))
	got := f.reloadUser(t, target.ID)
	require.False(t, got.IsFollowing)
	require.True(t, got.IsFollowRequestPending)
}

func TestToggleFollowRemoteFailureRestoresSnapshot(t *testing.T) {
	f := setupFixture(t)
	target := f.seedUser(t, model.User{
		RemoteID: "target", FollowersCount: 10,
		IsFollowedBy: true, IsMuting: true,
	})

	wantErr := &remote.Error{Kind: remote.ErrTransport, Message: "connection reset"}
	f.client.FollowFn = func(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
		return nil, wantErr
	}

	err := f.coord.ToggleFollow(context.Background(), testAccountID, target.ID)
	require.ErrorIs(t, err, wantErr)

	got := f.reloadUser(t, target.ID)
	require.False(t, got.IsFollowing)
	require.False(t, got.IsFollowRequestPending)
	require.True(t, got.IsFollowedBy)
	require.True(t, got.IsMuting)
	require.Equal(t, int64(10), got.FollowersCount)
}

func TestToggleFollowUndo(t *testing.T) {
	f := setupFixture(t)
	target := f.seedUser(t, model.User{RemoteID: "target", IsFollowing: true, FollowersCount: 10})

	unfollowed := false
	f.client.UnfollowFn = func(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
		unfollowed = true
		return &remote.Relationship{}, nil
	}

	require.NoError(t, f.coord.ToggleFollow(context.Background(), testAccountID, target.ID))
	require.True(t, unfollowed)
	require.False(t, f.reloadUser(t, target.ID).IsFollowing)
}

func TestToggleFollowCancelPendingKeepsFollowerCount(t *testing.T) {
	f := setupFixture(t)
	target := f.seedUser(t, model.User{
		RemoteID: "target", Locked: true,
		IsFollowRequestPending: true, FollowersCount: 10,
	})

	f.client.UnfollowFn = func(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
		return &remote.Relationship{}, nil
	}

	require.NoError(t, f.coord.ToggleFollow(context.Background(), testAccountID, target.ID))
	got := f.reloadUser(t, target.ID)
	require.False(t, got.IsFollowRequestPending)
	// the pending request never bumped the count, cancelling must not drop it
	require.Equal(t, int64(10), got.FollowersCount)
}

func TestToggleBlockClearsFollow(t *testing.T) {
	f := setupFixture(t)
	target := f.seedUser(t, model.User{RemoteID: "target", IsFollowing: true})

	f.client.BlockFn = func(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
		return &remote.Relationship{Blocking: true}, nil
	}

	require.NoError(t, f.coord.ToggleBlock(context.Background(), testAccountID, target.ID))
	got := f.reloadUser(t, target.ID)
	require.True(t, got.IsBlocking)
	require.False(t, got.IsFollowing)
}

func TestToggleMute(t *testing.T) {
	f := setupFixture(t)
	target := f.seedUser(t, model.User{RemoteID: "target"})

	f.client.MuteFn = func(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
		return &remote.Relationship{Muting: true}, nil
	}

	require.NoError(t, f.coord.ToggleMute(context.Background(), testAccountID, target.ID))
	require.True(t, f.reloadUser(t, target.ID).IsMuting)
}

func TestActionAbortsBeforeRemoteCall(t *testing.T) {
	f := setupFixture(t)

	called := false
	f.client.FollowFn = func(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
		called = true
		return &remote.Relationship{}, nil
	}

	err := f.coord.ToggleFollow(context.Background(), testAccountID, "no-such-user")
	require.ErrorIs(t, err, ErrTargetMissing)
	require.False(t, called)

	target := f.seedUser(t, model.User{RemoteID: "target"})
	err = f.coord.ToggleFollow(context.Background(), "no-such-account", target.ID)
	require.ErrorIs(t, err, ErrActorMissing)
	require.False(t, called)
}

func TestActionRejectsSelf(t *testing.T) {
	f := setupFixture(t)
	self := f.seedUser(t, model.User{RemoteID: "me"})

	err := f.coord.ToggleFollow(context.Background(), testAccountID, self.ID)
	require.ErrorIs(t, err, ErrSelfAction)
}

func TestActionRejectsForeignTarget(t *testing.T) {
	f := setupFixture(t)
	other := model.User{ID: "u-x", AccountID: "acct-other", Platform: model.PlatformMastodon, Domain: testDomain, RemoteID: "x"}
	require.NoError(t, f.db.Create(&other).Error)

	err := f.coord.ToggleFollow(context.Background(), testAccountID, other.ID)
	require.ErrorIs(t, err, ErrTargetMissing)
}

func TestToggleLikeConfirmed(t *testing.T) {
	f := setupFixture(t)
	s := f.seedStatus(t, model.Status{RemoteID: "s1", Body: "hello", LikeCount: 5})

	f.client.LikeFn = func(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error) {
		return &remotetest.Status{
			ID:    model.Identity{Platform: model.PlatformMastodon, Domain: testDomain, RemoteID: "s1"},
			Text:  "hello",
			At:    time.Now().Add(-time.Hour),
			Likes: 6, Liked: true, LikedOK: true,
		}, nil
	}

	require.NoError(t, f.coord.ToggleLike(context.Background(), testAccountID, s.ID))
	got := f.reloadStatus(t, s.ID)
	require.True(t, got.LikedByMe)
	require.Equal(t, int64(6), got.LikeCount)
}

func TestToggleLikeRemoteFailureRollsBack(t *testing.T) {
	f := setupFixture(t)
	s := f.seedStatus(t, model.Status{RemoteID: "s1", LikeCount: 5})

	wantErr := &remote.Error{Kind: remote.ErrRateLimited, Message: "slow down"}
	f.client.LikeFn = func(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error) {
		return nil, wantErr
	}

	err := f.coord.ToggleLike(context.Background(), testAccountID, s.ID)
	require.ErrorIs(t, err, wantErr)

	got := f.reloadStatus(t, s.ID)
	require.False(t, got.LikedByMe)
	require.Equal(t, int64(5), got.LikeCount)
}

func TestToggleLikeUndoCapsLaggingServerCount(t *testing.T) {
	f := setupFixture(t)
	s := f.seedStatus(t, model.Status{RemoteID: "s1", LikeCount: 6, LikedByMe: true})

	// server hasn't caught up with the decrement yet
	f.client.UnlikeFn = func(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error) {
		return &remotetest.Status{
			ID:    model.Identity{Platform: model.PlatformMastodon, Domain: testDomain, RemoteID: "s1"},
			At:    time.Now().Add(-time.Hour),
			Likes: 6, Liked: false, LikedOK: true,
		}, nil
	}

	require.NoError(t, f.coord.ToggleLike(context.Background(), testAccountID, s.ID))
	got := f.reloadStatus(t, s.ID)
	require.False(t, got.LikedByMe)
	require.Equal(t, int64(5), got.LikeCount)
}

func TestToggleRepostConfirmed(t *testing.T) {
	f := setupFixture(t)
	s := f.seedStatus(t, model.Status{RemoteID: "s1", RepostCount: 2})

	f.client.RepostFn = func(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error) {
		return &remotetest.Status{
			ID:      model.Identity{Platform: model.PlatformMastodon, Domain: testDomain, RemoteID: "s1"},
			At:      time.Now().Add(-time.Hour),
			Reposts: 3, Reposted: true, RepostedOK: true,
		}, nil
	}

	require.NoError(t, f.coord.ToggleRepost(context.Background(), testAccountID, s.ID))
	got := f.reloadStatus(t, s.ID)
	require.True(t, got.RepostedByMe)
	require.Equal(t, int64(3), got.RepostCount)
}

func TestActionNoClientForPlatform(t *testing.T) {
	f := setupFixture(t)
	target := model.User{ID: "u-tw", AccountID: testAccountID, Platform: model.PlatformTwitter, RemoteID: "tw1", IsFollowedBy: true}
	require.NoError(t, f.db.Create(&target).Error)

	err := f.coord.ToggleFollow(context.Background(), testAccountID, target.ID)
	require.ErrorIs(t, err, ErrNoClient)

	// optimistic change rolled back
	got := f.reloadUser(t, target.ID)
	require.False(t, got.IsFollowing)
	require.True(t, got.IsFollowedBy)
}
