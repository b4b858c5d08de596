package feed

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
	"github.com/d60-Lab/unifeed/internal/repository"
	"github.com/d60-Lab/unifeed/pkg/database"
)

const trackerAccount = "acct-1"

func setupTrackerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func timelinePage(base time.Time, remoteIDs ...string) *remote.Page {
	page := &remote.Page{}
	for i, id := range remoteIDs {
		page.Statuses = append(page.Statuses, &remotetest.Status{
			ID:   model.Identity{Platform: model.PlatformMastodon, Domain: "example.social", RemoteID: id},
			Text: id,
			At:   base.Add(-time.Duration(i) * time.Minute),
		})
	}
	return page
}

// observeAndMerge mirrors the refresh path: anchors first, then the merge.
func observeAndMerge(t *testing.T, db *gorm.DB, tr *Tracker, page *remote.Page, cursor remote.Cursor) bool {
	t.Helper()
	ctx := context.Background()
	overlap, err := tr.Observe(ctx, db, trackerAccount, model.TimelineHome, model.PlatformMastodon, page, cursor)
	require.NoError(t, err)
	_, err = merge.NewEngine().MergePage(ctx, db, trackerAccount, page, time.Now())
	require.NoError(t, err)
	return overlap
}

func anchorFor(t *testing.T, db *gorm.DB, remoteID string) *model.FeedAnchor {
	t.Helper()
	a, err := repository.NewAnchorRepository(db).Find(context.Background(), trackerAccount, model.TimelineHome, remoteID)
	require.NoError(t, err)
	return a
}

func TestObserveFreshPageSetsGapAnchor(t *testing.T) {
	db := setupTrackerDB(t)
	tr := NewTracker()

	overlap := observeAndMerge(t, db, tr, timelinePage(time.Now(), "10", "9", "8"), remote.Cursor{})
	require.False(t, overlap)

	a := anchorFor(t, db, "8")
	require.NotNil(t, a)
	require.True(t, a.HasMore)
	require.Nil(t, anchorFor(t, db, "10"))
}

func TestObservePagingPastAnchorClearsIt(t *testing.T) {
	db := setupTrackerDB(t)
	tr := NewTracker()

	observeAndMerge(t, db, tr, timelinePage(time.Now(), "10", "9", "8"), remote.Cursor{})

	// load-older from 8 returns [7, 6]: gap moves from 8 to 6
	overlap := observeAndMerge(t, db, tr, timelinePage(time.Now().Add(-3*time.Minute), "7", "6"), remote.Cursor{MaxID: "8"})
	require.False(t, overlap)

	a8 := anchorFor(t, db, "8")
	require.NotNil(t, a8)
	require.False(t, a8.HasMore)

	a6 := anchorFor(t, db, "6")
	require.NotNil(t, a6)
	require.True(t, a6.HasMore)
}

func TestObservePageIncludingCursorRecord(t *testing.T) {
	db := setupTrackerDB(t)
	tr := NewTracker()

	observeAndMerge(t, db, tr, timelinePage(time.Now(), "10", "9", "8"), remote.Cursor{})

	// max_id is inclusive on some vendors: the page reaches back to 8 itself
	overlap := observeAndMerge(t, db, tr, timelinePage(time.Now().Add(-2*time.Minute), "8", "7"), remote.Cursor{MaxID: "8"})
	require.False(t, overlap)

	a8 := anchorFor(t, db, "8")
	require.NotNil(t, a8)
	require.False(t, a8.HasMore)

	a7 := anchorFor(t, db, "7")
	require.NotNil(t, a7)
	require.True(t, a7.HasMore)

	// the re-fetched record merged into the existing row
	var n int64
	require.NoError(t, db.Model(&model.Status{}).
		Where("account_id = ? AND remote_id = ?", trackerAccount, "8").
		Count(&n).Error)
	require.Equal(t, int64(1), n)
}

func TestObserveOverlappingRefresh(t *testing.T) {
	db := setupTrackerDB(t)
	tr := NewTracker()

	observeAndMerge(t, db, tr, timelinePage(time.Now().Add(-time.Hour), "10", "9", "8"), remote.Cursor{})

	// a later refresh reaches back into known history: oldest of page is 10
	overlap := observeAndMerge(t, db, tr, timelinePage(time.Now(), "12", "11", "10"), remote.Cursor{})
	require.True(t, overlap)
	require.Nil(t, anchorFor(t, db, "10"))
}

func TestObserveEmptyPageEndsFeed(t *testing.T) {
	db := setupTrackerDB(t)
	tr := NewTracker()

	observeAndMerge(t, db, tr, timelinePage(time.Now(), "10", "9", "8"), remote.Cursor{})
	a := anchorFor(t, db, "8")
	require.True(t, a.HasMore)

	// load-older from 8 comes back empty: nothing older exists
	overlap := observeAndMerge(t, db, tr, &remote.Page{}, remote.Cursor{MaxID: "8"})
	require.False(t, overlap)

	a = anchorFor(t, db, "8")
	require.NotNil(t, a)
	require.False(t, a.HasMore)
}

func TestHasMoreDefaultsFalse(t *testing.T) {
	db := setupTrackerDB(t)
	tr := NewTracker()

	more, err := tr.HasMore(context.Background(), db, trackerAccount, model.TimelineHome, "nope")
	require.NoError(t, err)
	require.False(t, more)
}

func TestObserveMaintainsFeedState(t *testing.T) {
	db := setupTrackerDB(t)
	tr := NewTracker()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	observeAndMerge(t, db, tr, timelinePage(base, "10", "9", "8"), remote.Cursor{})

	anchors := repository.NewAnchorRepository(db)
	state, err := anchors.FindState(ctx, trackerAccount, model.TimelineHome)
	require.NoError(t, err)
	require.NotNil(t, state)
	require.True(t, state.NewestAt.Equal(base))
	require.True(t, state.OldestAt.Equal(base.Add(-2*time.Minute)))

	// older page widens the oldest bound only
	observeAndMerge(t, db, tr, timelinePage(base.Add(-10*time.Minute), "7", "6"), remote.Cursor{MaxID: "8"})
	state, err = anchors.FindState(ctx, trackerAccount, model.TimelineHome)
	require.NoError(t, err)
	require.True(t, state.NewestAt.Equal(base))
	require.True(t, state.OldestAt.Equal(base.Add(-11*time.Minute)))
}
