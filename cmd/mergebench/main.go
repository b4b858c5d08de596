package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/unifeed/internal/merge"
	"github.com/d60-Lab/unifeed/internal/model"
	"github.com/d60-Lab/unifeed/internal/remote/remotetest"
	"github.com/d60-Lab/unifeed/internal/store"
	"github.com/d60-Lab/unifeed/pkg/database"
)

func must[T any](v T, err error) T { if err != nil { panic(err) }; return v }

func main() {
	db := must(gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}))
	if err := database.Migrate(db); err != nil {
		panic(err)
	}

	notifier := store.NewNotifier(100000)
	stop := notifier.Start(2)
	st := store.New(db, notifier)
	engine := merge.NewEngine()

	ctx := context.Background()

	N := 10000
	if s := os.Getenv("N"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 { N = n }
	}
	DEPTH := 2
	if s := os.Getenv("DEPTH"); s != "" {
		if d, err := strconv.Atoi(s); err == nil && d >= 0 && d < 8 { DEPTH = d }
	}

	acct := model.Account{ID: "acct-bench", Platform: model.PlatformMastodon, Domain: "bench.social", RemoteID: "1"}
	_ = db.Where("id = ?", acct.ID).FirstOrCreate(&acct).Error

	author := &remotetest.User{
		ID:         model.Identity{Platform: model.PlatformMastodon, Domain: "bench.social", RemoteID: "author-1"},
		UserHandle: "bencher",
		Name:       "Bencher",
		Followers:  10,
	}

	// build N payloads, each a repost chain DEPTH deep
	payloads := make([]*remotetest.Status, N)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < N; i++ {
		var inner *remotetest.Status
		for d := DEPTH; d >= 1; d-- {
			inner = &remotetest.Status{
				ID:      model.Identity{Platform: model.PlatformMastodon, Domain: "bench.social", RemoteID: fmt.Sprintf("s-%d-%d", i, d)},
				ByUser:  author,
				Text:    "inner",
				At:      base.Add(time.Duration(i) * time.Second),
				Retweet: inner,
			}
		}
		payloads[i] = &remotetest.Status{
			ID:      model.Identity{Platform: model.PlatformMastodon, Domain: "bench.social", RemoteID: fmt.Sprintf("s-%d-0", i)},
			ByUser:  author,
			Text:    "outer",
			At:      base.Add(time.Duration(i) * time.Second),
			Retweet: inner,
		}
	}

	// first pass: all creates
	recs := make([]time.Duration, 0, N)
	t0 := time.Now()
	for i := 0; i < N; i++ {
		s := time.Now()
		err := st.PerformTransaction(ctx, func(tx *gorm.DB) error {
			_, _, err := engine.MergeStatus(ctx, tx, acct.ID, payloads[i], time.Now())
			return err
		})
		if err != nil { panic(err) }
		recs = append(recs, time.Since(s))
	}
	createDur := time.Since(t0)

	// second pass: all no-op skips (stale network time)
	stale := base.Add(-time.Hour)
	t1 := time.Now()
	for i := 0; i < N; i++ {
		err := st.PerformTransaction(ctx, func(tx *gorm.DB) error {
			_, _, err := engine.MergeStatus(ctx, tx, acct.ID, payloads[i], stale)
			return err
		})
		if err != nil { panic(err) }
	}
	skipDur := time.Since(t1)

	_ = stop(context.Background())

	pct := func(vs []time.Duration, p float64) time.Duration {
		if len(vs) == 0 { return 0 }
		xs := append([]time.Duration(nil), vs...)
		sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
		k := int(math.Ceil(p*float64(len(xs)))) - 1
		if k < 0 { k = 0 }
		if k >= len(xs) { k = len(xs) - 1 }
		return xs[k]
	}

	fmt.Printf("N=%d, DEPTH=%d\n", N, DEPTH)
	fmt.Printf("Create merge total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		createDur, createDur/time.Duration(N), pct(recs, 0.50), pct(recs, 0.95), pct(recs, 0.99))
	fmt.Printf("Skip merge total: %v, per op: %v\n", skipDur, skipDur/time.Duration(N))
}
