package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/talktojesus/api_server/internal/model"
	"github.com/talktojesus/api_server/internal/testutil"
)

func TestSubscriptionRepository_GetByProviderID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db)
	sub := testutil.TestSubscription(t, db, user.ID, plan.ID, testutil.WithProviderSubscriptionID("sub_abc"))

	found, err := repo.GetByProviderID(context.Background(), "sub_abc")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, found.ID)

	_, err = repo.GetByProviderID(context.Background(), "sub_missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubscriptionRepository_GetLatestByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db)
	now := time.Now()

	testutil.TestSubscription(t, db, user.ID, plan.ID,
		testutil.WithStatus(model.SubscriptionCancelled),
		testutil.WithCreatedAt(now.Add(-48*time.Hour)))
	latest := testutil.TestSubscription(t, db, user.ID, plan.ID, testutil.WithCreatedAt(now))

	found, err := repo.GetLatestByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, found.ID)
	require.NotNil(t, found.Plan)
	assert.Equal(t, plan.ID, found.Plan.ID)

	_, err = repo.GetLatestByUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubscriptionRepository_ListByUserAndStatuses(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	user := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db)
	now := time.Now()

	older := testutil.TestSubscription(t, db, user.ID, plan.ID,
		testutil.WithStatus(model.SubscriptionActive), testutil.WithCreatedAt(now.Add(-time.Hour)))
	newer := testutil.TestSubscription(t, db, user.ID, plan.ID,
		testutil.WithStatus(model.SubscriptionAuthenticated), testutil.WithCreatedAt(now))
	testutil.TestSubscription(t, db, user.ID, plan.ID, testutil.WithStatus(model.SubscriptionHalted))
	testutil.TestSubscription(t, db, other.ID, plan.ID, testutil.WithStatus(model.SubscriptionActive))

	subs, err := repo.ListByUserAndStatuses(context.Background(), user.ID, model.EntitlingStatuses)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, newer.ID, subs[0].ID)
	assert.Equal(t, older.ID, subs[1].ID)
}

func TestSubscriptionRepository_UpdateByProviderIDAndUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	owner := testutil.TestUser(t, db)
	intruder := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db)
	sub := testutil.TestSubscription(t, db, owner.ID, plan.ID)
	ctx := context.Background()

	t.Run("other user cannot mutate", func(t *testing.T) {
		_, err := repo.UpdateByProviderIDAndUser(ctx, sub.RazorpaySubscriptionID, intruder.ID, map[string]interface{}{
			"status": model.SubscriptionCancelled,
		})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

		found, _ := repo.GetByProviderID(ctx, sub.RazorpaySubscriptionID)
		assert.Equal(t, model.SubscriptionCreated, found.Status)
	})

	t.Run("owner update returns merged row", func(t *testing.T) {
		updated, err := repo.UpdateByProviderIDAndUser(ctx, sub.RazorpaySubscriptionID, owner.ID, map[string]interface{}{
			"status":     model.SubscriptionActive,
			"paid_count": 2,
		})
		require.NoError(t, err)
		assert.Equal(t, model.SubscriptionActive, updated.Status)
		assert.Equal(t, 2, updated.PaidCount)
		require.NotNil(t, updated.Plan)
	})
}

func TestSubscriptionRepository_UpdateByProviderID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db)
	sub := testutil.TestSubscription(t, db, user.ID, plan.ID)
	charged := time.Unix(1700000000, 0).UTC()

	err := repo.UpdateByProviderID(context.Background(), sub.RazorpaySubscriptionID, map[string]interface{}{
		"status":          model.SubscriptionActive,
		"last_charged_at": &charged,
	})
	require.NoError(t, err)

	found, _ := repo.GetByProviderID(context.Background(), sub.RazorpaySubscriptionID)
	assert.Equal(t, model.SubscriptionActive, found.Status)
	require.NotNil(t, found.LastChargedAt)
	assert.True(t, found.LastChargedAt.Equal(charged))
}

func TestSubscriptionRepository_ListStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db)
	now := time.Now()

	backdate := func(sub *model.Subscription, age time.Duration) {
		require.NoError(t, db.Model(sub).UpdateColumn("updated_at", now.Add(-age)).Error)
	}

	oldest := testutil.TestSubscription(t, db, user.ID, plan.ID, testutil.WithStatus(model.SubscriptionActive))
	backdate(oldest, 48*time.Hour)
	older := testutil.TestSubscription(t, db, user.ID, plan.ID, testutil.WithStatus(model.SubscriptionPending))
	backdate(older, 24*time.Hour)
	fresh := testutil.TestSubscription(t, db, user.ID, plan.ID, testutil.WithStatus(model.SubscriptionActive))
	backdate(fresh, time.Minute)
	closed := testutil.TestSubscription(t, db, user.ID, plan.ID, testutil.WithStatus(model.SubscriptionCancelled))
	backdate(closed, 48*time.Hour)

	subs, err := repo.ListStale(context.Background(), model.OpenStatuses, now.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, oldest.ID, subs[0].ID)
	assert.Equal(t, older.ID, subs[1].ID)

	subs, err = repo.ListStale(context.Background(), model.OpenStatuses, now.Add(-time.Hour), 1)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestSubscriptionRepository_LastChargedOnlyMovesForward(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	ctx := context.Background()
	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db)
	t1 := time.Unix(1700000000, 0).UTC()
	t2 := t1.Add(24 * time.Hour)
	sub := testutil.TestSubscription(t, db, user.ID, plan.ID, testutil.WithLastChargedAt(t2))

	t.Run("earlier value is ignored, other fields still written", func(t *testing.T) {
		err := repo.UpdateByProviderID(ctx, sub.RazorpaySubscriptionID, map[string]interface{}{
			"status":          model.SubscriptionActive,
			"last_charged_at": &t1,
		})
		require.NoError(t, err)

		found, err := repo.GetByProviderID(ctx, sub.RazorpaySubscriptionID)
		require.NoError(t, err)
		assert.Equal(t, model.SubscriptionActive, found.Status)
		assert.True(t, found.LastChargedAt.Equal(t2))
	})

	t.Run("equal value is a no-op", func(t *testing.T) {
		updated, err := repo.UpdateByProviderIDAndUser(ctx, sub.RazorpaySubscriptionID, user.ID, map[string]interface{}{
			"last_charged_at": t2,
			"paid_count":      2,
		})
		require.NoError(t, err)
		assert.True(t, updated.LastChargedAt.Equal(t2))
		assert.Equal(t, 2, updated.PaidCount)
	})

	t.Run("later value advances", func(t *testing.T) {
		t3 := t2.Add(24 * time.Hour)
		updated, err := repo.UpdateByProviderIDAndUser(ctx, sub.RazorpaySubscriptionID, user.ID, map[string]interface{}{
			"last_charged_at": &t3,
		})
		require.NoError(t, err)
		assert.True(t, updated.LastChargedAt.Equal(t3))
	})
}

func TestSubscriptionRepository_TouchUpdatedAt(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db)
	sub := testutil.TestSubscription(t, db, user.ID, plan.ID, testutil.WithStatus(model.SubscriptionActive))
	at := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.TouchUpdatedAt(context.Background(), sub.ID, at))

	found, err := repo.GetByProviderID(context.Background(), sub.RazorpaySubscriptionID)
	require.NoError(t, err)
	assert.True(t, found.UpdatedAt.Equal(at))
	assert.Equal(t, model.SubscriptionActive, found.Status)
}
