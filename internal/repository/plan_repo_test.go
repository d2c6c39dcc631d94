package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talktojesus/api_server/internal/testutil"
)

func TestPlanRepository_ListByEnvironment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewPlanRepository(db)
	yearly := testutil.TestPlan(t, db, testutil.WithPrice(199900))
	monthly := testutil.TestPlan(t, db, testutil.WithPrice(19900))
	testutil.TestPlan(t, db, testutil.WithProd(true))

	plans, err := repo.ListByEnvironment(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, monthly.ID, plans[0].ID)
	assert.Equal(t, yearly.ID, plans[1].ID)

	prod, err := repo.ListByEnvironment(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, prod, 1)
}

func TestPlanRepository_GetByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewPlanRepository(db)
	plan := testutil.TestPlan(t, db)

	found, err := repo.GetByID(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.RazorpayPlanID, found.RazorpayPlanID)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.Error(t, err)
}
