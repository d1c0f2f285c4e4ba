package repository

import (
	"testing"
	"time"

	"github.com/mduc/storefront-backend/internal/app/model"
	"github.com/mduc/storefront-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupPromotionRepoTest(t *testing.T) (PromotionRepository, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})
	return NewPromotionRepository(testDB), testDB
}

func TestPromotionRepository_FindByCode_Normalizes(t *testing.T) {
	repo, _ := setupPromotionRepoTest(t)

	require.NoError(t, repo.Create(&model.Promotion{
		Code:          "SUMMER20",
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 20,
		IsActive:      true,
	}))

	found, err := repo.FindByCode("  summer20 ")
	require.NoError(t, err)
	assert.Equal(t, "SUMMER20", found.Code)

	_, err = repo.FindByCode("WINTER")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPromotionRepository_Deactivate(t *testing.T) {
	repo, testDB := setupPromotionRepoTest(t)

	promo := &model.Promotion{
		Code:          "OFF",
		DiscountType:  model.DiscountFixed,
		DiscountValue: 5,
		IsActive:      true,
	}
	require.NoError(t, repo.Create(promo))

	require.NoError(t, repo.Deactivate(promo.ID))

	var reloaded model.Promotion
	testDB.First(&reloaded, promo.ID)
	assert.False(t, reloaded.IsActive)
}

func TestPromotionRepository_CountUsageByUser(t *testing.T) {
	repo, testDB := setupPromotionRepoTest(t)

	promo := &model.Promotion{
		Code:          "COUNTME",
		DiscountType:  model.DiscountFixed,
		DiscountValue: 5,
		IsActive:      true,
	}
	require.NoError(t, repo.Create(promo))

	user := &model.User{Email: "buyer@example.com", PasswordHash: "hash", Name: "Buyer"}
	require.NoError(t, testDB.Create(user).Error)

	count, err := repo.CountUsageByUser(promo.ID, user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	for i := 0; i < 2; i++ {
		require.NoError(t, testDB.Create(&model.PromotionUsage{
			PromotionID:    promo.ID,
			UserID:         user.ID,
			OrderID:        uint(i + 1),
			DiscountAmount: 5,
			UsedAt:         time.Now(),
		}).Error)
	}

	count, err = repo.CountUsageByUser(promo.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Another user's bindings do not leak into the count.
	count, err = repo.CountUsageByUser(promo.ID, user.ID+1)
	require.NoError(t, err)
	assert.Zero(t, count)
}
