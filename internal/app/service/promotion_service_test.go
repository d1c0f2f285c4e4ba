package service

import (
	"testing"
	"time"

	"github.com/mduc/storefront-backend/internal/app/model"
	"github.com/mduc/storefront-backend/internal/app/repository"
	"github.com/mduc/storefront-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupPromotionServiceTest(t *testing.T) (PromotionService, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	promoRepo := repository.NewPromotionRepository(testDB)
	return NewPromotionService(testDB, promoRepo), testDB
}

func intPtr(n int) *int               { return &n }
func floatPtr(f float64) *float64     { return &f }
func timePtr(ts time.Time) *time.Time { return &ts }

func TestPromotionService_Validate_Percentage(t *testing.T) {
	svc, testDB := setupPromotionServiceTest(t)

	require.NoError(t, testDB.Create(&model.Promotion{
		Code:          "SAVE10",
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 10,
		IsActive:      true,
	}).Error)

	result, err := svc.Validate("save10", nil, 200)
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", result.Promotion.Code)
	assert.Equal(t, float64(20), result.DiscountAmount)

	// Validation must not consume a usage.
	var promo model.Promotion
	testDB.Where("code = ?", "SAVE10").First(&promo)
	assert.Zero(t, promo.UsageCount)
}

func TestPromotionService_Validate_PercentageCapped(t *testing.T) {
	svc, testDB := setupPromotionServiceTest(t)

	require.NoError(t, testDB.Create(&model.Promotion{
		Code:              "BIGSALE",
		DiscountType:      model.DiscountPercentage,
		DiscountValue:     50,
		MaxDiscountAmount: floatPtr(30),
		IsActive:          true,
	}).Error)

	result, err := svc.Validate("BIGSALE", nil, 200)
	require.NoError(t, err)
	assert.Equal(t, float64(30), result.DiscountAmount)
}

func TestPromotionService_Validate_FixedClampedToAmount(t *testing.T) {
	svc, testDB := setupPromotionServiceTest(t)

	require.NoError(t, testDB.Create(&model.Promotion{
		Code:          "FLAT50",
		DiscountType:  model.DiscountFixed,
		DiscountValue: 50,
		IsActive:      true,
	}).Error)

	result, err := svc.Validate("FLAT50", nil, 30)
	require.NoError(t, err)
	assert.Equal(t, float64(30), result.DiscountAmount)
}

func TestPromotionService_Validate_Rejections(t *testing.T) {
	svc, testDB := setupPromotionServiceTest(t)

	now := time.Now()
	promos := []model.Promotion{
		{Code: "INACTIVE", DiscountType: model.DiscountFixed, DiscountValue: 5, IsActive: false},
		{Code: "FUTURE", DiscountType: model.DiscountFixed, DiscountValue: 5, IsActive: true,
			StartDate: timePtr(now.Add(24 * time.Hour))},
		{Code: "PAST", DiscountType: model.DiscountFixed, DiscountValue: 5, IsActive: true,
			EndDate: timePtr(now.Add(-24 * time.Hour))},
		{Code: "MIN50", DiscountType: model.DiscountFixed, DiscountValue: 5, IsActive: true,
			MinOrderAmount: floatPtr(50)},
		{Code: "DRAINED", DiscountType: model.DiscountFixed, DiscountValue: 5, IsActive: true,
			UsageLimit: intPtr(1), UsageCount: 1},
	}
	for i := range promos {
		require.NoError(t, testDB.Create(&promos[i]).Error)
	}

	tests := []struct {
		name    string
		code    string
		amount  float64
		wantErr error
	}{
		{name: "Unknown code", code: "NOPE", amount: 100, wantErr: ErrPromotionNotFound},
		{name: "Inactive code", code: "INACTIVE", amount: 100, wantErr: ErrPromotionNotFound},
		{name: "Not started yet", code: "FUTURE", amount: 100, wantErr: ErrPromotionNotStarted},
		{name: "Already ended", code: "PAST", amount: 100, wantErr: ErrPromotionExpired},
		{name: "Below minimum", code: "MIN50", amount: 40, wantErr: ErrPromotionBelowMin},
		{name: "Usage limit reached", code: "DRAINED", amount: 100, wantErr: ErrPromotionUsageLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Validate(tt.code, nil, tt.amount)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, result)
		})
	}
}

func TestPromotionService_Validate_PerUserLimit(t *testing.T) {
	svc, testDB := setupPromotionServiceTest(t)

	promo := &model.Promotion{
		Code:          "ONCE",
		DiscountType:  model.DiscountFixed,
		DiscountValue: 5,
		IsActive:      true,
		PerUserLimit:  intPtr(1),
	}
	require.NoError(t, testDB.Create(promo).Error)

	user := &model.User{Email: "buyer@example.com", PasswordHash: "hash", Name: "Buyer"}
	require.NoError(t, testDB.Create(user).Error)

	require.NoError(t, testDB.Create(&model.PromotionUsage{
		PromotionID:    promo.ID,
		UserID:         user.ID,
		OrderID:        1,
		DiscountAmount: 5,
		UsedAt:         time.Now(),
	}).Error)

	_, err := svc.Validate("ONCE", &user.ID, 100)
	assert.ErrorIs(t, err, ErrPromotionPerUserLimit)

	// A different user is unaffected.
	other := &model.User{Email: "other@example.com", PasswordHash: "hash", Name: "Other"}
	require.NoError(t, testDB.Create(other).Error)
	_, err = svc.Validate("ONCE", &other.ID, 100)
	assert.NoError(t, err)

	// So is a guest.
	_, err = svc.Validate("ONCE", nil, 100)
	assert.NoError(t, err)
}

func TestPromotionService_Create(t *testing.T) {
	svc, _ := setupPromotionServiceTest(t)

	promo, err := svc.Create(PromotionInput{
		Code:          "  welcome15 ",
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 15,
	})
	require.NoError(t, err)
	assert.Equal(t, "WELCOME15", promo.Code)
	assert.True(t, promo.IsActive)

	_, err = svc.Create(PromotionInput{
		Code:          "WELCOME15",
		DiscountType:  model.DiscountFixed,
		DiscountValue: 5,
	})
	assert.ErrorIs(t, err, ErrPromotionCodeExists)
}

func TestPromotionService_Create_InvalidDefinitions(t *testing.T) {
	svc, _ := setupPromotionServiceTest(t)

	now := time.Now()
	tests := []struct {
		name  string
		input PromotionInput
	}{
		{name: "Missing code", input: PromotionInput{
			DiscountType: model.DiscountFixed, DiscountValue: 5}},
		{name: "Percentage above 100", input: PromotionInput{
			Code: "P101", DiscountType: model.DiscountPercentage, DiscountValue: 101}},
		{name: "Zero fixed value", input: PromotionInput{
			Code: "ZERO", DiscountType: model.DiscountFixed, DiscountValue: 0}},
		{name: "Unknown discount type", input: PromotionInput{
			Code: "ODD", DiscountType: "bogus", DiscountValue: 5}},
		{name: "End before start", input: PromotionInput{
			Code: "WINDOW", DiscountType: model.DiscountFixed, DiscountValue: 5,
			StartDate: timePtr(now), EndDate: timePtr(now.Add(-time.Hour))}},
		{name: "Non-positive usage limit", input: PromotionInput{
			Code: "LIMIT0", DiscountType: model.DiscountFixed, DiscountValue: 5,
			UsageLimit: intPtr(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(tt.input)
			assert.ErrorIs(t, err, ErrInvalidPromotion)
		})
	}
}

func TestPromotionService_Update(t *testing.T) {
	svc, _ := setupPromotionServiceTest(t)

	created, err := svc.Create(PromotionInput{
		Code:          "SPRING",
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 10,
	})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(created.ID, PromotionInput{
		Code:          "SPRING",
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 20,
		IsActive:      &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(20), updated.DiscountValue)
	assert.False(t, updated.IsActive)

	_, err = svc.Update(9999, PromotionInput{
		Code:          "GHOST",
		DiscountType:  model.DiscountFixed,
		DiscountValue: 5,
	})
	assert.ErrorIs(t, err, ErrPromotionNotFound)
}

func TestPromotionService_Deactivate(t *testing.T) {
	svc, testDB := setupPromotionServiceTest(t)

	created, err := svc.Create(PromotionInput{
		Code:          "BYE",
		DiscountType:  model.DiscountFixed,
		DiscountValue: 5,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(created.ID))

	var promo model.Promotion
	testDB.First(&promo, created.ID)
	assert.False(t, promo.IsActive)

	// Deactivated codes are indistinguishable from unknown ones.
	_, err = svc.Validate("BYE", nil, 100)
	assert.ErrorIs(t, err, ErrPromotionNotFound)

	assert.ErrorIs(t, svc.Deactivate(9999), ErrPromotionNotFound)
}

func TestComputeDiscount_Rounding(t *testing.T) {
	promo := &model.Promotion{
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 15,
	}
	// 15% of 33.33 is 4.9995, rounded half-up to 5.00.
	assert.Equal(t, float64(5), computeDiscount(promo, 33.33))
}

func TestBindPromotion_IncrementsAndRecords(t *testing.T) {
	_, testDB := setupPromotionServiceTest(t)

	promo := &model.Promotion{
		Code:          "BIND",
		DiscountType:  model.DiscountFixed,
		DiscountValue: 5,
		IsActive:      true,
		UsageLimit:    intPtr(1),
	}
	require.NoError(t, testDB.Create(promo).Error)

	user := &model.User{Email: "buyer@example.com", PasswordHash: "hash", Name: "Buyer"}
	require.NoError(t, testDB.Create(user).Error)

	result := &ValidationResult{Promotion: promo, DiscountAmount: 5}
	require.NoError(t, bindPromotion(testDB, 42, &user.ID, result))

	var reloaded model.Promotion
	testDB.First(&reloaded, promo.ID)
	assert.Equal(t, 1, reloaded.UsageCount)

	var usages []model.PromotionUsage
	testDB.Where("promotion_id = ?", promo.ID).Find(&usages)
	require.Len(t, usages, 1)
	assert.Equal(t, user.ID, usages[0].UserID)
	assert.Equal(t, uint(42), usages[0].OrderID)

	// The global limit is now exhausted.
	err := bindPromotion(testDB, 43, &user.ID, result)
	assert.ErrorIs(t, err, ErrPromotionUsageLimit)
}
