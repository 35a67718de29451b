package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/codeabuu/simplifydocs/internal/adapter/repository"
	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/infrastructure/database"
)

// openTestDB connects to TEST_DATABASE_DSN and migrates the schema. Tests
// write rows keyed by fresh UUIDs so they can share one database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set; skipping Postgres repository test")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Skipf("postgres not reachable: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	if err := sqlDB.Ping(); err != nil {
		t.Skipf("postgres not reachable: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db, zap.NewNop()))
	return db
}

// concurrently runs fn n times at once and waits for all of them.
func concurrently(n int, fn func(i int)) {
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
}

func TestSubscriptionRepository_Postgres(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := repository.NewSubscriptionRepository(db, zap.NewNop())

	countRows := func(t *testing.T, query string, args ...interface{}) int64 {
		var n int64
		require.NoError(t, db.Model(&model.UserSubscription{}).Where(query, args...).Count(&n).Error)
		return n
	}

	t.Run("get or create inserts one row per user", func(t *testing.T) {
		userID := uuid.New()
		created := make([]bool, 4)
		errs := make([]error, 4)
		concurrently(4, func(i int) {
			_, created[i], errs[i] = repo.GetOrCreate(ctx, userID)
		})

		winners := 0
		for i := range created {
			require.NoError(t, errs[i])
			if created[i] {
				winners++
			}
		}
		assert.Equal(t, 1, winners)
		assert.Equal(t, int64(1), countRows(t, "user_id = ?", userID))
	})

	t.Run("concurrent upserts of one code converge on one row", func(t *testing.T) {
		userID := uuid.New()
		code := "SUB_" + uuid.NewString()
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		errs := make([]error, 4)
		concurrently(4, func(i int) {
			periodStart := start.AddDate(0, i, 0)
			_, errs[i] = repo.UpsertBySubscriptionCode(ctx, code, model.SubscriptionUpdate{
				UserID:             &userID,
				Status:             model.StatusPtr(model.SubscriptionStatusActive),
				CurrentPeriodStart: &periodStart,
			})
		})
		for _, err := range errs {
			require.NoError(t, err)
		}

		assert.Equal(t, int64(1), countRows(t, "subscription_code = ?", code))
		assert.Equal(t, int64(1), countRows(t, "user_id = ?", userID))

		row, err := repo.GetBySubscriptionCode(ctx, code)
		require.NoError(t, err)
		require.NotNil(t, row)
		require.NotNil(t, row.OriginalPeriodStart)
		assert.True(t, row.HasActiveSubscription())
	})

	t.Run("code held by another user is refused", func(t *testing.T) {
		owner, other := uuid.New(), uuid.New()
		code := "SUB_" + uuid.NewString()
		_, err := repo.UpsertBySubscriptionCode(ctx, code, model.SubscriptionUpdate{UserID: &owner})
		require.NoError(t, err)

		_, err = repo.UpsertBySubscriptionCode(ctx, code, model.SubscriptionUpdate{UserID: &other})
		assert.Error(t, err)
		assert.Equal(t, int64(0), countRows(t, "user_id = ?", other))
	})

	t.Run("payment reference is recorded once", func(t *testing.T) {
		userID := uuid.New()
		reference := "ref_" + uuid.NewString()
		end := time.Now().UTC().Add(30 * 24 * time.Hour)

		recorded := make([]bool, 3)
		errs := make([]error, 3)
		concurrently(3, func(i int) {
			payment := &model.Payment{
				Reference:   reference,
				UserID:      userID,
				AmountMinor: 500000,
				Amount:      decimal.NewFromInt(5000),
				Currency:    "NGN",
				Status:      "success",
			}
			_, recorded[i], errs[i] = repo.RecordPayment(ctx, payment, "", model.SubscriptionUpdate{
				Status:               model.StatusPtr(model.SubscriptionStatusActive),
				CurrentPeriodEnd:     &end,
				LastPaymentReference: &reference,
			})
		})

		winners := 0
		for i := range recorded {
			require.NoError(t, errs[i])
			if recorded[i] {
				winners++
			}
		}
		assert.Equal(t, 1, winners)

		var payments int64
		require.NoError(t, db.Model(&model.Payment{}).Where("reference = ?", reference).Count(&payments).Error)
		assert.Equal(t, int64(1), payments)
		assert.Equal(t, int64(1), countRows(t, "user_id = ?", userID))

		_, again, err := repo.RecordPayment(ctx, &model.Payment{
			Reference: reference,
			UserID:    userID,
			Status:    "success",
		}, "", model.SubscriptionUpdate{})
		require.NoError(t, err)
		assert.False(t, again)
	})
}

func TestCancellationRepository_Postgres(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := repository.NewCancellationRepository(db, zap.NewNop())

	t.Run("a code is claimed once", func(t *testing.T) {
		code := "SUB_" + uuid.NewString()
		userID := uuid.New()

		claimed := make([]bool, 3)
		errs := make([]error, 3)
		concurrently(3, func(i int) {
			claimed[i], errs[i] = repo.Claim(ctx, &model.SubscriptionCancellation{
				SubscriptionCode: code,
				UserID:           userID,
				Reason:           "superseded",
			})
		})

		winners := 0
		for i := range claimed {
			require.NoError(t, errs[i])
			if claimed[i] {
				winners++
			}
		}
		assert.Equal(t, 1, winners)
	})

	t.Run("fresh pending claims are not retryable", func(t *testing.T) {
		code := "SUB_" + uuid.NewString()
		ok, err := repo.Claim(ctx, &model.SubscriptionCancellation{SubscriptionCode: code, UserID: uuid.New()})
		require.NoError(t, err)
		require.True(t, ok)

		contains := func(pendingBefore time.Time) bool {
			claims, err := repo.ListRetryable(ctx, 5, pendingBefore)
			require.NoError(t, err)
			for _, c := range claims {
				if c.SubscriptionCode == code {
					return true
				}
			}
			return false
		}

		assert.False(t, contains(time.Now().Add(-10*time.Minute)))
		assert.True(t, contains(time.Now().Add(time.Minute)))

		require.NoError(t, repo.MarkFailed(ctx, code, "timeout"))
		assert.True(t, contains(time.Now().Add(-10*time.Minute)))
	})
}

func TestPlanRepository_ClaimProvisioning_Postgres(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := repository.NewPlanRepository(db, zap.NewNop())

	plan := &model.SubscriptionPlan{
		Name:     "Plan " + uuid.NewString(),
		Interval: model.IntervalMonthly,
		Price:    decimal.RequireFromString("10.00"),
		Currency: "NGN",
		IsActive: true,
	}
	require.NoError(t, repo.Create(ctx, plan))

	now := time.Now()
	claimed := make([]bool, 3)
	errs := make([]error, 3)
	concurrently(3, func(i int) {
		claimed[i], errs[i] = repo.ClaimProvisioning(ctx, plan.ID, now, time.Hour)
	})

	winners := 0
	for i := range claimed {
		require.NoError(t, errs[i])
		if claimed[i] {
			winners++
		}
	}
	assert.Equal(t, 1, winners)

	ok, err := repo.ClaimProvisioning(ctx, plan.ID, now.Add(2*time.Hour), time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "stale claim can be taken over")

	require.NoError(t, repo.MarkProvisioned(ctx, plan.ID, "PLN_"+uuid.NewString()))
	ok, err = repo.ClaimProvisioning(ctx, plan.ID, now.Add(4*time.Hour), time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "provisioned plan is never reclaimed")
}
