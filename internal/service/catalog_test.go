package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lipo-out/linebot/internal/model"
)

func TestSearchCatalog(t *testing.T) {
	catalog := DefaultCatalog()

	t.Run("duration tag and budget combined", func(t *testing.T) {
		results := SearchCatalog(catalog, model.TravelCriteria{
			DurationMin: 6,
			DurationMax: 10,
			Tags:        []string{"潛水"},
			BudgetTWD:   50000,
		})
		require.Len(t, results, 1)
		assert.Equal(t, "P001", results[0].ID)
	})

	t.Run("budget excludes expensive match", func(t *testing.T) {
		results := SearchCatalog(catalog, model.TravelCriteria{
			DurationMin: 1,
			DurationMax: 365,
			Tags:        []string{"潛水"},
			BudgetTWD:   50000,
		})
		require.Len(t, results, 1)
		assert.Equal(t, "P001", results[0].ID)
	})

	t.Run("zero budget means uncapped", func(t *testing.T) {
		results := SearchCatalog(catalog, model.TravelCriteria{
			DurationMin: 1,
			DurationMax: 365,
			Tags:        []string{"潛水"},
		})
		assert.Len(t, results, 2)
	})

	t.Run("duration bounds are inclusive", func(t *testing.T) {
		results := SearchCatalog(catalog, model.TravelCriteria{
			DurationMin: 8,
			DurationMax: 8,
			BudgetTWD:   100000,
		})
		require.Len(t, results, 1)
		assert.Equal(t, "P001", results[0].ID)
	})

	t.Run("all tags must match", func(t *testing.T) {
		results := SearchCatalog(catalog, model.TravelCriteria{
			DurationMin: 1,
			DurationMax: 365,
			Tags:        []string{"潛水", "瑜伽"},
			BudgetTWD:   100000,
		})
		assert.Empty(t, results)
	})

	t.Run("no tags matches everything in range", func(t *testing.T) {
		results := SearchCatalog(catalog, model.TravelCriteria{
			DurationMin: 1,
			DurationMax: 365,
			BudgetTWD:   100000,
		})
		assert.Len(t, results, 3)
	})
}

func TestExtractCriteria(t *testing.T) {
	t.Run("wan budget multiplies by ten thousand", func(t *testing.T) {
		criteria, ok := ExtractCriteria("我想去潛水，預算5萬")
		require.True(t, ok)
		assert.Equal(t, 50000, criteria.BudgetTWD)
		assert.Equal(t, []string{"潛水"}, criteria.Tags)
	})

	t.Run("wan budget tolerates spaces", func(t *testing.T) {
		criteria, ok := ExtractCriteria("預算 5 萬，想學瑜伽")
		require.True(t, ok)
		assert.Equal(t, 50000, criteria.BudgetTWD)
	})

	t.Run("yuan budget reads raw", func(t *testing.T) {
		criteria, ok := ExtractCriteria("預算5000元，想去潛水")
		require.True(t, ok)
		assert.Equal(t, 5000, criteria.BudgetTWD)
	})

	t.Run("figure without budget word ignored", func(t *testing.T) {
		criteria, ok := ExtractCriteria("我有5萬元想去潛水")
		require.True(t, ok)
		assert.Equal(t, 100000, criteria.BudgetTWD)
	})

	t.Run("duration widens by two days", func(t *testing.T) {
		criteria, ok := ExtractCriteria("想去潛水8天")
		require.True(t, ok)
		assert.Equal(t, 6, criteria.DurationMin)
		assert.Equal(t, 10, criteria.DurationMax)
	})

	t.Run("short duration floors at one day", func(t *testing.T) {
		criteria, ok := ExtractCriteria("2天的潛水行程")
		require.True(t, ok)
		assert.Equal(t, 1, criteria.DurationMin)
		assert.Equal(t, 4, criteria.DurationMax)
	})

	t.Run("keyword synonyms map to one tag", func(t *testing.T) {
		criteria, ok := ExtractCriteria("想上英文課")
		require.True(t, ok)
		assert.Equal(t, []string{"英語"}, criteria.Tags)
	})

	t.Run("no tag keyword means no extraction", func(t *testing.T) {
		_, ok := ExtractCriteria("預算5萬，8天的行程")
		assert.False(t, ok)
	})
}

func TestNewOrder(t *testing.T) {
	order := NewOrder("P001", "2026-09-01")

	assert.True(t, strings.HasPrefix(order.OrderID, "ORD-"))
	assert.Equal(t, "P001", order.ProductID)
	assert.Equal(t, "2026-09-01", order.Date)
	assert.Contains(t, order.PaymentLink, "P001")

	// Order IDs must be unique.
	other := NewOrder("P001", "2026-09-01")
	assert.NotEqual(t, order.OrderID, other.OrderID)
}

func TestFormatSearchResults(t *testing.T) {
	out := FormatSearchResults(DefaultCatalog()[:2])

	assert.Contains(t, out, "1. 小琉球潛水＋島語英語營")
	assert.Contains(t, out, "2. 花東部落文化深潛旅")
	assert.Contains(t, out, "42000")
	assert.Contains(t, out, "方案編號")
}
