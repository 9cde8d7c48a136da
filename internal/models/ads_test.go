package models

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdFilter_Values_SkipsZeroFields(t *testing.T) {
	t.Parallel()

	require.Empty(t, AdFilter{}.Values())
}

func TestAdFilter_Values_AllFields(t *testing.T) {
	t.Parallel()

	minP, maxP := 10.0, 99.5
	v := AdFilter{
		Page:         2,
		Size:         20,
		Name:         "bike",
		Category:     CategorySports,
		MinPrice:     &minP,
		MaxPrice:     &maxP,
		ShowMineOnly: true,
	}.Values()

	require.Equal(t, "2", v.Get("page"))
	require.Equal(t, "20", v.Get("size"))
	require.Equal(t, "bike", v.Get("name"))
	require.Equal(t, "SPORTS", v.Get("category"))
	require.Equal(t, "10", v.Get("minPrice"))
	require.Equal(t, "99.5", v.Get("maxPrice"))
	require.Equal(t, "true", v.Get("showMineOnly"))
}

// Нулевая минимальная цена - это заданное значение, а не «нет фильтра».
func TestAdFilter_Values_ZeroPriceIsSent(t *testing.T) {
	t.Parallel()

	zero := 0.0
	v := AdFilter{MinPrice: &zero}.Values()
	require.Equal(t, "0", v.Get("minPrice"))
}

func TestAdFilterFromQuery_RoundTrip(t *testing.T) {
	t.Parallel()

	q := url.Values{}
	q.Set("page", "1")
	q.Set("size", "5")
	q.Set("category", "BOOKS")
	q.Set("minPrice", "1.5")
	q.Set("showMineOnly", "true")

	f, err := AdFilterFromQuery(q)
	require.NoError(t, err)
	require.Equal(t, 1, f.Page)
	require.Equal(t, 5, f.Size)
	require.Equal(t, CategoryBooks, f.Category)
	require.NotNil(t, f.MinPrice)
	require.Equal(t, 1.5, *f.MinPrice)
	require.Nil(t, f.MaxPrice)
	require.True(t, f.ShowMineOnly)

	require.Equal(t, q, f.Values())
}

func TestAdFilterFromQuery_Invalid(t *testing.T) {
	t.Parallel()

	for _, kv := range [][2]string{{"page", "x"}, {"size", "-1"}, {"minPrice", "cheap"}, {"maxPrice", "1,5"}} {
		q := url.Values{}
		q.Set(kv[0], kv[1])

		_, err := AdFilterFromQuery(q)
		require.ErrorIs(t, err, ErrInvalidFilter, kv[0])
	}
}

func TestAdCategory_Valid(t *testing.T) {
	t.Parallel()

	require.True(t, CategoryPets.Valid())
	require.False(t, AdCategory("CARS").Valid())
	require.False(t, AdCategory("").Valid())
}

func TestSessionState_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "initializing", StateInitializing.String())
	require.Equal(t, "authenticated", StateAuthenticated.String())
	require.Equal(t, "unauthenticated", StateUnauthenticated.String())
}
