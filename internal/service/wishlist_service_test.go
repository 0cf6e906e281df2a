package service

import (
	"context"
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWishlistToggleIsItsOwnInverse(t *testing.T) {
	st := newMemStore()
	svc := NewWishlistService(st)
	ctx := context.Background()

	st.addProduct(models.Product{ID: 1, Name: "Mug", Price: price("10.00"), Stock: 5})

	action, err := svc.Toggle(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, WishlistAdded, action)

	products, err := svc.List(ctx, 7)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(1), products[0].ID)

	action, err = svc.Toggle(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, WishlistRemoved, action)

	products, err = svc.List(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestWishlistTogglePerUser(t *testing.T) {
	st := newMemStore()
	svc := NewWishlistService(st)
	ctx := context.Background()

	st.addProduct(models.Product{ID: 1, Name: "Mug", Price: price("10.00"), Stock: 5})

	_, err := svc.Toggle(ctx, 7, 1)
	require.NoError(t, err)

	// user 8 toggling the same product adds for them, not removes for 7
	action, err := svc.Toggle(ctx, 8, 1)
	require.NoError(t, err)
	assert.Equal(t, WishlistAdded, action)

	products, err := svc.List(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestWishlistToggleUnknownProduct(t *testing.T) {
	st := newMemStore()
	svc := NewWishlistService(st)

	_, err := svc.Toggle(context.Background(), 7, 42)
	assert.Error(t, err)
}
