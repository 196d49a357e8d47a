package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"product-store/internal/apperror"
	"product-store/internal/model"
	"product-store/internal/service"
	"product-store/internal/service/servicetest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	u1 = uuid.MustParse("123e4567-e89b-12d3-a456-426614174001")
	u2 = uuid.MustParse("123e4567-e89b-12d3-a456-426614174002")
	u3 = uuid.MustParse("123e4567-e89b-12d3-a456-426614174003")

	createdAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func ptr[T any](v T) *T { return &v }

func seed() []model.Product {
	return []model.Product{
		{ID: u1, Name: "Iphone 13", Quantity: 5, Price: 3.2, Status: true, CreatedAt: createdAt, UpdatedAt: createdAt},
		{ID: u2, Name: "Iphone 15", Quantity: 8, Price: 7.5, Status: true, CreatedAt: createdAt, UpdatedAt: createdAt},
		{ID: u3, Name: "Iphone 14", Quantity: 1, Price: 5.0, Status: false, CreatedAt: createdAt, UpdatedAt: createdAt},
	}
}

func ids(products []model.Product) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func Test_ProductService_Create(t *testing.T) {
	ctx := context.Background()
	store := servicetest.NewMemStore()
	svc := service.NewProductService(store)

	created, err := svc.Create(ctx, model.ProductIn{Name: "Iphone 14 Pro Max", Quantity: 10, Price: 8.5, Status: true})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.Equal(t, 1, store.Calls("InsertOne"))

	found, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, found)
}

func Test_ProductService_Create_InsertError(t *testing.T) {
	cause := errors.New("connection refused")
	store := servicetest.NewMemStore()
	store.InsertErr = cause
	svc := service.NewProductService(store)

	created, err := svc.Create(context.Background(), model.ProductIn{Name: "x", Price: 1})

	assert.Nil(t, created)
	assert.ErrorIs(t, err, apperror.ErrInsert)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Error inserting product: connection refused", err.Error())
	assert.Equal(t, 1, store.Calls("InsertOne"))
}

func Test_ProductService_Get(t *testing.T) {
	storeErr := errors.New("server selection timeout")
	testCases := []struct {
		name        string
		store       func() *servicetest.MemStore
		id          uuid.UUID
		expectName  string
		expectError error
	}{
		{
			name:       "Success - product found",
			store:      func() *servicetest.MemStore { return servicetest.NewMemStore(seed()...) },
			id:         u2,
			expectName: "Iphone 15",
		},
		{
			name:        "Error - product not found",
			store:       func() *servicetest.MemStore { return servicetest.NewMemStore(seed()...) },
			id:          uuid.New(),
			expectError: apperror.ErrNotFound,
		},
		{
			name: "Error - store failure passes through",
			store: func() *servicetest.MemStore {
				s := servicetest.NewMemStore(seed()...)
				s.FindErr = storeErr
				return s
			},
			id:          u1,
			expectError: storeErr,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			svc := service.NewProductService(tc.store())
			// when
			found, err := svc.Get(context.Background(), tc.id)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, found)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectName, found.Name)
		})
	}
}

func Test_ProductService_Get_NotFoundMessage(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	svc := service.NewProductService(servicetest.NewMemStore())

	_, err := svc.Get(context.Background(), id)

	require.Error(t, err)
	assert.Equal(t, "Product not found with filter: 00000000-0000-0000-0000-0000000000aa", err.Error())
}

func Test_ProductService_Query(t *testing.T) {
	testCases := []struct {
		name      string
		priceMin  *float64
		priceMax  *float64
		expected  []uuid.UUID
		findCalls int
	}{
		{name: "no bounds returns everything", expected: []uuid.UUID{u1, u2, u3}, findCalls: 1},
		{name: "upper bound only", priceMax: ptr(5000.0), expected: []uuid.UUID{u1}, findCalls: 1},
		{name: "lower bound only excludes equality", priceMin: ptr(5000.0), expected: []uuid.UUID{u2}, findCalls: 1},
		{name: "both bounds", priceMin: ptr(3000.0), priceMax: ptr(8000.0), expected: []uuid.UUID{u1, u2, u3}, findCalls: 1},
		{name: "both bounds exclusive", priceMin: ptr(3200.0), priceMax: ptr(7500.0), expected: []uuid.UUID{u3}, findCalls: 1},
		{name: "min greater than max", priceMin: ptr(5000.0), priceMax: ptr(3000.0), expected: []uuid.UUID{}, findCalls: 0},
		{name: "min equal to max", priceMin: ptr(5000.0), priceMax: ptr(5000.0), expected: []uuid.UUID{}, findCalls: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := servicetest.NewMemStore(seed()...)
			svc := service.NewProductService(store)

			seq, err := svc.Query(context.Background(), tc.priceMin, tc.priceMax)
			require.NoError(t, err)
			products, err := service.Collect(seq)
			require.NoError(t, err)

			assert.Equal(t, tc.expected, ids(products))
			assert.Equal(t, tc.findCalls, store.Calls("Find"))
		})
	}
}

func Test_ProductService_Query_SequenceIsSinglePass(t *testing.T) {
	svc := service.NewProductService(servicetest.NewMemStore(seed()...))

	seq, err := svc.Query(context.Background(), nil, nil)
	require.NoError(t, err)

	first, err := service.Collect(seq)
	require.NoError(t, err)
	second, err := service.Collect(seq)
	require.NoError(t, err)

	assert.Len(t, first, 3)
	assert.Empty(t, second)
}

func Test_ProductService_Query_FindErrorIsNotWrapped(t *testing.T) {
	storeErr := errors.New("find failed")
	store := servicetest.NewMemStore(seed()...)
	store.FindErr = storeErr
	svc := service.NewProductService(store)

	seq, err := svc.Query(context.Background(), ptr(1.0), nil)

	assert.Nil(t, seq)
	assert.Same(t, storeErr, err)
}

// cursorStore serves a prepared cursor from Find.
type cursorStore struct {
	*servicetest.MemStore
	cursor *servicetest.SliceCursor
}

func (s *cursorStore) Find(context.Context, bson.M) (service.Cursor, error) {
	return s.cursor, nil
}

func Test_ProductService_Query_IterationError(t *testing.T) {
	iterErr := errors.New("cursor killed")
	cursor := &servicetest.SliceCursor{Products: seed(), FailAt: 1, FailErr: iterErr}
	svc := service.NewProductService(&cursorStore{MemStore: servicetest.NewMemStore(), cursor: cursor})

	seq, err := svc.Query(context.Background(), nil, nil)
	require.NoError(t, err)

	var got []uuid.UUID
	var gotErr error
	for p, err := range seq {
		if err != nil {
			gotErr = err
			break
		}
		got = append(got, p.ID)
	}

	assert.Equal(t, []uuid.UUID{u1}, got)
	assert.Same(t, iterErr, gotErr)
	assert.True(t, cursor.Closed)
}

func Test_ProductService_Query_EarlyBreakClosesCursor(t *testing.T) {
	cursor := &servicetest.SliceCursor{Products: seed()}
	svc := service.NewProductService(&cursorStore{MemStore: servicetest.NewMemStore(), cursor: cursor})

	seq, err := svc.Query(context.Background(), nil, nil)
	require.NoError(t, err)
	for range seq {
		break
	}

	assert.True(t, cursor.Closed)
}

func Test_ProductService_Update_PartialMerge(t *testing.T) {
	ctx := context.Background()
	store := servicetest.NewMemStore(seed()...)
	svc := service.NewProductService(store)
	start := model.Now()

	updated, err := svc.Update(ctx, u2, model.ProductUpdate{Name: ptr("x")})
	require.NoError(t, err)

	assert.Equal(t, "x", updated.Name)
	assert.Equal(t, 7.5, updated.Price)
	assert.Equal(t, 8, updated.Quantity)
	assert.Equal(t, createdAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(start))

	found, err := svc.Get(ctx, u2)
	require.NoError(t, err)
	assert.Equal(t, updated, found)
}

func Test_ProductService_Update_ExplicitUpdatedAt(t *testing.T) {
	at := time.Date(2023, 6, 1, 12, 30, 0, 0, time.UTC)
	svc := service.NewProductService(servicetest.NewMemStore(seed()...))

	updated, err := svc.Update(context.Background(), u1, model.ProductUpdate{Quantity: ptr(0), UpdatedAt: &at})
	require.NoError(t, err)

	assert.Equal(t, at, updated.UpdatedAt)
	assert.Equal(t, 0, updated.Quantity)
}

func Test_ProductService_Update_UsesClock(t *testing.T) {
	at := time.Date(2025, 2, 2, 2, 2, 2, 0, time.UTC)
	svc := service.NewProductService(servicetest.NewMemStore(seed()...)).
		WithClock(func() time.Time { return at })

	updated, err := svc.Update(context.Background(), u1, model.ProductUpdate{Status: ptr(false)})
	require.NoError(t, err)

	assert.Equal(t, at, updated.UpdatedAt)
	assert.False(t, updated.Status)
}

func Test_ProductService_Update_NotFound(t *testing.T) {
	store := servicetest.NewMemStore(seed()...)
	svc := service.NewProductService(store)

	updated, err := svc.Update(context.Background(), uuid.New(), model.ProductUpdate{Name: ptr("x")})

	assert.Nil(t, updated)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, 0, store.Calls("FindOneAndUpdate"))
}

func Test_ProductService_Update_VanishedBeforeMerge(t *testing.T) {
	store := servicetest.NewMemStore(seed()...)
	store.BeforeMutation = func(s *servicetest.MemStore) { s.Remove(u1) }
	svc := service.NewProductService(store)

	updated, err := svc.Update(context.Background(), u1, model.ProductUpdate{Name: ptr("x")})

	assert.Nil(t, updated)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, 1, store.Calls("FindOneAndUpdate"))
}

func Test_ProductService_Delete(t *testing.T) {
	ctx := context.Background()
	store := servicetest.NewMemStore(seed()...)
	svc := service.NewProductService(store)

	deleted, err := svc.Delete(ctx, u1)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = svc.Get(ctx, u1)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func Test_ProductService_Delete_NotFound(t *testing.T) {
	store := servicetest.NewMemStore(seed()...)
	svc := service.NewProductService(store)

	deleted, err := svc.Delete(context.Background(), uuid.New())

	assert.False(t, deleted)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, 0, store.Calls("DeleteOne"))
}

func Test_ProductService_Delete_VanishedBeforeDelete(t *testing.T) {
	store := servicetest.NewMemStore(seed()...)
	store.BeforeMutation = func(s *servicetest.MemStore) { s.Remove(u1) }
	svc := service.NewProductService(store)

	deleted, err := svc.Delete(context.Background(), u1)

	require.NoError(t, err)
	assert.False(t, deleted)
}

func Test_ProductService_Delete_StoreErrorIsNotWrapped(t *testing.T) {
	storeErr := errors.New("not primary")
	store := servicetest.NewMemStore(seed()...)
	store.DeleteErr = storeErr
	svc := service.NewProductService(store)

	deleted, err := svc.Delete(context.Background(), u1)

	assert.False(t, deleted)
	assert.Same(t, storeErr, err)
	assert.Equal(t, apperror.Kind(0), apperror.KindOf(err))
}

func Test_PriceFilter(t *testing.T) {
	filter, ok := service.PriceFilter(ptr(5000.0), ptr(8000.0))
	require.True(t, ok)
	assert.Equal(t, bson.M{"price": bson.M{"$gt": 5.0, "$lt": 8.0}}, filter)

	filter, ok = service.PriceFilter(nil, nil)
	require.True(t, ok)
	assert.Empty(t, filter)

	_, ok = service.PriceFilter(ptr(2.0), ptr(1.0))
	assert.False(t, ok)
}
