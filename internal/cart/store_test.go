package cart

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type failingStorage struct {
	readValue string
	readFound bool
	readErr   error
	writeErr  error
	writes    int
}

func (f *failingStorage) Read(context.Context, string) (string, bool, error) {
	return f.readValue, f.readFound, f.readErr
}

func (f *failingStorage) Write(context.Context, string, string) error {
	f.writes++
	return f.writeErr
}

type countingObserver struct {
	mutations map[string]int
	failures  map[string]int
	loads     map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{
		mutations: map[string]int{},
		failures:  map[string]int{},
		loads:     map[string]int{},
	}
}

func (o *countingObserver) Mutation(op string)       { o.mutations[op]++ }
func (o *countingObserver) StorageFailure(op string) { o.failures[op]++ }
func (o *countingObserver) Loaded(result string)     { o.loads[result]++ }

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func caseProduct() Product {
	return Product{
		ID:         7,
		Name:       "Case",
		Price:      dec("20"),
		PromoPrice: decimal.NewNullDecimal(dec("15")),
		ImageURL:   "https://img/case.png",
	}
}

func TestSnapshotPrice(t *testing.T) {
	p := Product{ID: 1, Price: dec("20")}
	require.True(t, p.SnapshotPrice().Equal(dec("20")))

	p.PromoPrice = decimal.NewNullDecimal(dec("0"))
	require.True(t, p.SnapshotPrice().Equal(dec("20")), "zero promo falls back to price")

	p.PromoPrice = decimal.NewNullDecimal(dec("12.5"))
	require.True(t, p.SnapshotPrice().Equal(dec("12.5")))
}

func TestStoreScenarioPromoThenRemoveOne(t *testing.T) {
	ctx := context.Background()
	store := Open(ctx, NewMemoryStorage())

	store.AddToCart(ctx, caseProduct(), 2)
	items := store.Items()
	require.Len(t, items, 1)
	require.Equal(t, ProductID(7), items[0].ProductID)
	require.True(t, items[0].UnitPrice.Equal(dec("15")))
	require.Equal(t, 2, items[0].Quantity)
	require.True(t, store.Total().Equal(dec("30")))
	require.Equal(t, 2, store.Count())

	store.RemoveOneFromCart(ctx, 7)
	require.Equal(t, 1, store.Items()[0].Quantity)
	require.True(t, store.Total().Equal(dec("15")))

	store.RemoveOneFromCart(ctx, 7)
	require.Equal(t, 0, store.Len())
	require.True(t, store.Total().IsZero())
	require.Equal(t, 0, store.Count())
}

func TestStoreScenarioClear(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	store := Open(ctx, storage)

	store.AddToCart(ctx, Product{ID: 1, Name: "A", Price: dec("10")}, 1)
	store.AddToCart(ctx, Product{ID: 2, Name: "B", Price: dec("4.5")}, 3)
	store.ClearCart(ctx)

	require.Equal(t, 0, store.Len())
	require.Equal(t, 0, store.Count())
	require.True(t, store.Total().IsZero())

	raw, found, err := storage.Read(ctx, StorageKey)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "[]", raw)
}

func TestAddMergesAndKeepsFirstSnapshot(t *testing.T) {
	ctx := context.Background()
	store := Open(ctx, NewMemoryStorage())

	store.AddToCart(ctx, caseProduct(), 1)
	updated := caseProduct()
	updated.Name = "Case v2"
	updated.PromoPrice = decimal.NullDecimal{}
	updated.ImageURL = "https://img/new.png"
	store.AddToCart(ctx, updated, 4)

	items := store.Items()
	require.Len(t, items, 1)
	require.Equal(t, 5, items[0].Quantity)
	require.Equal(t, "Case", items[0].Name)
	require.Equal(t, "https://img/case.png", items[0].ImageURL)
	require.True(t, items[0].UnitPrice.Equal(dec("15")))
}

func TestAddNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	store := Open(ctx, NewMemoryStorage())

	store.AddToCart(ctx, caseProduct(), 0)
	store.AddToCart(ctx, caseProduct(), -2)
	require.Equal(t, 0, store.Len(), "non-positive add on an absent product is ignored")

	store.AddToCart(ctx, caseProduct(), 3)
	store.AddToCart(ctx, caseProduct(), -1)
	require.Equal(t, 2, store.Count())

	store.AddToCart(ctx, caseProduct(), -5)
	require.Equal(t, 0, store.Len(), "a line reaching zero is dropped")
}

func TestUniquenessUnderRandomAdds(t *testing.T) {
	ctx := context.Background()
	store := Open(ctx, NewMemoryStorage())
	rng := rand.New(rand.NewSource(42))

	expected := map[ProductID]int{}
	for i := 0; i < 200; i++ {
		id := ProductID(rng.Intn(6))
		qty := rng.Intn(4) + 1
		store.AddToCart(ctx, Product{ID: id, Name: "p", Price: dec("1.25")}, qty)
		expected[id] += qty
	}

	seen := map[ProductID]bool{}
	for _, item := range store.Items() {
		require.False(t, seen[item.ProductID], "duplicate line for %d", item.ProductID)
		seen[item.ProductID] = true
		require.Equal(t, expected[item.ProductID], item.Quantity)
	}
	require.Len(t, seen, len(expected))
}

func TestRemovalFloor(t *testing.T) {
	ctx := context.Background()
	store := Open(ctx, NewMemoryStorage())
	store.AddToCart(ctx, Product{ID: 3, Name: "Screen", Price: dec("89.9")}, 4)
	store.AddToCart(ctx, Product{ID: 4, Name: "Cable", Price: dec("9")}, 1)

	for i := 0; i < 3; i++ {
		store.RemoveOneFromCart(ctx, 3)
		require.Equal(t, 2, store.Len())
	}
	store.RemoveOneFromCart(ctx, 3)
	require.Equal(t, 1, store.Len())

	store.RemoveOneFromCart(ctx, 3)
	store.RemoveOneFromCart(ctx, 3)
	require.Equal(t, 1, store.Len())
	require.Equal(t, ProductID(4), store.Items()[0].ProductID)
}

func TestRemoveFromCartAbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{}
	obs := newCountingObserver()
	store := Open(ctx, storage, WithObserver(obs))

	store.RemoveFromCart(ctx, 99)
	store.RemoveOneFromCart(ctx, 99)
	require.Equal(t, 0, storage.writes)
	require.Empty(t, obs.mutations)

	store.AddToCart(ctx, caseProduct(), 9)
	store.RemoveFromCart(ctx, 7)
	require.Equal(t, 0, store.Len())
	require.Equal(t, 2, storage.writes)
}

func TestTotalsPreserveDecimalPrecision(t *testing.T) {
	ctx := context.Background()
	store := Open(ctx, NewMemoryStorage())
	store.AddToCart(ctx, Product{ID: 1, Name: "a", Price: dec("0.1")}, 3)
	store.AddToCart(ctx, Product{ID: 2, Name: "b", Price: dec("0.2")}, 1)

	require.Equal(t, "0.5", store.Total().String())
	require.Equal(t, 4, store.Count())
}

func TestWriteThroughRestoresInNewStore(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	first := Open(ctx, storage)
	first.AddToCart(ctx, caseProduct(), 2)
	first.AddToCart(ctx, Product{ID: 8, Name: "Glass", Price: dec("9.99")}, 1)

	second := Open(ctx, storage)
	require.True(t, first.Items().Equal(second.Items()))
	require.True(t, second.Total().Equal(dec("39.99")))
}

func TestOpenFallsBackOnMalformedData(t *testing.T) {
	ctx := context.Background()
	cases := []string{"", "not json", "{}", "null", `[{"name":"x","price":1,"quantity":1}]`}
	for _, raw := range cases {
		obs := newCountingObserver()
		store := Open(ctx, &failingStorage{readValue: raw, readFound: true}, WithObserver(obs))
		require.Equal(t, 0, store.Len(), "raw %q", raw)
		require.Equal(t, 1, obs.loads["fallback"])
		require.Equal(t, 1, obs.failures["decode"])
	}
}

func TestOpenFallsBackOnReadError(t *testing.T) {
	obs := newCountingObserver()
	store := Open(context.Background(), &failingStorage{readErr: errors.New("io")}, WithObserver(obs))
	require.Equal(t, 0, store.Len())
	require.Equal(t, 1, obs.failures["read"])
	require.Equal(t, 1, obs.loads["fallback"])
}

func TestWriteFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{writeErr: errors.New("quota exceeded")}
	obs := newCountingObserver()
	store := Open(ctx, storage, WithObserver(obs))

	store.AddToCart(ctx, caseProduct(), 1)
	require.Equal(t, 1, store.Count(), "in-memory state stays authoritative")
	require.Equal(t, 1, obs.failures["write"])
	require.Equal(t, 1, obs.mutations["add"])
}

type ctxCheckingStorage struct {
	MemoryStorage
	sawCanceled bool
	deadline    bool
}

func (c *ctxCheckingStorage) Write(ctx context.Context, key, value string) error {
	c.sawCanceled = ctx.Err() != nil
	_, c.deadline = ctx.Deadline()
	return c.MemoryStorage.Write(ctx, key, value)
}

func TestWriteSurvivesCallerCancellation(t *testing.T) {
	storage := &ctxCheckingStorage{MemoryStorage: MemoryStorage{data: map[string]string{}}}
	store := Open(context.Background(), storage, WithWriteTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store.AddToCart(ctx, caseProduct(), 1)

	require.False(t, storage.sawCanceled)
	require.True(t, storage.deadline)
	_, found, _ := storage.Read(context.Background(), StorageKey)
	require.True(t, found)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	store := Open(ctx, NewMemoryStorage())

	var got []Summary
	unsubscribe := store.Subscribe(func(s Summary) { got = append(got, s) })

	store.AddToCart(ctx, caseProduct(), 2)
	store.RemoveFromCart(ctx, 123)
	store.RemoveOneFromCart(ctx, 7)
	require.Len(t, got, 2)
	require.Equal(t, 2, got[0].Count)
	require.True(t, got[0].Total.Equal(dec("30")))
	require.Equal(t, 1, got[1].Count)

	unsubscribe()
	unsubscribe()
	store.ClearCart(ctx)
	require.Len(t, got, 2)
}

func TestListenerMayReadStore(t *testing.T) {
	ctx := context.Background()
	store := Open(ctx, NewMemoryStorage())
	var count int
	store.Subscribe(func(Summary) { count = store.Count() })
	store.AddToCart(ctx, caseProduct(), 3)
	require.Equal(t, 3, count)
}

func TestConcurrentMutationsSerialize(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	store := Open(ctx, storage)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.AddToCart(ctx, caseProduct(), 1)
		}()
	}
	wg.Wait()

	require.Equal(t, 50, store.Count())
	restored := Open(ctx, storage)
	require.Equal(t, 50, restored.Count())
}
