// internal/join/engine_test.go
package join

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loomworks/loom-backend/internal/domain"
)

// stubFetcher serves canned records per table and counts fetches.
type stubFetcher struct {
	mu      sync.Mutex
	data    map[string][]domain.Record
	failing map[string]bool
	calls   map[string]int
}

func newStubFetcher(data map[string][]domain.Record) *stubFetcher {
	return &stubFetcher{
		data:    data,
		failing: make(map[string]bool),
		calls:   make(map[string]int),
	}
}

func (f *stubFetcher) FetchTable(_ context.Context, table domain.Table) ([]domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[table.Name]++
	if f.failing[table.Name] {
		return nil, errors.New("upstream unavailable")
	}
	return f.data[table.Name], nil
}

func (f *stubFetcher) callCount(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[table]
}

func makeTable(name string, columns ...domain.Column) domain.Table {
	return domain.Table{Name: name, Columns: columns}
}

func col(name string) domain.Column {
	return domain.Column{Name: name}
}

func idCol(name string) domain.Column {
	return domain.Column{Name: name, IsUserID: true}
}

// shopFixture is a three-table shop: users seeds, orders joins on user_id,
// order_items joins on order_id two hops out.
func shopFixture() ([]domain.Table, []domain.Relation, *stubFetcher) {
	tables := []domain.Table{
		makeTable("users", idCol("id"), col("name")),
		makeTable("orders", col("id"), col("user_id"), col("amount")),
		makeTable("order_items", col("id"), col("order_id"), col("sku")),
	}
	relations := []domain.Relation{
		{FromTable: "users", FromColumn: "id", ToTable: "orders", ToColumn: "user_id"},
		{FromTable: "orders", FromColumn: "id", ToTable: "order_items", ToColumn: "order_id"},
	}
	fetcher := newStubFetcher(map[string][]domain.Record{
		"users": {
			{"id": float64(42), "name": "alice"},
			{"id": float64(7), "name": "bob"},
		},
		"orders": {
			{"id": float64(100), "user_id": float64(42), "amount": float64(500)},
			{"id": float64(101), "user_id": float64(7), "amount": float64(80)},
			{"id": float64(102), "user_id": float64(42), "amount": float64(1200)},
		},
		"order_items": {
			{"id": float64(1), "order_id": float64(100), "sku": "A"},
			{"id": float64(2), "order_id": float64(101), "sku": "B"},
			{"id": float64(3), "order_id": float64(102), "sku": "C"},
		},
	})
	return tables, relations, fetcher
}

func TestCollectMultiHop(t *testing.T) {
	assert := assert.New(t)
	tables, relations, fetcher := shopFixture()
	engine := NewEngine(fetcher)

	result, err := engine.Collect(context.Background(), "42", tables, relations)
	assert.NoError(err)
	assert.Equal(3, result.Len())

	users := result.Records("users")
	assert.Len(users, 1)
	assert.Equal("alice", users[0]["name"])

	orders := result.Records("orders")
	assert.Len(orders, 2)
	for _, rec := range orders {
		assert.Equal(float64(42), rec["user_id"])
	}

	// Items reached through alice's orders only; bob's item B stays out.
	items := result.Records("order_items")
	assert.Len(items, 2)
	skus := map[string]bool{}
	for _, rec := range items {
		skus[rec["sku"].(string)] = true
	}
	assert.True(skus["A"])
	assert.True(skus["C"])
	assert.False(skus["B"])
}

func TestCollectNumericIdentifierMatchesString(t *testing.T) {
	// JSON numbers arrive as float64; "42" must match 42.0 but not 42.5.
	tables := []domain.Table{makeTable("users", idCol("id"))}
	fetcher := newStubFetcher(map[string][]domain.Record{
		"users": {
			{"id": float64(42)},
			{"id": 42.5},
			{"id": "42"},
			{"id": nil},
		},
	})
	engine := NewEngine(fetcher)

	result, err := engine.Collect(context.Background(), "42", tables, nil)
	assert.NoError(t, err)
	assert.Len(t, result.Records("users"), 2)
}

func TestCollectReverseRelationDirection(t *testing.T) {
	// The seeded table sits on the To side of the declared edge; traversal
	// must still reach the From side.
	tables := []domain.Table{
		makeTable("profiles", idCol("account_id"), col("plan")),
		makeTable("invoices", col("id"), col("account")),
	}
	relations := []domain.Relation{
		{FromTable: "invoices", FromColumn: "account", ToTable: "profiles", ToColumn: "account_id"},
	}
	fetcher := newStubFetcher(map[string][]domain.Record{
		"profiles": {{"account_id": "u-1", "plan": "pro"}},
		"invoices": {
			{"id": float64(1), "account": "u-1"},
			{"id": float64(2), "account": "u-2"},
		},
	})
	engine := NewEngine(fetcher)

	result, err := engine.Collect(context.Background(), "u-1", tables, relations)
	assert.NoError(t, err)
	assert.Len(t, result.Records("invoices"), 1)
	assert.Equal(t, float64(1), result.Records("invoices")[0]["id"])
}

func TestCollectTerminatesOnCycle(t *testing.T) {
	// a → b → c → a. Each table is committed once, so the cycle cannot spin.
	tables := []domain.Table{
		makeTable("a", idCol("uid"), col("b_ref")),
		makeTable("b", col("id"), col("c_ref")),
		makeTable("c", col("id"), col("a_ref")),
	}
	relations := []domain.Relation{
		{FromTable: "a", FromColumn: "b_ref", ToTable: "b", ToColumn: "id"},
		{FromTable: "b", FromColumn: "c_ref", ToTable: "c", ToColumn: "id"},
		{FromTable: "c", FromColumn: "a_ref", ToTable: "a", ToColumn: "uid"},
	}
	fetcher := newStubFetcher(map[string][]domain.Record{
		"a": {{"uid": "x", "b_ref": "b1"}},
		"b": {{"id": "b1", "c_ref": "c1"}},
		"c": {{"id": "c1", "a_ref": "x"}},
	})
	engine := NewEngine(fetcher)

	result, err := engine.Collect(context.Background(), "x", tables, relations)
	assert.NoError(t, err)
	assert.Equal(t, 3, result.Len())
	for _, name := range []string{"a", "b", "c"} {
		assert.Len(t, result.Records(name), 1)
	}
}

func TestCollectFetchFailureSkipsTable(t *testing.T) {
	assert := assert.New(t)
	tables, relations, fetcher := shopFixture()
	fetcher.failing["orders"] = true
	engine := NewEngine(fetcher)

	result, err := engine.Collect(context.Background(), "42", tables, relations)
	assert.NoError(err)

	// users still seeds; orders is unreachable, and so is everything behind it.
	assert.Len(result.Records("users"), 1)
	assert.Nil(result.Records("orders"))
	assert.Nil(result.Records("order_items"))

	// The failure is cached: one attempt for the whole run.
	assert.Equal(1, fetcher.callCount("orders"))
}

func TestCollectFetchesEachTableOnce(t *testing.T) {
	tables, relations, fetcher := shopFixture()
	engine := NewEngine(fetcher)

	_, err := engine.Collect(context.Background(), "42", tables, relations)
	assert.NoError(t, err)
	for _, name := range []string{"users", "orders", "order_items"} {
		assert.Equal(t, 1, fetcher.callCount(name), "table %s", name)
	}
}

func TestCollectUnreachableTableExcluded(t *testing.T) {
	// A table with no identity column and no relation path never appears,
	// and is never fetched during expansion without usable edges.
	tables := []domain.Table{
		makeTable("users", idCol("id")),
		makeTable("island", col("id")),
	}
	fetcher := newStubFetcher(map[string][]domain.Record{
		"users":  {{"id": "9"}},
		"island": {{"id": "9"}},
	})
	engine := NewEngine(fetcher)

	result, err := engine.Collect(context.Background(), "9", tables, nil)
	assert.NoError(t, err)
	assert.Equal(t, []string{"users"}, result.Tables())
	assert.Equal(t, 0, fetcher.callCount("island"))
}

func TestCollectNoMatchesLeavesTableOut(t *testing.T) {
	// Seeding with zero surviving records must not mark the table processed,
	// otherwise empty lists would leak observed-value sets downstream.
	tables, relations, fetcher := shopFixture()
	engine := NewEngine(fetcher)

	result, err := engine.Collect(context.Background(), "9999", tables, relations)
	assert.NoError(t, err)
	assert.Equal(t, 0, result.Len())
}

func TestCollectRunsAreIndependent(t *testing.T) {
	tables, relations, fetcher := shopFixture()
	engine := NewEngine(fetcher)

	first, err := engine.Collect(context.Background(), "42", tables, relations)
	assert.NoError(t, err)
	second, err := engine.Collect(context.Background(), "7", tables, relations)
	assert.NoError(t, err)

	assert.Len(t, first.Records("orders"), 2)
	assert.Len(t, second.Records("orders"), 1)
	assert.Equal(t, "bob", second.Records("users")[0]["name"])
}

func TestCollectCancelledContext(t *testing.T) {
	tables, relations, fetcher := shopFixture()
	engine := NewEngine(fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.Collect(ctx, "42", tables, relations)
	assert.Error(t, err)
}

func TestResultMarshalPreservesOrder(t *testing.T) {
	r := newResult()
	r.add("zulu", []domain.Record{{"v": float64(1)}})
	r.add("alpha", []domain.Record{})

	out, err := r.MarshalJSON()
	assert.NoError(t, err)
	assert.JSONEq(t, `{"zulu":[{"v":1}],"alpha":[]}`, string(out))
	// Key order itself is part of the contract.
	assert.Equal(t, `{"zulu":[{"v":1}],"alpha":[]}`, string(out))
}

func TestStringCast(t *testing.T) {
	testCases := []struct {
		name   string
		input  any
		want   string
		wantOk bool
	}{
		{"nil never matches", nil, "", false},
		{"string passthrough", "abc", "abc", true},
		{"whole float", float64(42), "42", true},
		{"fractional float", 42.5, "42.5", true},
		{"bool", true, "true", true},
		{"int", 7, "7", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := stringCast(tc.input)
			assert.Equal(t, tc.wantOk, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
