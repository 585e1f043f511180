// internal/fetch/fetcher_test.go
package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/loomworks/loom-backend/internal/domain"
)

func TestNormalizeArray(t *testing.T) {
	records, err := Normalize([]byte(`[{"id": 1}, {"id": 2}]`), "orders")
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, float64(1), records[0]["id"])
}

func TestNormalizeKeyedObject(t *testing.T) {
	raw := []byte(`{"meta": {"page": 1}, "orders": [{"id": 7}]}`)
	records, err := Normalize(raw, "orders")
	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, float64(7), records[0]["id"])
}

func TestNormalizeObjectFallback(t *testing.T) {
	// No table-name key: the object's values become the records, in key order.
	raw := []byte(`{"b": {"id": 2}, "a": {"id": 1}}`)
	records, err := Normalize(raw, "orders")
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, float64(1), records[0]["id"])
	assert.Equal(t, float64(2), records[1]["id"])
}

func TestNormalizeRejectsScalars(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{"bare number", `42`},
		{"bare string", `"hello"`},
		{"empty body", ``},
		{"array of scalars", `[1, 2, 3]`},
		{"invalid json", `{`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize([]byte(tc.raw), "orders")
			assert.ErrorIs(t, err, ErrUnrecognizedPayload)
		})
	}
}

func TestFetchTable(t *testing.T) {
	assert := assert.New(t)
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"orders": [{"id": 1, "user_id": 42}]}`))
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)
	table := domain.Table{
		Name:     "orders",
		Endpoint: domain.Endpoint{APIURL: server.URL, AuthToken: "tok-123"},
	}

	records, err := client.FetchTable(context.Background(), table)
	assert.NoError(err)
	assert.Len(records, 1)
	assert.Equal("Bearer tok-123", gotAuth)
}

func TestFetchTableUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)
	table := domain.Table{Name: "orders", Endpoint: domain.Endpoint{APIURL: server.URL}}

	_, err := client.FetchTable(context.Background(), table)
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestIntrospectConnection(t *testing.T) {
	assert := assert.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"users": [{"id": 1, "name": "alice"}],
			"orders": [{"id": 100, "user_id": 1}],
			"empty": [],
			"meta": {"page": 1}
		}`))
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)
	discovered, names, err := client.IntrospectConnection(context.Background(), server.URL, "tok")
	assert.NoError(err)

	// Empty arrays and non-array values are not tables; names come sorted.
	assert.Equal([]string{"orders", "users"}, names)
	assert.Len(discovered["users"], 1)
	assert.Len(discovered["orders"], 1)
}

func TestIntrospectConnectionRejectsArrayBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": 1}]`))
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)
	_, _, err := client.IntrospectConnection(context.Background(), server.URL, "tok")
	assert.ErrorIs(t, err, ErrUnrecognizedPayload)
}
