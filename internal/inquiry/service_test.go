// internal/inquiry/service_test.go
package inquiry

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/loomworks/loom-backend/config"
	"github.com/loomworks/loom-backend/internal/domain"
	"github.com/loomworks/loom-backend/internal/join"
	"github.com/loomworks/loom-backend/internal/storage"
)

// fixedFetcher serves canned records per table.
type fixedFetcher struct {
	data map[string][]domain.Record
}

func (f *fixedFetcher) FetchTable(_ context.Context, table domain.Table) ([]domain.Record, error) {
	return f.data[table.Name], nil
}

// stubModel records the payloads it saw and fails on demand.
type stubModel struct {
	summary      string
	summaryErr   error
	elements     string
	decomposeErr error
	payloads     [][]byte
}

func (m *stubModel) SummarizeData(_ context.Context, _ string, payload []byte) (string, error) {
	m.payloads = append(m.payloads, payload)
	if m.summaryErr != nil {
		return "", m.summaryErr
	}
	return m.summary, nil
}

func (m *stubModel) DecomposeInquiry(_ context.Context, _ string) (string, error) {
	if m.decomposeErr != nil {
		return "", m.decomposeErr
	}
	return m.elements, nil
}

// setupService builds a service over a temp SQLite catalog seeded with a
// two-table commerce schema and one category covering both tables.
func setupService(t *testing.T, model ModelClient) (*Service, *sql.DB, string, []int64) {
	t.Helper()
	ctx := context.Background()

	cfg := &config.Config{
		MetadataDbDir:  t.TempDir(),
		MetadataDbFile: "test_metadata.db",
	}
	db, err := storage.ConnectMetadataDB(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	userID := "acct-prepare-test"
	if _, err := storage.CreateUser(ctx, db, userID, "tester", "prepare@integration.com", "hash"); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	connectionID, err := storage.CreateConnection(ctx, db, userID, "http://upstream.invalid", "tok")
	if err != nil {
		t.Fatalf("Failed to create connection: %v", err)
	}

	usersID, err := storage.CreateTable(ctx, db, userID, connectionID, "users")
	assert.NoError(t, err)
	_, err = storage.CreateColumn(ctx, db, usersID, "id", true)
	assert.NoError(t, err)
	_, err = storage.CreateColumn(ctx, db, usersID, "name", false)
	assert.NoError(t, err)

	ordersID, err := storage.CreateTable(ctx, db, userID, connectionID, "orders")
	assert.NoError(t, err)
	_, err = storage.CreateColumn(ctx, db, ordersID, "id", false)
	assert.NoError(t, err)
	_, err = storage.CreateColumn(ctx, db, ordersID, "user_id", false)
	assert.NoError(t, err)

	_, err = storage.CreateRelation(ctx, db, userID, domain.Relation{
		FromTable: "users", FromColumn: "id", ToTable: "orders", ToColumn: "user_id",
	})
	assert.NoError(t, err)

	err = storage.ReplaceCategories(ctx, db, userID, []domain.Category{
		{Name: "Commerce", Tables: []string{"users", "orders"}},
	})
	assert.NoError(t, err)

	categories, err := storage.ListCategories(ctx, db, userID)
	assert.NoError(t, err)
	assert.Len(t, categories, 1)
	categoryIDs := []int64{categories[0].ID}

	fetcher := &fixedFetcher{data: map[string][]domain.Record{
		"users": {
			{"id": float64(42), "name": "alice"},
			{"id": float64(7), "name": "bob"},
		},
		"orders": {
			{"id": float64(100), "user_id": float64(42)},
			{"id": float64(101), "user_id": float64(7)},
		},
	}}
	svc := NewService(db, join.NewEngine(fetcher), model, 30*time.Second)
	return svc, db, userID, categoryIDs
}

func TestPreparePersistsWriteOnceRun(t *testing.T) {
	assert := assert.New(t)
	model := &stubModel{summary: "alice buys often", elements: "1. purchase history"}
	svc, db, userID, categoryIDs := setupService(t, model)

	result, err := svc.Prepare(context.Background(), userID, "42", "Why was I charged twice?", categoryIDs)
	assert.NoError(err)
	assert.Equal("alice buys often", result.DataSummary)
	assert.Equal("1. purchase history", result.InquiryElements)
	assert.NotZero(result.InquiryRunID)

	// The summary payload carries the target and only the target's data.
	assert.Len(model.payloads, 1)
	assert.Contains(string(model.payloads[0]), `"targetUserId":"42"`)
	assert.Contains(string(model.payloads[0]), "alice")
	assert.NotContains(string(model.payloads[0]), "bob")

	runs, err := storage.ListInquiryRuns(context.Background(), db, userID)
	assert.NoError(err)
	assert.Len(runs, 1)
	assert.Equal(result.InquiryRunID, runs[0].ID)
	assert.Equal("42", runs[0].TargetUserID)
	assert.Equal("Why was I charged twice?", runs[0].InquiryContent)
	assert.Equal("alice buys often", runs[0].DataSummary)
	assert.Equal("1. purchase history", runs[0].InquiryElements)
}

func TestPrepareSummaryFailureNotPersisted(t *testing.T) {
	assert := assert.New(t)
	modelErr := errors.New("model unavailable")
	model := &stubModel{summaryErr: modelErr}
	svc, db, userID, categoryIDs := setupService(t, model)

	_, err := svc.Prepare(context.Background(), userID, "42", "inquiry", categoryIDs)
	assert.ErrorIs(err, modelErr)

	runs, err := storage.ListInquiryRuns(context.Background(), db, userID)
	assert.NoError(err)
	assert.Empty(runs, "a failed summary call must not leave a run record")
}

func TestPrepareDecomposeFailureNotPersisted(t *testing.T) {
	assert := assert.New(t)
	modelErr := errors.New("model unavailable")
	model := &stubModel{summary: "fine", decomposeErr: modelErr}
	svc, db, userID, categoryIDs := setupService(t, model)

	_, err := svc.Prepare(context.Background(), userID, "42", "inquiry", categoryIDs)
	assert.ErrorIs(err, modelErr)

	runs, err := storage.ListInquiryRuns(context.Background(), db, userID)
	assert.NoError(err)
	assert.Empty(runs, "a failed decompose call must not leave a run record")
}
