// internal/inquiry/service.go
package inquiry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/loomworks/loom-backend/internal/domain"
	"github.com/loomworks/loom-backend/internal/join"
	"github.com/loomworks/loom-backend/internal/logger"
	"github.com/loomworks/loom-backend/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

// ModelClient is the slice of the model boundary the orchestrator needs.
type ModelClient interface {
	SummarizeData(ctx context.Context, targetUserID string, payload []byte) (string, error)
	DecomposeInquiry(ctx context.Context, content string) (string, error)
}

// Service composes the join engine, the schema formatter and the model
// boundary into the prepare operation, and persists the resulting run.
type Service struct {
	db       *sql.DB
	engine   *join.Engine
	model    ModelClient
	deadline time.Duration
}

// NewService wires the inquiry orchestrator.
func NewService(db *sql.DB, engine *join.Engine, model ModelClient, deadline time.Duration) *Service {
	return &Service{db: db, engine: engine, model: model, deadline: deadline}
}

// PrepareResult is returned to the caller after a successful run.
type PrepareResult struct {
	DataSummary     string `json:"dataSummary"`
	InquiryElements string `json:"inquiryElements"`
	InquiryRunID    int64  `json:"inquiryRunId"`
}

// modelPayload is the exact structure serialized for the summary call.
type modelPayload struct {
	TargetUserID string       `json:"targetUserId"`
	Schema       Schema       `json:"schema"`
	Data         *join.Result `json:"data"`
}

// Prepare runs one inquiry preparation for an account: load the selected
// categories' tables and relations, collect the target user's records,
// summarize, decompose the inquiry, persist the write-once run record.
// Any model-call failure aborts the run before persistence.
func (s *Service) Prepare(ctx context.Context, userID, targetUserID, inquiryContent string, categoryIDs []int64) (*PrepareResult, error) {
	started := time.Now()

	categories, err := storage.ListCategoriesByID(ctx, s.db, userID, categoryIDs)
	if err != nil {
		return nil, err
	}
	tableNames := make([]string, 0)
	seen := make(map[string]bool)
	for _, cat := range categories {
		for _, name := range cat.Tables {
			if !seen[name] {
				seen[name] = true
				tableNames = append(tableNames, name)
			}
		}
	}

	tables, err := storage.ListTablesByName(ctx, s.db, userID, tableNames)
	if err != nil {
		return nil, err
	}
	allRelations, err := storage.ListRelations(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	// Only relations whose both endpoints are selected participate.
	relations := make([]domain.Relation, 0, len(allRelations))
	for _, rel := range allRelations {
		if seen[rel.FromTable] && seen[rel.ToTable] {
			relations = append(relations, rel)
		}
	}

	// The fixpoint can issue O(tables × relations) fetches worst case;
	// the deadline bounds total run latency.
	runCtx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	data, err := s.engine.Collect(runCtx, targetUserID, tables, relations)
	if err != nil {
		return nil, err
	}
	customLog.Printf("Inquiry: collected %d tables for target user %s in %v",
		data.Len(), targetUserID, time.Since(started))

	schema := FormatSchema(tables, relations)
	payload, err := json.Marshal(modelPayload{
		TargetUserID: targetUserID,
		Schema:       schema,
		Data:         data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode model payload: %w", err)
	}

	dataSummary, err := s.model.SummarizeData(runCtx, targetUserID, payload)
	if err != nil {
		return nil, err
	}
	inquiryElements, err := s.model.DecomposeInquiry(runCtx, inquiryContent)
	if err != nil {
		return nil, err
	}

	runID, err := storage.CreateInquiryRun(ctx, s.db, domain.InquiryRun{
		UserID:          userID,
		TargetUserID:    targetUserID,
		InquiryContent:  inquiryContent,
		DataSummary:     dataSummary,
		InquiryElements: inquiryElements,
	})
	if err != nil {
		return nil, err
	}

	customLog.Printf("Inquiry: run %d completed in %v", runID, time.Since(started))
	return &PrepareResult{
		DataSummary:     dataSummary,
		InquiryElements: inquiryElements,
		InquiryRunID:    runID,
	}, nil
}
