// internal/llm/client.go
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/loomworks/loom-backend/config"
	"github.com/loomworks/loom-backend/internal/logger"
)

// Specific errors for the model boundary
var (
	ErrModelCall         = errors.New("model call failed")
	ErrMalformedResponse = errors.New("malformed model response")
	customLog            = logger.NewLogger()
)

const summarySystemPrompt = `Generate a summary focused on the characteristics and trends of the data related to user ID %s.

Pay particular attention to the following:
- Columns marked isUserId: true contain the user identifier
- Consider the relations between tables
- Interpret values through their value mappings

Summarize only the characteristics and trends of the actual data, concisely.`

const decomposeSystemPrompt = `Break the inquiry down into its elements and identify the data each element requires.`

const categorySystemPrompt = `You are an assistant that analyzes table structures and proposes appropriate categories.
Always respect this constraint:
every category must contain at least one table with a user ID column (isUserId = true).

Answer in exactly this format:
{
  "categories": [
    {
      "name": "category name",
      "tables": ["table1", "table2"]
    }
  ]
}`

// CategoryProposal is one model-suggested grouping of tables.
type CategoryProposal struct {
	Name   string   `json:"name"`
	Tables []string `json:"tables"`
}

// Client wraps the OpenAI API for the handful of calls this service makes.
// Constructed once per process from config; no package-level singletons.
type Client struct {
	api *openai.Client
}

// NewClient builds a model client from configuration.
func NewClient(cfg *config.Config) *Client {
	apiCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		apiCfg.BaseURL = cfg.OpenAIBaseURL
	}
	return &Client{api: openai.NewClientWithConfig(apiCfg)}
}

func (c *Client) chat(ctx context.Context, model, system, user string, maxTokens int) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		customLog.Warnf("LLM: chat completion failed: %v", err)
		return "", fmt.Errorf("%w: %v", ErrModelCall, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// SummarizeData generates the data summary over the prepared inquiry
// payload (target user id, schema projection and collected records).
func (c *Client) SummarizeData(ctx context.Context, targetUserID string, payload []byte) (string, error) {
	system := fmt.Sprintf(summarySystemPrompt, targetUserID)
	return c.chat(ctx, openai.GPT3Dot5Turbo, system, string(payload), 0)
}

// DecomposeInquiry breaks free-text inquiry content into its elements.
func (c *Client) DecomposeInquiry(ctx context.Context, content string) (string, error) {
	return c.chat(ctx, openai.GPT3Dot5Turbo, decomposeSystemPrompt, content, 0)
}

// GenerateCategories asks the model to group the catalog's tables into
// categories. The response must be the documented JSON shape; anything
// else is ErrMalformedResponse.
func (c *Client) GenerateCategories(ctx context.Context, catalogJSON []byte) ([]CategoryProposal, error) {
	content, err := c.chat(ctx, openai.GPT4, categorySystemPrompt, string(catalogJSON), 2000)
	if err != nil {
		return nil, err
	}
	return ParseCategoryResponse(content)
}

// ParseCategoryResponse decodes the model's category JSON strictly.
func ParseCategoryResponse(content string) ([]CategoryProposal, error) {
	var parsed struct {
		Categories []CategoryProposal `json:"categories"`
	}
	dec := json.NewDecoder(strings.NewReader(content))
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if parsed.Categories == nil {
		return nil, fmt.Errorf("%w: missing categories array", ErrMalformedResponse)
	}
	return parsed.Categories, nil
}

// EmbedText generates an embedding vector for knowledge retrieval.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.SmallEmbedding3,
	})
	if err != nil {
		customLog.Warnf("LLM: embedding failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrModelCall, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", ErrMalformedResponse)
	}
	return resp.Data[0].Embedding, nil
}

// SubmitFineTune uploads a training file and starts a fine-tuning job,
// returning the job id.
func (c *Client) SubmitFineTune(ctx context.Context, filePath, modelName string) (string, error) {
	file, err := c.api.CreateFile(ctx, openai.FileRequest{
		FileName: modelName,
		FilePath: filePath,
		Purpose:  "fine-tune",
	})
	if err != nil {
		customLog.Warnf("LLM: training file upload failed: %v", err)
		return "", fmt.Errorf("%w: %v", ErrModelCall, err)
	}
	job, err := c.api.CreateFineTuningJob(ctx, openai.FineTuningJobRequest{
		TrainingFile: file.ID,
		Model:        openai.GPT3Dot5Turbo,
		Suffix:       modelName,
	})
	if err != nil {
		customLog.Warnf("LLM: fine-tuning job creation failed: %v", err)
		return "", fmt.Errorf("%w: %v", ErrModelCall, err)
	}
	return job.ID, nil
}
