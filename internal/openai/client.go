package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for question embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions, expected 1536")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// Client wraps the OpenAI API behind the matcher's embedding contract.
type Client struct {
	api        EmbeddingAPI
	dimensions int
}

type openAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func newOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *openAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &openAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (a *openAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// NewClient creates a new embedding client using defaults.
func NewClient(apiKey string) *Client {
	return &Client{
		api:        newOpenAIAdapter(apiKey, DefaultEmbeddingModel),
		dimensions: DefaultEmbeddingDimensions,
	}
}

// CreateEmbedding embeds the given text.
func (c *Client) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.api.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	expected := c.dimensions
	if expected <= 0 {
		expected = DefaultEmbeddingDimensions
	}
	if len(embedding) != expected {
		return nil, ErrWrongDimensions
	}

	return embedding, nil
}
