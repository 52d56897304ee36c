package chroma

import (
	"context"
	"fmt"
	"log"
	"os"

	"mailbridge-backend/pkg/config"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
)

type ChromaClient struct {
	client     chroma.Client
	embedFunc  *gemini.GeminiEmbeddingFunction
	config     *config.Config
	collection chroma.Collection // Pre-created collection
}

func NewChromaClient(cfg *config.Config) (*ChromaClient, error) {
	if cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY is required")
	}

	// Set environment variable for Gemini API key if needed
	if cfg.GeminiApiKey != "" {
		os.Setenv("GEMINI_API_KEY", cfg.GeminiApiKey)
	}

	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	// Chroma Cloud endpoint - https://api.trychroma.com:8000/api/v2
	var client chroma.Client
	if cfg.ChromaDatabase != "" && cfg.ChromaTenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant),
		)
	} else if cfg.ChromaTenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithTenant(cfg.ChromaTenant),
		)
	} else {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
		)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	ctx := context.Background()
	collection, err := client.GetOrCreateCollection(
		ctx,
		"documents",
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("Initialized Chroma client with collection: documents")

	return &ChromaClient{
		client:     client,
		embedFunc:  embedFunc,
		config:     cfg,
		collection: collection,
	}, nil
}

// GetCollection returns the pre-created collection
func (c *ChromaClient) GetCollection() chroma.Collection {
	return c.collection
}

// UpsertDocumentEmbedding upserts the embedding for one indexed
// attachment. The content hash keys the document, so re-syncing the
// same attachment never produces duplicates.
func (c *ChromaClient) UpsertDocumentEmbedding(ctx context.Context, contentHash, userID, filename, summary string) error {
	collection := c.GetCollection()

	text := fmt.Sprintf("Filename: %s\n\nSummary: %s", filename, summary)
	if len(text) > 10000 {
		// Truncate if too long (embedding models have token limits)
		text = text[:10000]
	}

	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"user_id":  userID,
		"filename": filename,
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = collection.Upsert(
		ctx,
		chroma.WithIDs(chroma.DocumentID(contentHash)),
		chroma.WithMetadatas(metadata),
		chroma.WithTexts(text),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document embedding: %w", err)
	}

	return nil
}

// SemanticSearch returns the content hashes of the user's documents
// closest to the query, with their distances.
func (c *ChromaClient) SemanticSearch(ctx context.Context, userID, query string, limit int) ([]string, []float64, error) {
	collection := c.GetCollection()
	if collection == nil {
		return nil, nil, fmt.Errorf("collection is nil")
	}

	where := chroma.EqString("user_id", userID)

	results, err := collection.Query(
		ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(limit),
		chroma.WithWhereQuery(where),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query collection: %w", err)
	}

	if results == nil || results.CountGroups() == 0 {
		return []string{}, []float64{}, nil
	}

	idGroups := results.GetIDGroups()
	distanceGroups := results.GetDistancesGroups()

	if len(idGroups) == 0 || len(idGroups[0]) == 0 {
		return []string{}, []float64{}, nil
	}

	hashes := make([]string, 0, len(idGroups[0]))
	for _, id := range idGroups[0] {
		hashes = append(hashes, string(id))
	}

	distances := []float64{}
	if len(distanceGroups) > 0 && len(distanceGroups[0]) > 0 {
		for _, d := range distanceGroups[0] {
			distances = append(distances, float64(d))
		}
	}

	return hashes, distances, nil
}

func (c *ChromaClient) DeleteDocumentEmbedding(ctx context.Context, contentHash string) error {
	collection := c.GetCollection()

	err := collection.Delete(ctx, chroma.WithIDsDelete(chroma.DocumentID(contentHash)))
	if err != nil {
		return fmt.Errorf("failed to delete document embedding: %w", err)
	}

	return nil
}
