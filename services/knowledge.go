package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/philippgille/chromem-go"

	"cropadvisor/models"
)

// Knowledge base chunking
const (
	tipChunkSize    = 500
	defaultTipLimit = 5
	maxTipLimit     = 20
)

var supportedTipTypes = []string{".txt", ".md", ".pdf"}

var sentenceRegex = regexp.MustCompile(`[.!?।]+\s+`)

// KnowledgeService answers crop-care questions from a folder of documents
// using chromem-go
type KnowledgeService struct {
	db             *chromem.DB
	collection     *chromem.Collection
	embedder       *EmbeddingService
	initialized    bool
	dataPath       string
	collectionName string
	indexedAt      time.Time
}

// NewKnowledgeService creates a new knowledge service instance
func NewKnowledgeService(dataPath, collectionName string, embedder *EmbeddingService) *KnowledgeService {
	if collectionName == "" {
		collectionName = "crop_tips"
	}
	return &KnowledgeService{
		dataPath:       dataPath,
		collectionName: collectionName,
		embedder:       embedder,
	}
}

// Initialize sets up the chromem database and collection
func (k *KnowledgeService) Initialize() error {
	if k.embedder == nil {
		return errors.New("knowledge service needs an embedding service")
	}

	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(k.collectionName, nil, k.embedder.EmbeddingFunc())
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	k.db = db
	k.collection = collection
	k.initialized = true

	log.Printf("Knowledge: initialized collection %s with %s embeddings", k.collectionName, k.embedder.Provider())
	return nil
}

// IndexDocuments chunks and indexes every supported file under the data
// path. A missing data path leaves the knowledge base empty.
func (k *KnowledgeService) IndexDocuments(ctx context.Context) error {
	if !k.initialized {
		return errors.New("knowledge service not initialized")
	}
	if k.dataPath == "" {
		return errors.New("data path not set")
	}
	if _, err := os.Stat(k.dataPath); errors.Is(err, os.ErrNotExist) {
		log.Printf("Knowledge: %s does not exist, tips disabled", k.dataPath)
		return nil
	}

	var documents []chromem.Document
	err := filepath.WalkDir(k.dataPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !isSupportedTipType(ext) {
			log.Printf("Knowledge: skipping unsupported file type: %s", path)
			return nil
		}

		content, err := extractText(path, ext)
		if err != nil {
			log.Printf("Knowledge: failed to extract text from %s: %v", path, err)
			return nil
		}

		rel, err := filepath.Rel(k.dataPath, path)
		if err != nil {
			rel = d.Name()
		}
		chunks := chunkText(content, tipChunkSize)
		for i, chunk := range chunks {
			documents = append(documents, chromem.Document{
				ID:      fmt.Sprintf("%s#%d", filepath.ToSlash(rel), i),
				Content: chunk,
				Metadata: map[string]string{
					"file_name":    d.Name(),
					"file_path":    path,
					"file_type":    ext,
					"chunk_index":  fmt.Sprintf("%d", i),
					"total_chunks": fmt.Sprintf("%d", len(chunks)),
				},
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk data directory: %w", err)
	}

	if len(documents) == 0 {
		log.Printf("Knowledge: no documents found to index in %s", k.dataPath)
		return nil
	}

	indexed := 0
	for _, doc := range documents {
		if err := k.collection.AddDocument(ctx, doc); err != nil {
			log.Printf("Knowledge: failed to add document %s: %v", doc.ID, err)
			continue
		}
		indexed++
	}
	k.indexedAt = time.Now().UTC()

	log.Printf("Knowledge: indexed %d document chunks from %s", indexed, k.dataPath)
	return nil
}

func isSupportedTipType(ext string) bool {
	for _, t := range supportedTipTypes {
		if t == ext {
			return true
		}
	}
	return false
}

func extractText(path, ext string) (string, error) {
	if ext == ".pdf" {
		return extractPDFText(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	b, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract plain text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(b); err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return buf.String(), nil
}

// chunkText splits text into sentence-aligned chunks of at most maxChunkSize
// bytes, except for single sentences that are longer.
func chunkText(text string, maxChunkSize int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxChunkSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, sentence := range splitIntoSentences(text) {
		if current.Len()+len(sentence) > maxChunkSize && current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(sentence)
		current.WriteString(". ")
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}

func splitIntoSentences(text string) []string {
	var result []string
	for _, sentence := range sentenceRegex.Split(text, -1) {
		sentence = strings.TrimRight(strings.TrimSpace(sentence), ".!?।")
		if sentence != "" {
			result = append(result, sentence)
		}
	}
	return result
}

// Query returns the chunks most similar to the query
func (k *KnowledgeService) Query(ctx context.Context, query string, limit int) (*models.TipsResponse, error) {
	if !k.initialized {
		return nil, errors.New("knowledge service not initialized")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query cannot be empty")
	}
	if limit <= 0 {
		limit = defaultTipLimit
	}
	if limit > maxTipLimit {
		limit = maxTipLimit
	}
	if count := k.collection.Count(); limit > count {
		limit = count
	}

	documents := []models.TipDocument{}
	if limit > 0 {
		results, err := k.collection.Query(ctx, query, limit, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to query collection: %w", err)
		}
		for _, result := range results {
			metadata := make(models.Metadata, len(result.Metadata))
			for key, v := range result.Metadata {
				metadata[key] = v
			}
			documents = append(documents, models.TipDocument{
				ID:       result.ID,
				Content:  result.Content,
				Source:   sourceFromMetadata(result.Metadata),
				Metadata: metadata,
				Score:    float64(result.Similarity),
			})
		}
	}

	return &models.TipsResponse{
		BaseResponse: models.BaseResponse{
			Status:    models.StatusSuccess,
			Timestamp: time.Now(),
		},
		Documents: documents,
		Query:     query,
		Total:     len(documents),
	}, nil
}

// BestTip returns the single best matching chunk, if any
func (k *KnowledgeService) BestTip(ctx context.Context, query string) (models.TipDocument, bool) {
	if !k.IsEnabled() {
		return models.TipDocument{}, false
	}
	resp, err := k.Query(ctx, query, 1)
	if err != nil {
		log.Printf("Knowledge: tip lookup failed: %v", err)
		return models.TipDocument{}, false
	}
	if len(resp.Documents) == 0 {
		return models.TipDocument{}, false
	}
	return resp.Documents[0], true
}

func sourceFromMetadata(metadata map[string]string) string {
	if source, ok := metadata["file_path"]; ok {
		return source
	}
	if name, ok := metadata["file_name"]; ok {
		return name
	}
	return "unknown"
}

// Embedder returns the embedding service the collection was built with
func (k *KnowledgeService) Embedder() *EmbeddingService {
	return k.embedder
}

// IsEnabled reports whether the knowledge base has anything to answer with
func (k *KnowledgeService) IsEnabled() bool {
	return k.initialized && k.collection.Count() > 0
}

// Status describes the knowledge base
func (k *KnowledgeService) Status() models.KnowledgeStatus {
	status := models.KnowledgeStatus{
		Enabled:        k.IsEnabled(),
		DataPath:       k.dataPath,
		CollectionName: k.collectionName,
		SupportedTypes: supportedTipTypes,
		IndexedAt:      k.indexedAt,
	}
	if k.embedder != nil {
		status.Embedding = k.embedder.Provider()
	}
	if k.initialized {
		status.DocumentCount = k.collection.Count()
	}
	return status
}

// GetStatus returns the status of the knowledge service
func (k *KnowledgeService) GetStatus() map[string]interface{} {
	s := k.Status()
	status := map[string]interface{}{
		"initialized":     k.initialized,
		"collection_name": s.CollectionName,
		"data_path":       s.DataPath,
		"embedding":       s.Embedding,
		"document_count":  s.DocumentCount,
		"supported_types": s.SupportedTypes,
	}
	if !s.IndexedAt.IsZero() {
		status["indexed_at"] = s.IndexedAt
	}
	if s.Enabled {
		status["status"] = "active"
	} else {
		status["status"] = "inactive"
	}
	return status
}
