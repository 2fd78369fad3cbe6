package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"
)

type IndexingServiceInterface interface {
	BulkIndexDocuments(indexName string, documents map[string]interface{}) error
	DeleteDocument(indexName, id string) error
	SearchIndex(indexName string, q query.Query, size, from int) (*bleve.SearchResult, error)
	GetDocument(indexName, id string) (map[string]interface{}, error)
	DeleteIndex(indexName string) error
	IndexExists(indexName string) (bool, error)
	DeleteAllIndices() error
	Close() error
}

// IndexingService owns one on-disk bleve index per entity. Imports write to
// it from several batches at once, so index handles are guarded.
type IndexingService struct {
	mu       sync.Mutex
	indexes  map[string]bleve.Index
	logger   *zap.Logger
	basePath string
	keywords []string
}

// NewIndexingService stores indices under basePath. keywordFields are indexed
// as single lowercase-insensitive terms instead of being tokenized.
func NewIndexingService(logger *zap.Logger, basePath string, keywordFields ...string) *IndexingService {
	return &IndexingService{
		indexes:  make(map[string]bleve.Index),
		logger:   logger,
		basePath: basePath,
		keywords: keywordFields,
	}
}

func (s *IndexingService) newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	for _, field := range s.keywords {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		im.DefaultMapping.AddFieldMappingsAt(field, fm)
	}
	return im
}

func (s *IndexingService) indexPath(indexName string) string {
	return filepath.Join(s.basePath, indexName+".bleve")
}

func (s *IndexingService) getOrCreateIndex(indexName string) (bleve.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.indexes[indexName]; ok {
		return idx, nil
	}

	fullPath := s.indexPath(indexName)
	idx, err := bleve.Open(fullPath)
	if err != nil {
		if err := os.MkdirAll(s.basePath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create index directory %s: %w", s.basePath, err)
		}
		idx, err = bleve.New(fullPath, s.newMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create index %s: %w", fullPath, err)
		}
	}

	s.indexes[indexName] = idx
	return idx, nil
}

// SearchIndex runs q and returns every stored field of the hits.
func (s *IndexingService) SearchIndex(indexName string, q query.Query, size, from int) (*bleve.SearchResult, error) {
	idx, err := s.getOrCreateIndex(indexName)
	if err != nil {
		s.logger.Error("Could not get or create index", zap.String("index", indexName), zap.Error(err))
		return nil, err
	}

	searchRequest := bleve.NewSearchRequestOptions(q, size, from, false)
	searchRequest.Fields = []string{"*"}

	searchResult, err := idx.Search(searchRequest)
	if err != nil {
		s.logger.Error("Search failed", zap.String("index", indexName), zap.Error(err))
		return nil, err
	}
	return searchResult, nil
}

func (s *IndexingService) BulkIndexDocuments(indexName string, documents map[string]interface{}) error {
	if len(documents) == 0 {
		return nil
	}
	idx, err := s.getOrCreateIndex(indexName)
	if err != nil {
		s.logger.Error("Could not get or create index", zap.String("index", indexName), zap.Error(err))
		return err
	}

	batch := idx.NewBatch()
	for id, doc := range documents {
		if err := batch.Index(id, doc); err != nil {
			s.logger.Error("Failed to add doc to batch", zap.String("id", id), zap.Error(err))
			return err
		}
	}

	if err := idx.Batch(batch); err != nil {
		s.logger.Error("Failed to execute batch", zap.String("index", indexName), zap.Error(err))
		return err
	}

	s.logger.Debug("Bulk indexed documents",
		zap.String("index", indexName),
		zap.Int("count", len(documents)))
	return nil
}

func (s *IndexingService) DeleteDocument(indexName, id string) error {
	idx, err := s.getOrCreateIndex(indexName)
	if err != nil {
		return err
	}
	if err := idx.Delete(id); err != nil {
		s.logger.Error("Failed to delete document", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// GetDocument returns the stored fields of one document.
func (s *IndexingService) GetDocument(indexName, id string) (map[string]interface{}, error) {
	result, err := s.SearchIndex(indexName, bleve.NewDocIDQuery([]string{id}), 1, 0)
	if err != nil {
		return nil, err
	}
	if len(result.Hits) == 0 {
		return nil, fmt.Errorf("document %s not found in %s", id, indexName)
	}
	return result.Hits[0].Fields, nil
}

func (s *IndexingService) DeleteIndex(indexName string) error {
	s.mu.Lock()
	idx, open := s.indexes[indexName]
	delete(s.indexes, indexName)
	s.mu.Unlock()

	if open {
		if err := idx.Close(); err != nil {
			return fmt.Errorf("failed to close index %s: %w", indexName, err)
		}
	}
	if err := os.RemoveAll(s.indexPath(indexName)); err != nil {
		return fmt.Errorf("failed to delete index files: %w", err)
	}
	s.logger.Info("Deleted index", zap.String("index_name", indexName))
	return nil
}

func (s *IndexingService) IndexExists(indexName string) (bool, error) {
	_, err := os.Stat(s.indexPath(indexName))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// DeleteAllIndices drops open indices and any orphaned index directories.
func (s *IndexingService) DeleteAllIndices() error {
	files, err := filepath.Glob(filepath.Join(s.basePath, "*.bleve"))
	if err != nil {
		return fmt.Errorf("failed to scan index directory: %w", err)
	}

	names := make(map[string]struct{}, len(files))
	for _, file := range files {
		names[strings.TrimSuffix(filepath.Base(file), ".bleve")] = struct{}{}
	}
	s.mu.Lock()
	for name := range s.indexes {
		names[name] = struct{}{}
	}
	s.mu.Unlock()

	var failed int
	for name := range names {
		if err := s.DeleteIndex(name); err != nil {
			s.logger.Error("Failed to delete index", zap.String("index_name", name), zap.Error(err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d indices could not be deleted", failed, len(names))
	}
	return nil
}

// Close releases every open index handle.
func (s *IndexingService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for name, idx := range s.indexes {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close index %s: %w", name, err)
		}
		delete(s.indexes, name)
	}
	return firstErr
}
