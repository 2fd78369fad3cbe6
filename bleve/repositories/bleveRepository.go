package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	bleveindex "medequip-backend/bleve/services"
	"medequip-backend/config"
	"medequip-backend/db/models"
	imports "medequip-backend/imports/services"
)

const (
	entityField = "entity"
	keyField    = "key"
)

// KeywordFields are matched verbatim; natural keys may contain separators
// such as "|" that the standard analyzer would split on.
var KeywordFields = []string{entityField, keyField}

type BleveRepository struct {
	indexer bleveindex.IndexingServiceInterface
}

type BleveRepositoryInterface interface {
	DeleteAllIndices(ctx context.Context) error
	IndexRecords(cfg *imports.EntityConfig, records []imports.Record) error
	DeleteRecord(cfg *imports.EntityConfig, id string) error
	SearchRecords(cfg *imports.EntityConfig, q SearchQuery) (*bleve.SearchResult, error)
}

func NewBleveRepository(indexer bleveindex.IndexingServiceInterface) (*BleveRepository, BleveRepositoryInterface) {
	repo := &BleveRepository{indexer: indexer}
	return repo, repo
}

func (r *BleveRepository) DeleteAllIndices(ctx context.Context) error {
	return r.indexer.DeleteAllIndices()
}

// IndexRecords upserts records into the entity's index, keyed by record id.
func (r *BleveRepository) IndexRecords(cfg *imports.EntityConfig, records []imports.Record) error {
	docs := make(map[string]interface{}, len(records))
	for _, rec := range records {
		id, doc := recordDocument(cfg, rec)
		if id == "" {
			continue
		}
		docs[id] = doc
	}
	if err := r.indexer.BulkIndexDocuments(cfg.Slug, docs); err != nil {
		config.Logger.Error("Failed to index records into Bleve",
			zap.String("entity", cfg.Slug),
			zap.Int("count", len(docs)),
			zap.Error(err))
		return err
	}
	return nil
}

func (r *BleveRepository) DeleteRecord(cfg *imports.EntityConfig, id string) error {
	return r.indexer.DeleteDocument(cfg.Slug, id)
}

// SearchQuery narrows a free-text record search.
type SearchQuery struct {
	Text   string
	Status string
	Size   int
	From   int
}

func (r *BleveRepository) SearchRecords(cfg *imports.EntityConfig, q SearchQuery) (*bleve.SearchResult, error) {
	if q.Size <= 0 {
		q.Size = 20
	}
	return r.indexer.SearchIndex(cfg.Slug, buildRecordQuery(cfg, q), q.Size, q.From)
}

// buildRecordQuery favours exact and prefix hits on the natural key and the
// display fields, then falls back to a fuzzy match across every field.
func buildRecordQuery(cfg *imports.EntityConfig, q SearchQuery) query.Query {
	text := strings.TrimSpace(q.Text)
	lower := strings.ToLower(text)

	finalQuery := bleve.NewBooleanQuery()
	if text != "" {
		should := bleve.NewBooleanQuery()

		keyExact := bleve.NewTermQuery(lower)
		keyExact.SetField(keyField)
		keyExact.SetBoost(10.0)
		should.AddShould(keyExact)

		keyPrefix := bleve.NewPrefixQuery(lower)
		keyPrefix.SetField(keyField)
		keyPrefix.SetBoost(6.0)
		should.AddShould(keyPrefix)

		for _, field := range cfg.DisplayFields {
			match := bleve.NewMatchQuery(text)
			match.SetField(field)
			match.SetBoost(7.0)
			should.AddShould(match)

			prefix := bleve.NewPrefixQuery(lower)
			prefix.SetField(field)
			prefix.SetBoost(5.0)
			should.AddShould(prefix)
		}

		fuzzy := bleve.NewMatchQuery(text)
		fuzzy.SetFuzziness(1)
		should.AddShould(fuzzy)

		finalQuery.AddMust(should)
	} else {
		finalQuery.AddMust(bleve.NewMatchAllQuery())
	}

	if q.Status != "" {
		statusField := cfg.StatusField
		if statusField == "" {
			statusField = "status"
		}
		status := bleve.NewMatchQuery(q.Status)
		status.SetField(statusField)
		status.SetOperator(query.MatchQueryOperatorAnd)
		finalQuery.AddMust(status)
	}
	return finalQuery
}

// recordDocument flattens a record into the string fields bleve indexes.
func recordDocument(cfg *imports.EntityConfig, rec imports.Record) (string, map[string]interface{}) {
	id := flatten(rec[imports.FieldID])
	doc := map[string]interface{}{
		entityField: cfg.Slug,
		keyField:    cfg.NaturalKey(rec),
	}
	for _, spec := range cfg.Fields {
		if v := flatten(rec[spec.Name]); v != "" {
			doc[spec.Name] = v
		}
	}
	if t, ok := rec[imports.FieldModifiedAt].(time.Time); ok {
		doc[imports.FieldModifiedAt] = t
	}
	return id, doc
}

func flatten(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	case []models.PersonResponsible:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, strings.TrimSpace(p.Name+" "+p.EmployeeID))
		}
		return strings.Join(parts, ", ")
	case time.Time:
		return imports.FormatDate(t)
	case *time.Time:
		if t == nil {
			return ""
		}
		return imports.FormatDate(*t)
	case decimal.Decimal:
		return t.String()
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}
