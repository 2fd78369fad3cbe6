package repositories

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"medequip-backend/config"
	"medequip-backend/db/models"
	"medequip-backend/imports/services"
)

const uniqueViolation = "23505"

// recordStoreRepository is the gorm backed RecordStore of one entity table.
// Rows are read and written as column maps so a single implementation serves
// every entity configuration.
type recordStoreRepository struct {
	db  *gorm.DB
	cfg *services.EntityConfig
}

func NewRecordStoreRepository(db *gorm.DB, cfg *services.EntityConfig) services.RecordStore {
	return &recordStoreRepository{db: db, cfg: cfg}
}

func (r *recordStoreRepository) FindByKeys(ctx context.Context, keys []string) (map[string]services.Record, error) {
	out := make(map[string]services.Record, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	var rows []map[string]interface{}
	err := r.db.WithContext(ctx).
		Table(r.cfg.Table).
		Where(r.cfg.KeyExpr+" IN ?", keys).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find %s by natural key: %w", r.cfg.Table, err)
	}

	for _, row := range rows {
		rec := r.decode(row)
		if key := r.cfg.NaturalKey(rec); key != "" {
			out[key] = rec
		}
	}
	return out, nil
}

func (r *recordStoreRepository) BulkWrite(ctx context.Context, ops []services.WriteOp) ([]services.WriteError, error) {
	var (
		inserts   []int
		writeErrs []services.WriteError
	)
	for i, op := range ops {
		if op.Kind == services.OpInsert {
			inserts = append(inserts, i)
			continue
		}
		if err := r.update(ctx, op); err != nil {
			if isConnectionError(err) {
				return append(writeErrs, pendingErrors(ops, inserts, i, err)...), err
			}
			writeErrs = append(writeErrs, services.WriteError{Index: i, Key: op.Key, Message: r.describe(err)})
		}
	}
	if len(inserts) == 0 {
		return writeErrs, nil
	}

	rows := make([]map[string]interface{}, 0, len(inserts))
	for _, i := range inserts {
		rows = append(rows, r.encode(ops[i].Values))
	}
	err := r.db.WithContext(ctx).Table(r.cfg.Table).Create(rows).Error
	if err == nil {
		return writeErrs, nil
	}
	if isConnectionError(err) {
		return nil, err
	}

	// The multi-row insert failed as a whole; retry row by row so only the
	// offending rows are reported.
	config.Logger.Warn("bulk insert failed, retrying per row",
		zap.String("table", r.cfg.Table),
		zap.Int("rows", len(rows)),
		zap.Error(err),
	)
	for n, i := range inserts {
		err := r.db.WithContext(ctx).Table(r.cfg.Table).Create(rows[n]).Error
		if err == nil {
			continue
		}
		if isConnectionError(err) {
			for _, j := range inserts[n:] {
				writeErrs = append(writeErrs, services.WriteError{Index: j, Key: ops[j].Key, Message: err.Error()})
			}
			return writeErrs, err
		}
		writeErrs = append(writeErrs, services.WriteError{Index: i, Key: ops[i].Key, Message: r.describe(err)})
	}
	return writeErrs, nil
}

func (r *recordStoreRepository) update(ctx context.Context, op services.WriteOp) error {
	res := r.db.WithContext(ctx).
		Table(r.cfg.Table).
		Where(r.cfg.KeyExpr+" = ?", op.Key).
		Updates(r.encode(op.Values))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// pendingErrors lists every op not yet written: the queued inserts and all ops
// from index from onwards.
func pendingErrors(ops []services.WriteOp, queued []int, from int, err error) []services.WriteError {
	out := make([]services.WriteError, 0, len(queued)+len(ops)-from)
	for _, i := range queued {
		out = append(out, services.WriteError{Index: i, Key: ops[i].Key, Message: err.Error()})
	}
	for i := from; i < len(ops); i++ {
		out = append(out, services.WriteError{Index: i, Key: ops[i].Key, Message: err.Error()})
	}
	return out
}

func (r *recordStoreRepository) describe(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Sprintf("%s already exists", r.cfg.KeyLabel)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "Record no longer exists"
	}
	return err.Error()
}

// isConnectionError separates an unreachable store from a rejected row.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func (r *recordStoreRepository) encode(values services.Record) map[string]interface{} {
	row := make(map[string]interface{}, len(values))
	for field, v := range values {
		switch field {
		case services.FieldID:
			row["id"] = v
			continue
		case services.FieldCreatedAt:
			row["created_at"] = v
			continue
		case services.FieldModifiedAt:
			row["modified_at"] = v
			continue
		}
		spec, ok := r.cfg.Field(field)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case []string, []models.PersonResponsible:
			raw, err := json.Marshal(t)
			if err != nil {
				continue
			}
			row[spec.ColumnName()] = datatypes.JSON(raw)
		default:
			row[spec.ColumnName()] = v
		}
	}
	return row
}

func (r *recordStoreRepository) decode(row map[string]interface{}) services.Record {
	rec := make(services.Record, len(row))
	if id, ok := row["id"]; ok && id != nil {
		rec[services.FieldID] = asString(id)
	}
	if v, ok := row["created_at"].(time.Time); ok {
		rec[services.FieldCreatedAt] = v
	}
	if v, ok := row["modified_at"].(time.Time); ok {
		rec[services.FieldModifiedAt] = v
	}

	for _, spec := range r.cfg.Fields {
		v, ok := row[spec.ColumnName()]
		if !ok || v == nil {
			continue
		}
		switch spec.Kind {
		case services.ArrayField:
			var items []string
			if err := json.Unmarshal(asBytes(v), &items); err == nil {
				rec[spec.Name] = items
			}
		case services.PersonsField:
			var persons []models.PersonResponsible
			if err := json.Unmarshal(asBytes(v), &persons); err == nil {
				rec[spec.Name] = persons
			}
		case services.DateField:
			if t, ok := services.ParseDate(v); ok {
				rec[spec.Name] = t
			}
		case services.DecimalField:
			if d, err := decimal.NewFromString(asString(v)); err == nil {
				rec[spec.Name] = d
			}
		default:
			rec[spec.Name] = asString(v)
		}
	}
	return rec
}

func asBytes(v interface{}) []byte {
	switch t := v.(type) {
	case []byte:
		return t
	case string:
		return []byte(t)
	}
	raw, _ := json.Marshal(v)
	return raw
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case uuid.UUID:
		return t.String()
	case [16]byte:
		return uuid.UUID(t).String()
	case time.Time:
		return services.FormatDate(t)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// RecordScanner pages through every stored record of an entity.
type RecordScanner interface {
	Each(ctx context.Context, pageSize int, fn func([]services.Record) error) error
}

func NewRecordScanner(db *gorm.DB, cfg *services.EntityConfig) RecordScanner {
	return &recordStoreRepository{db: db, cfg: cfg}
}

func (r *recordStoreRepository) Each(ctx context.Context, pageSize int, fn func([]services.Record) error) error {
	if pageSize <= 0 {
		pageSize = 500
	}
	var lastID interface{}
	for {
		q := r.db.WithContext(ctx).Table(r.cfg.Table).Order("id ASC").Limit(pageSize)
		if lastID != nil {
			q = q.Where("id > ?", lastID)
		}
		var rows []map[string]interface{}
		if err := q.Find(&rows).Error; err != nil {
			return fmt.Errorf("scan %s: %w", r.cfg.Table, err)
		}
		if len(rows) == 0 {
			return nil
		}

		page := make([]services.Record, 0, len(rows))
		for _, row := range rows {
			page = append(page, r.decode(row))
		}
		if err := fn(page); err != nil {
			return err
		}
		if len(rows) < pageSize {
			return nil
		}
		lastID = rows[len(rows)-1]["id"]
	}
}
