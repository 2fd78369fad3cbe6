package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"medequip-backend/db/models"
)

// CleanedRecord is the validated form of one upload row. When Errors is not
// empty the record is kept only for diagnostics and must never be written.
type CleanedRecord struct {
	Values Record
	// Provided lists the canonical fields the row actually supplied, in column order.
	Provided []string
	Errors   []string
	Warnings []string
}

// IsProvided reports whether the row supplied the field.
func (c CleanedRecord) IsProvided(field string) bool {
	for _, f := range c.Provided {
		if f == field {
			return true
		}
	}
	return false
}

// multiValueSeparators are checked in order; the first one present splits the value.
var multiValueSeparators = []string{",", ";", "|", "\n"}

// RecordCleaner turns raw rows into CleanedRecords for one entity.
type RecordCleaner struct {
	cfg   *EntityConfig
	clock func() time.Time
}

func NewRecordCleaner(cfg *EntityConfig, clock func() time.Time) *RecordCleaner {
	if clock == nil {
		clock = time.Now
	}
	return &RecordCleaner{cfg: cfg, clock: clock}
}

// Clean extracts, coerces and validates every mapped cell of the row.
func (c *RecordCleaner) Clean(row UploadRow, mapping HeaderMapping) CleanedRecord {
	out := CleanedRecord{Values: make(Record)}
	raw, order := collectCells(row, mapping)
	invalid := make(map[string]bool)

	for _, field := range order {
		spec, known := c.cfg.Field(field)
		if !known {
			continue
		}
		value := raw[field]
		switch spec.Kind {
		case StringField:
			s := collapseSpaces(cellString(value))
			if s == "" {
				continue
			}
			out.Values[field] = s
		case ArrayField:
			items := splitMultiValue(cellString(value))
			if len(items) == 0 {
				continue
			}
			out.Values[field] = items
		case DateField:
			t, ok := ParseDate(value)
			if !ok {
				msg := fmt.Sprintf("Invalid date for %s: %q", field, cellString(value))
				if c.isRequired(field) {
					out.Errors = append(out.Errors, msg)
					invalid[field] = true
				} else {
					out.Warnings = append(out.Warnings, msg+" (ignored)")
				}
				continue
			}
			out.Values[field] = t
		case DecimalField:
			d, err := decimal.NewFromString(strings.ReplaceAll(cellString(value), ",", ""))
			if err != nil {
				out.Errors = append(out.Errors, fmt.Sprintf("Invalid number for %s: %q", field, cellString(value)))
				invalid[field] = true
				continue
			}
			out.Values[field] = d
		}
		out.Provided = append(out.Provided, field)
	}

	if comp := c.cfg.Composite; comp != nil {
		if persons := pairPersons(comp, raw); len(persons) > 0 {
			out.Values[comp.Field] = persons
			out.Provided = append(out.Provided, comp.Field)
		}
	}

	for _, field := range c.cfg.Required {
		if invalid[field] {
			continue
		}
		if !hasValue(out.Values[field]) {
			out.Errors = append(out.Errors, fmt.Sprintf("Missing required field: %s", field))
		}
	}
	if len(out.Errors) > 0 {
		return out
	}

	for _, spec := range c.cfg.Fields {
		if spec.MaxLen <= 0 {
			continue
		}
		switch v := out.Values[spec.Name].(type) {
		case string:
			if utf8.RuneCountInString(v) > spec.MaxLen {
				out.Errors = append(out.Errors, fmt.Sprintf("%s exceeds maximum length of %d characters", spec.Name, spec.MaxLen))
			}
		case []string:
			for _, item := range v {
				if utf8.RuneCountInString(item) > spec.MaxLen {
					out.Errors = append(out.Errors, fmt.Sprintf("%s value %q exceeds maximum length of %d characters", spec.Name, item, spec.MaxLen))
					break
				}
			}
		}
	}

	if _, ok := out.Values[c.cfg.StatusField]; !ok {
		out.Values[c.cfg.StatusField] = c.cfg.DefaultStatus
	}
	now := c.clock()
	out.Values[FieldCreatedAt] = now
	out.Values[FieldModifiedAt] = now
	return out
}

func (c *RecordCleaner) isRequired(field string) bool {
	for _, f := range c.cfg.Required {
		if f == field {
			return true
		}
	}
	return false
}

// collectCells gathers the first provided cell per canonical field.
func collectCells(row UploadRow, mapping HeaderMapping) (map[string]any, []string) {
	raw := make(map[string]any, len(mapping.Columns))
	order := make([]string, 0, len(mapping.Columns))
	for i, field := range mapping.Columns {
		if field == "" || i >= len(row.Cells) {
			continue
		}
		if _, seen := raw[field]; seen {
			continue
		}
		v := row.Cells[i]
		if isBlank(v) {
			continue
		}
		raw[field] = v
		order = append(order, field)
	}
	return raw, order
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	return isPlaceholder(s)
}

func isPlaceholder(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	lower := strings.ToLower(s)
	return lower == "undefined" || lower == "null"
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return FormatDate(t)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// onlySeparators reports an item left holding nothing but separator
// punctuation, such as "; " after splitting " , ; " on the comma.
func onlySeparators(s string) bool {
	return strings.Trim(s, ",;|\n\r\t ") == ""
}

func splitMultiValue(s string) []string {
	if isPlaceholder(s) {
		return nil
	}
	parts := []string{s}
	for _, sep := range multiValueSeparators {
		if strings.Contains(s, sep) {
			parts = strings.Split(s, sep)
			break
		}
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if isPlaceholder(p) || onlySeparators(p) {
			continue
		}
		out = append(out, collapseSpaces(p))
	}
	return out
}

// pairPersons zips the name and id columns, padding whichever side is shorter.
func pairPersons(comp *CompositeSpec, raw map[string]any) []models.PersonResponsible {
	names := splitMultiValue(cellString(raw[comp.NameSource]))
	ids := splitMultiValue(cellString(raw[comp.IDSource]))
	n := len(names)
	if len(ids) > n {
		n = len(ids)
	}
	persons := make([]models.PersonResponsible, 0, n)
	for i := 0; i < n; i++ {
		p := models.PersonResponsible{
			Name:       fmt.Sprintf("Person %d", i+1),
			EmployeeID: fmt.Sprintf("%s%03d", comp.IDPrefix, i+1),
		}
		if i < len(names) {
			p.Name = names[i]
		}
		if i < len(ids) {
			p.EmployeeID = ids[i]
		}
		persons = append(persons, p)
	}
	return persons
}

func hasValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []string:
		return len(t) > 0
	case []models.PersonResponsible:
		return len(t) > 0
	case time.Time:
		return !t.IsZero()
	}
	return true
}
