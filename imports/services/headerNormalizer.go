package services

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FieldMapping maps an original column header to its canonical field name.
type FieldMapping map[string]string

// SynonymSet lists the accepted header spellings of one canonical field.
type SynonymSet struct {
	Field   string
	Headers []string
}

// SynonymIndex is a synonym table with every spelling already normalized.
// Fields keep their table order so the first matching field wins.
type SynonymIndex struct {
	fields []string
	sets   []map[string]struct{}
}

// HeaderMapping is the resolved mapping of one upload's header row.
type HeaderMapping struct {
	// Columns holds the canonical field per column index, "" when unmapped.
	Columns  []string
	Fields   FieldMapping
	Unmapped []string
}

// MappedFields returns the set of canonical fields covered by the mapping.
func (m HeaderMapping) MappedFields() map[string]struct{} {
	out := make(map[string]struct{}, len(m.Columns))
	for _, f := range m.Columns {
		if f != "" {
			out[f] = struct{}{}
		}
	}
	return out
}

// defaultHeaderMemoSize bounds the memo; a header row rarely has more than a
// few dozen columns, and the synonym tables add a few hundred spellings.
const defaultHeaderMemoSize = 4096

// HeaderNormalizer folds headers to lower-case alphanumerics. It memoizes
// distinct raw headers up to a fixed size; when the memo is full it is
// dropped and refilled. Safe for concurrent use.
type HeaderNormalizer struct {
	mu    sync.RWMutex
	memo  map[string]string
	limit int
}

func NewHeaderNormalizer() *HeaderNormalizer {
	return &HeaderNormalizer{memo: make(map[string]string), limit: defaultHeaderMemoSize}
}

// Normalize lower-cases the header, folds accents and strips every character
// that is not a letter or digit.
func (n *HeaderNormalizer) Normalize(header string) string {
	n.mu.RLock()
	v, ok := n.memo[header]
	n.mu.RUnlock()
	if ok {
		return v
	}

	v = normalizeHeader(header)

	n.mu.Lock()
	if len(n.memo) >= n.limit {
		n.memo = make(map[string]string)
	}
	n.memo[header] = v
	n.mu.Unlock()
	return v
}

// Len reports how many distinct headers are memoized.
func (n *HeaderNormalizer) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.memo)
}

func normalizeHeader(header string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn))), header)
	if err != nil {
		folded = header
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BuildIndex normalizes a synonym table once. The canonical field name itself
// is always accepted as a spelling.
func (n *HeaderNormalizer) BuildIndex(table []SynonymSet) *SynonymIndex {
	idx := &SynonymIndex{
		fields: make([]string, 0, len(table)),
		sets:   make([]map[string]struct{}, 0, len(table)),
	}
	for _, entry := range table {
		set := make(map[string]struct{}, len(entry.Headers)+1)
		set[n.Normalize(entry.Field)] = struct{}{}
		for _, h := range entry.Headers {
			if norm := n.Normalize(h); norm != "" {
				set[norm] = struct{}{}
			}
		}
		idx.fields = append(idx.fields, entry.Field)
		idx.sets = append(idx.sets, set)
	}
	return idx
}

// Fields lists the canonical fields of the index in table order.
func (idx *SynonymIndex) Fields() []string {
	return append([]string(nil), idx.fields...)
}

// Match returns the first canonical field whose synonym set contains the
// normalized header.
func (idx *SynonymIndex) Match(normalized string) (string, bool) {
	if normalized == "" {
		return "", false
	}
	for i, set := range idx.sets {
		if _, ok := set[normalized]; ok {
			return idx.fields[i], true
		}
	}
	return "", false
}

// MapHeaders resolves a header row against a synonym index. When two headers
// normalize to the same string only the first is mapped; headers matching no
// synonym are returned as unmapped.
func (n *HeaderNormalizer) MapHeaders(headers []string, idx *SynonymIndex) HeaderMapping {
	mapping := HeaderMapping{
		Columns: make([]string, len(headers)),
		Fields:  make(FieldMapping, len(headers)),
	}
	seen := make(map[string]struct{}, len(headers))

	for i, raw := range headers {
		normalized := n.Normalize(raw)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}

		field, ok := idx.Match(normalized)
		if !ok {
			mapping.Unmapped = append(mapping.Unmapped, raw)
			continue
		}
		mapping.Columns[i] = field
		mapping.Fields[raw] = field
	}
	return mapping
}
