package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHeader(t *testing.T) {
	n := NewHeaderNormalizer()

	assert.Equal(t, "branchname", n.Normalize("  Branch_Name "))
	assert.Equal(t, "custwarrantystartdate", n.Normalize("Cust. Warranty Start-Date"))
	assert.Equal(t, "numero", n.Normalize("Número"))
	assert.Equal(t, "", n.Normalize(""))
	assert.Equal(t, "", n.Normalize("---"))
	assert.Equal(t, 5, n.Len())
}

func TestMapHeadersFirstWins(t *testing.T) {
	n := NewHeaderNormalizer()
	idx := n.BuildIndex(BranchConfig().Synonyms)

	m := n.MapHeaders([]string{"Branch Name", "branch_name", "State", "Remarks", ""}, idx)

	assert.Equal(t, []string{"name", "", "state", "", ""}, m.Columns)
	assert.Equal(t, FieldMapping{"Branch Name": "name", "State": "state"}, m.Fields)
	assert.Equal(t, []string{"Remarks"}, m.Unmapped)
}

func TestMapHeadersFirstMatchingFieldWins(t *testing.T) {
	n := NewHeaderNormalizer()
	idx := n.BuildIndex([]SynonymSet{
		{Field: "first", Headers: []string{"Code"}},
		{Field: "second", Headers: []string{"code"}},
	})

	m := n.MapHeaders([]string{"CODE"}, idx)
	assert.Equal(t, "first", m.Fields["CODE"])
}

func TestMapHeadersCanonicalNameAccepted(t *testing.T) {
	n := NewHeaderNormalizer()
	idx := n.BuildIndex(EquipmentConfig().Synonyms)

	m := n.MapHeaders([]string{"custWarrantystartdate", "serialnumber"}, idx)
	assert.Equal(t, "custWarrantystartdate", m.Fields["custWarrantystartdate"])
	assert.Equal(t, "serialnumber", m.Fields["serialnumber"])
}

func TestNormalizeMemoStaysBounded(t *testing.T) {
	n := NewHeaderNormalizer()
	n.limit = 3

	for _, h := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		assert.Equal(t, strings.ToLower(h), n.Normalize(h))
		assert.LessOrEqual(t, n.Len(), 3)
	}
	assert.Equal(t, "branchname", n.Normalize("Branch Name"))
}
