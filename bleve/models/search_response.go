package models

type SearchHit struct {
	ID     string                 `json:"id"`
	Score  float64                `json:"score"`
	Fields map[string]interface{} `json:"fields,omitempty"`
}

type SearchResponse struct {
	Entity string      `json:"entity"`
	Total  uint64      `json:"total"`
	Hits   []SearchHit `json:"hits"`
}
