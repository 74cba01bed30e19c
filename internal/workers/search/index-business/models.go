// internal/workers/search/index-business/models.go
package indexbusiness

type Input struct {
	BusinessID string `json:"businessId"`
}

type Output struct {
	BusinessID string `json:"businessId"`
	Index      string `json:"index"`
	Indexed    bool   `json:"indexed"`
	IndexedAt  string `json:"indexedAt"` // ISO 8601
}
