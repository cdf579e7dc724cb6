package models

// PageData is the paged list shape carried under the response envelope's
// data field by the pageList endpoints.
type PageData[T any] struct {
	Records  []T `json:"records"`
	Total    int `json:"total,omitempty"`
	CurrPage int `json:"currPage,omitempty"`
	PageSize int `json:"pageSize,omitempty"`
}
