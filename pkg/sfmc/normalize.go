package sfmc

import "encoding/json"

// ResultSummary describes one page of search results.
type ResultSummary struct {
	TotalFound int `json:"totalFound"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// AssetSummary is the stable projection of one provider asset record.
// Fields absent from the record stay at their zero value.
type AssetSummary struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	AssetType    string `json:"assetType"`
	CreatedDate  string `json:"createdDate"`
	ModifiedDate string `json:"modifiedDate"`
	CreatedBy    string `json:"createdBy"`
	ModifiedBy   string `json:"modifiedBy"`
	Category     string `json:"category"`
	Status       string `json:"status"`
	FileSize     int64  `json:"fileSize"`
}

// SearchResult is the normalized output of both search forms.
type SearchResult struct {
	Summary ResultSummary  `json:"summary"`
	Assets  []AssetSummary `json:"assets"`

	// QueryUsed echoes the merged advanced query; nil for simple search.
	QueryUsed *Query `json:"queryUsed,omitempty"`
}

// assetEnvelope mirrors the provider's paged response.
type assetEnvelope struct {
	Count    int               `json:"count"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
	Items    []json.RawMessage `json:"items"`
}

// newEnvelope seeds the provider's documented defaults so keys absent
// from the response keep them after decoding.
func newEnvelope() assetEnvelope {
	return assetEnvelope{Page: 1, PageSize: maxPageSize}
}

// assetRecord is the slice of a provider asset record this package
// projects from. Every level is optional in real responses.
type assetRecord struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AssetType struct {
		Name string `json:"name"`
	} `json:"assetType"`
	CreatedDate  string `json:"createdDate"`
	ModifiedDate string `json:"modifiedDate"`
	CreatedBy    struct {
		Name string `json:"name"`
	} `json:"createdBy"`
	ModifiedBy struct {
		Name string `json:"name"`
	} `json:"modifiedBy"`
	Category struct {
		Name string `json:"name"`
	} `json:"category"`
	Status struct {
		Name string `json:"name"`
	} `json:"status"`
	FileProperties struct {
		FileSize int64 `json:"fileSize"`
	} `json:"fileProperties"`
}

// normalize projects the envelope into the stable result shape. Item
// decoding is best-effort: a record that fails to decode keeps whatever
// fields were read before the failure, and never aborts the page.
func (e assetEnvelope) normalize() SearchResult {
	res := SearchResult{
		Summary: ResultSummary{
			TotalFound: e.Count,
			Page:       e.Page,
			PageSize:   e.PageSize,
			TotalPages: totalPages(e.Count, e.PageSize),
		},
		Assets: make([]AssetSummary, 0, len(e.Items)),
	}

	for _, item := range e.Items {
		var rec assetRecord
		_ = json.Unmarshal(item, &rec)
		res.Assets = append(res.Assets, AssetSummary{
			ID:           rec.ID,
			Name:         rec.Name,
			AssetType:    rec.AssetType.Name,
			CreatedDate:  rec.CreatedDate,
			ModifiedDate: rec.ModifiedDate,
			CreatedBy:    rec.CreatedBy.Name,
			ModifiedBy:   rec.ModifiedBy.Name,
			Category:     rec.Category.Name,
			Status:       rec.Status.Name,
			FileSize:     rec.FileProperties.FileSize,
		})
	}
	return res
}

// totalPages is ceil(found/size). A non-positive size cannot page, so the
// whole result counts as a single page (or zero pages when empty).
func totalPages(found, size int) int {
	if found <= 0 {
		return 0
	}
	if size <= 0 {
		return 1
	}
	return (found + size - 1) / size
}
