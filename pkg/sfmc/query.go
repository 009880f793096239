package sfmc

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Paging bounds enforced by the provider's asset endpoints.
const (
	minPageSize = 1
	maxPageSize = 50
)

// SearchParams are the simple search inputs. Zero values mean "no filter"
// for Name, AssetType and CategoryID; Page and PageSize are clamped into
// the provider's accepted ranges when the query string is built.
type SearchParams struct {
	Name       string // filter clause: name like '<value>'
	AssetType  string // filter clause: assetType.name eq '<value>'
	CategoryID int    // filter clause: category.id eq <value>
	Page       int    // floored at 1
	PageSize   int    // clamped to [1,50]
}

// values renders the provider query string. Filter values are inserted
// verbatim: a single quote inside a value is not escaped and will produce
// a provider-side error. Known limitation, kept deliberately.
func (p SearchParams) values() url.Values {
	size := p.PageSize
	if size < minPageSize {
		size = minPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	page := p.Page
	if page < 1 {
		page = 1
	}

	v := url.Values{}
	v.Set("$pagesize", strconv.Itoa(size))
	v.Set("$page", strconv.Itoa(page))
	v.Set("$orderBy", "modifiedDate desc")

	var filters []string
	if p.Name != "" {
		filters = append(filters, fmt.Sprintf("name like '%s'", p.Name))
	}
	if p.AssetType != "" {
		filters = append(filters, fmt.Sprintf("assetType.name eq '%s'", p.AssetType))
	}
	if p.CategoryID != 0 {
		filters = append(filters, fmt.Sprintf("category.id eq %d", p.CategoryID))
	}
	if len(filters) > 0 {
		v.Set("$filter", strings.Join(filters, " and "))
	}
	return v
}

// PageSpec is the default paging section of an advanced query.
type PageSpec struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// QueryTerm is the default match section of an advanced query.
type QueryTerm struct {
	Property       string `json:"property"`
	SimpleOperator string `json:"simpleOperator"`
	Value          string `json:"value"`
}

// SortSpec is one entry of the default sort section.
type SortSpec struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

// Query is the body posted to the assets/query endpoint: the three
// top-level sections, each carried as raw JSON. Sections the caller's
// input omitted hold the defaults; sections it supplied are carried
// verbatim, however partial. Section contents are not validated.
type Query struct {
	Page  json.RawMessage `json:"page"`
	Query json.RawMessage `json:"query"`
	Sort  json.RawMessage `json:"sort"`
}

// DefaultQuery is the body sent when the input overrides nothing: page 1
// of 50, name contains "", sorted by modifiedDate descending.
func DefaultQuery() Query {
	page, _ := json.Marshal(PageSpec{Page: 1, PageSize: maxPageSize})
	term, _ := json.Marshal(QueryTerm{Property: "name", SimpleOperator: "contains", Value: ""})
	sort, _ := json.Marshal([]SortSpec{{Property: "modifiedDate", Direction: "DESC"}})
	return Query{Page: page, Query: term, Sort: sort}
}

// BuildQuery parses a raw advanced-query document and overlays it on
// DefaultQuery. The merge is shallow: a top-level section present in the
// input replaces the whole default section. Invalid JSON, including the
// empty string, is a parse error.
func BuildQuery(raw []byte) (Query, error) {
	var overlay struct {
		Page  json.RawMessage `json:"page"`
		Query json.RawMessage `json:"query"`
		Sort  json.RawMessage `json:"sort"`
	}
	if err := json.Unmarshal(raw, &overlay); err != nil {
		return Query{}, errf(KindParse, err, "invalid query JSON: %v", err)
	}

	q := DefaultQuery()
	if overlay.Page != nil {
		q.Page = overlay.Page
	}
	if overlay.Query != nil {
		q.Query = overlay.Query
	}
	if overlay.Sort != nil {
		q.Sort = overlay.Sort
	}
	return q, nil
}
