package sfmc

// AssetTypesReference is the static help document published as the
// sfmc://assets/types resource: common Content Builder asset types, the
// simple filter operators, and example $filter expressions.
type AssetTypesReference struct {
	CommonAssetTypes map[string]string `json:"commonAssetTypes"`
	SearchOperators  map[string]string `json:"searchOperators"`
	ExampleSearches  map[string]string `json:"exampleSearches"`
}

// TypesReference returns the reference document. The content is static;
// it requires no session and never fails.
func TypesReference() AssetTypesReference {
	return AssetTypesReference{
		CommonAssetTypes: map[string]string{
			"email":     "Email messages and templates",
			"template":  "Content templates and layouts",
			"block":     "Content blocks and snippets",
			"image":     "Image files (JPG, PNG, GIF)",
			"document":  "PDF and document files",
			"cloudpage": "Cloud pages and landing pages",
			"folder":    "Folder/category containers",
		},
		SearchOperators: map[string]string{
			"eq":       "Equals (exact match)",
			"neq":      "Not equal to",
			"contains": "Contains substring",
			"like":     "Pattern matching with wildcards",
			"gt":       "Greater than (numbers/dates)",
			"lt":       "Less than (numbers/dates)",
			"gte":      "Greater than or equal",
			"lte":      "Less than or equal",
		},
		ExampleSearches: map[string]string{
			"by_name":  "$filter=name like 'newsletter'",
			"by_type":  "$filter=assetType.name eq 'email'",
			"by_date":  "$filter=modifiedDate gt '2024-01-01'",
			"combined": "$filter=name like 'welcome' and assetType.name eq 'email'",
		},
	}
}
