package intent

// Filters is the closed set of optional search-narrowing keys an intent
// may carry. A nil field means "absent," not "empty."
type Filters struct {
	Industries  []string `json:"industries,omitempty"`
	Regions     []string `json:"regions,omitempty"`
	CompanySize string   `json:"company_size,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

// Canonical returns filters as a map containing only the keys that were
// actually set, matching the Python prototype's
// `model_dump(exclude_none=True)` used when building per-task payloads.
func (f Filters) Canonical() map[string]any {
	out := map[string]any{}
	if f.Industries != nil {
		out["industries"] = f.Industries
	}
	if f.Regions != nil {
		out["regions"] = f.Regions
	}
	if f.CompanySize != "" {
		out["company_size"] = f.CompanySize
	}
	if f.Keywords != nil {
		out["keywords"] = f.Keywords
	}
	if f.Roles != nil {
		out["roles"] = f.Roles
	}
	return out
}

// Intent is the validated, structured form of a sales-operations request.
type Intent struct {
	IntentID string   `json:"intent_id"`
	RawText  string   `json:"raw_text"`
	Language string   `json:"language,omitempty"`
	Filters  Filters  `json:"filters"`
	Actions  []string `json:"actions"`
}

// FieldError is one schema violation, in the {path, message} shape spec.md
// requires from a rejected document.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError carries the full set of schema violations for a
// rejected document. Its message is always the fixed string spec.md's
// S2 scenario asserts on.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	return "Intent JSON does not match schema."
}
