// Package intent implements C6: schema validation of the candidate
// intent document produced by the external natural-language parser.
// The validator is pure — no I/O, no state.
package intent

// intentJSONSchema is a closed Draft-07-equivalent schema: no additional
// properties at the top level or within filters. Grounded field-for-field
// on original_source/backend/apps/api/services/intent_validator.py's
// INTENT_JSON_SCHEMA.
const intentJSONSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title": "SalesOpsIntent",
	"type": "object",
	"additionalProperties": false,
	"required": ["intent_id", "raw_text", "filters", "actions"],
	"properties": {
		"intent_id": {"type": "string", "minLength": 1},
		"raw_text": {"type": "string", "minLength": 1},
		"language": {"type": "string"},
		"filters": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"industries": {"type": "array", "items": {"type": "string"}},
				"regions": {"type": "array", "items": {"type": "string"}},
				"company_size": {"type": "string"},
				"keywords": {"type": "array", "items": {"type": "string"}},
				"roles": {"type": "array", "items": {"type": "string"}}
			}
		},
		"actions": {
			"type": "array",
			"items": {
				"type": "string",
				"enum": [
					"search_companies",
					"find_contacts",
					"collect_news",
					"generate_emails",
					"schedule_emails",
					"update_pipeline"
				]
			}
		}
	}
}`

// Actions is the closed set ACTIONS from spec §3, in dispatch-table order.
var Actions = []string{
	"search_companies",
	"find_contacts",
	"collect_news",
	"generate_emails",
	"schedule_emails",
	"update_pipeline",
}
