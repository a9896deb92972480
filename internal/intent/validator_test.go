package intent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsWellFormedIntent(t *testing.T) {
	payload := []byte(`{
		"intent_id": "intent-1",
		"raw_text": "Find SaaS companies in APAC.",
		"language": "en",
		"filters": {
			"industries": ["SaaS"],
			"regions": ["APAC"],
			"company_size": "SMB",
			"keywords": ["CRM"],
			"roles": ["CTO"]
		},
		"actions": ["search_companies", "find_contacts"]
	}`)

	got, err := Validate(payload)
	require.NoError(t, err)
	require.Equal(t, "intent-1", got.IntentID)
	require.Equal(t, "Find SaaS companies in APAC.", got.RawText)
	require.Equal(t, []string{"search_companies", "find_contacts"}, got.Actions)
	require.Equal(t, []string{"SaaS"}, got.Filters.Industries)
}

// S2 — schema rejection.
func TestValidateRejectsInvalidAction(t *testing.T) {
	payload := []byte(`{"intent_id":"i1","raw_text":"x","filters":{},"actions":["invalid_action"]}`)

	_, err := Validate(payload)
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, asValErr(err, &ve), "expected *ValidationError, got %T", err)
	require.NotEmpty(t, ve.Errors)
	require.Equal(t, "Intent JSON does not match schema.", ve.Error())
}

func TestValidateRejectsMissingRequiredFields(t *testing.T) {
	_, err := Validate([]byte(`{"raw_text":"x","filters":{},"actions":[]}`))
	require.Error(t, err)
}

func TestValidateRejectsUnknownTopLevelField(t *testing.T) {
	payload := []byte(`{"intent_id":"i1","raw_text":"x","filters":{},"actions":[],"unexpected":true}`)
	_, err := Validate(payload)
	require.Error(t, err)
}

func TestValidateRejectsUnknownFilterKey(t *testing.T) {
	payload := []byte(`{"intent_id":"i1","raw_text":"x","filters":{"unexpected":"x"},"actions":[]}`)
	_, err := Validate(payload)
	require.Error(t, err)
}

func TestValidateRejectsEmptyIntentID(t *testing.T) {
	payload := []byte(`{"intent_id":"","raw_text":"x","filters":{},"actions":[]}`)
	_, err := Validate(payload)
	require.Error(t, err)
}

func asValErr(err error, target **ValidationError) bool {
	ve, ok := err.(*ValidationError)
	if !ok {
		return false
	}
	*target = ve
	return true
}
