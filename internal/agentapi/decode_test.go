// ABOUTME: Tests for the response-shape normalizer
// ABOUTME: Covers success envelopes, bare arrays, data wrappers and failure envelopes

package agentapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecords_Shapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "success envelope",
			body: `{"success": true, "chats": [{"id":"a"},{"id":"b"}]}`,
			want: 2,
		},
		{
			name: "bare array",
			body: `[{"id":"a"},{"id":"b"},{"id":"c"}]`,
			want: 3,
		},
		{
			name: "data wrapper",
			body: `{"data": [{"id":"a"}]}`,
			want: 1,
		},
		{
			name: "envelope without success field",
			body: `{"chats": []}`,
			want: 0,
		},
		{
			name: "data wrapper beats nothing when key absent",
			body: `{"success": true, "data": [{"id":"a"},{"id":"b"}]}`,
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := decodeRecords([]byte(tt.body), "chats")
			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}
}

func TestDecodeRecords_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "success false",
			body: `{"success": false, "error": "nope", "chats": [{"id":"a"}]}`,
		},
		{
			name: "empty body",
			body: ``,
		},
		{
			name: "not json",
			body: `<html>502</html>`,
		},
		{
			name: "object without collection",
			body: `{"success": true, "count": 4}`,
		},
		{
			name: "collection is not an array",
			body: `{"chats": "many"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeRecords([]byte(tt.body), "chats")
			assert.Error(t, err)
		})
	}
}

func TestDecodeRecords_FailureEnvelopeCarriesDetail(t *testing.T) {
	_, err := decodeRecords([]byte(`{"success": false, "error": "token expired"}`), "chats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token expired")
}
