package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUpdateRequest(t *testing.T) {
	msg := &IncomingMessage{
		Value: []byte(`{"type":"update_resource","resource_url":"http://example.org/a.xml","dataset_id":"ds-1","force":true}`),
	}

	require.NoError(t, msg.Parse())
	require.NotNil(t, msg.UpdateRequest)
	assert.Equal(t, "http://example.org/a.xml", msg.UpdateRequest.ResourceURL)
	assert.Equal(t, "ds-1", msg.UpdateRequest.DatasetID)
	assert.True(t, msg.UpdateRequest.Force)
	assert.Nil(t, msg.DeleteDatasetRequest)
}

func TestParseUntypedMessageDefaultsToUpdate(t *testing.T) {
	msg := &IncomingMessage{
		Value: []byte(`{"resource_url":"http://example.org/a.xml"}`),
	}

	require.NoError(t, msg.Parse())
	require.NotNil(t, msg.UpdateRequest)
	assert.False(t, msg.UpdateRequest.Force)
}

func TestParseTypeFromHeader(t *testing.T) {
	msg := &IncomingMessage{
		Value:   []byte(`{"dataset":"ds-1"}`),
		Headers: map[string]string{"type": "delete_dataset"},
	}

	require.NoError(t, msg.Parse())
	require.NotNil(t, msg.DeleteDatasetRequest)
	assert.Equal(t, "ds-1", msg.DeleteDatasetRequest.Dataset)
}

func TestParseRejectsBadMessages(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "not json", value: `resource_url=x`},
		{name: "update without resource_url", value: `{"type":"update_resource"}`},
		{name: "update with malformed resource_url", value: `{"type":"update_resource","resource_url":"not a url"}`},
		{name: "delete without dataset", value: `{"type":"delete_dataset"}`},
		{name: "unknown type", value: `{"type":"reticulate_splines"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &IncomingMessage{Value: []byte(tt.value)}
			assert.Error(t, msg.Parse())
		})
	}
}
