package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ramsey-B/fern/pkg/utils"
)

// UpdateRequest asks the crawler to re-import one resource. Force skips
// the document hash short circuit and reparses even unchanged bytes.
type UpdateRequest struct {
	ResourceURL string `json:"resource_url"`
	DatasetID   string `json:"dataset_id"`
	Force       bool   `json:"force"`
}

// DeleteDatasetRequest asks the crawler to drop a dataset and tombstone
// its activities.
type DeleteDatasetRequest struct {
	Dataset string `json:"dataset"`
}

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	UpdateRequest        *UpdateRequest
	DeleteDatasetRequest *DeleteDatasetRequest
}

// Parse reads the message value into the request shape named by the
// "type" header or field.
func (m *IncomingMessage) Parse() error {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(m.Value, &envelope); err != nil {
		return err
	}

	messageType := envelope.Type
	if messageType == "" {
		messageType = m.Headers["type"]
	}

	switch messageType {
	case "", "update_resource":
		var req UpdateRequest
		if err := json.Unmarshal(m.Value, &req); err != nil {
			return err
		}
		if err := utils.ValidateValue(req.ResourceURL, "required,url"); err != nil {
			return fmt.Errorf("update request resource_url: %w", err)
		}
		m.UpdateRequest = &req
		return nil
	case "delete_dataset":
		var req DeleteDatasetRequest
		if err := json.Unmarshal(m.Value, &req); err != nil {
			return err
		}
		if err := utils.ValidateValue(req.Dataset, "required"); err != nil {
			return fmt.Errorf("delete request dataset: %w", err)
		}
		m.DeleteDatasetRequest = &req
		return nil
	default:
		return fmt.Errorf("unknown message type %q", messageType)
	}
}
