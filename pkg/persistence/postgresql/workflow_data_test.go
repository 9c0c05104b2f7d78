package postgresql

import (
	"testing"

	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeDataJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		node     *models.WorkflowNode
		wantJSON string
		wantData models.NodeData
	}{
		{
			name:     "nil data stores an empty object",
			node:     &models.WorkflowNode{ID: "end", Type: models.NodeTypeEnd},
			wantJSON: `{}`,
			wantData: models.EndData{},
		},
		{
			name: "status data",
			node: &models.WorkflowNode{
				ID:   "confirm",
				Type: models.NodeTypeStatus,
				Data: models.StatusData{Label: "Confirm", Status: models.BookingStatusConfirmed},
			},
			wantJSON: `{"label":"Confirm","status":"confirmed"}`,
			wantData: models.StatusData{Label: "Confirm", Status: models.BookingStatusConfirmed},
		},
		{
			name: "pointer status data",
			node: &models.WorkflowNode{
				ID:   "confirm",
				Type: models.NodeTypeStatus,
				Data: &models.StatusData{Status: models.BookingStatusConfirmed},
			},
			wantJSON: `{"status":"confirmed"}`,
			wantData: models.StatusData{Status: models.BookingStatusConfirmed},
		},
		{
			name:     "nil pointer stores the type defaults",
			node:     &models.WorkflowNode{ID: "end", Type: models.NodeTypeEnd, Data: (*models.EndData)(nil)},
			wantJSON: `{}`,
			wantData: models.EndData{},
		},
		{
			name: "notification data",
			node: &models.WorkflowNode{
				ID:   "notify",
				Type: models.NodeTypeNotification,
				Data: models.NotificationData{NotificationType: models.NotifyEmail, Message: "Hello {{userName}}"},
			},
			wantJSON: `{"notificationType":"email","message":"Hello {{userName}}"}`,
			wantData: models.NotificationData{NotificationType: models.NotifyEmail, Message: "Hello {{userName}}"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dataJSON, err := nodeDataJSON(tt.node)
			require.NoError(t, err)
			assert.JSONEq(t, tt.wantJSON, string(dataJSON))

			decoded, err := models.DecodeNodeData(tt.node.Type, dataJSON)
			require.NoError(t, err)
			assert.Equal(t, tt.wantData, decoded)
		})
	}
}
