package notification

import (
	"context"

	"bookline/models"
)

// Publisher delivers engine events to the external realtime layer. Fan-out to
// client channels happens outside this core; we only publish the change with
// the affected entity ID and its new value.
type Publisher interface {
	Publish(ctx context.Context, event models.EngineEvent) error
}
