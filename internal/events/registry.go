package events

import (
	"fmt"

	"github.com/davidorozcoq/mercadito-backend/pkg/types"
)

// requiredProperties pins the property keys every producer of an event type
// must populate. The ledger itself is schemaless; this registry turns the
// producer/consumer convention into an enforced contract at ingestion time.
var requiredProperties = map[string][]string{
	"listing.created": {"category_id"},
	"escrow.step":     {"result"},
	"ui.click":        {"button"},
	"screen.view":     {"screen"},
	"feature.used":    {"feature_key"},
}

// validateProperties checks that the draft carries every key its event type
// requires. Unknown event types pass; the registry only constrains the types
// it knows about.
func validateProperties(eventType string, props types.JSONMap) error {
	required, ok := requiredProperties[eventType]
	if !ok {
		return nil
	}
	for _, key := range required {
		if props == nil {
			return fmt.Errorf("event type %q requires property %q", eventType, key)
		}
		if _, present := props[key]; !present {
			return fmt.Errorf("event type %q requires property %q", eventType, key)
		}
	}
	return nil
}
