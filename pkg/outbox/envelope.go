package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef names who triggered the event. Source distinguishes buyer
// actions from system ones like the reaper or the reconciliation engine.
type ActorRef struct {
	BuyerID uuid.UUID `json:"buyerId"`
	Source  string    `json:"source,omitempty"`
}

// PayloadEnvelope is the wire shape stored in outbox_events.payload and
// published verbatim to Pub/Sub. EventID is minted once at emit time, so
// consumers can dedupe across redeliveries. Version lets consumers handle
// schema changes without breaking on old rows.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
