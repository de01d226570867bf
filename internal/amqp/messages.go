package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind is what happened to the entity.
type Kind string

const (
	Created Kind = "created"
	Updated Kind = "updated"
	Deleted Kind = "deleted"
)

// Entity names the record type a LedgerEvent refers to.
type Entity string

const (
	CategoryEntity    Entity = "category"
	TransactionEntity Entity = "transaction"
)

// LedgerEvent announces a committed write. It carries only identifiers;
// consumers read the current state back from the store.
type LedgerEvent struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	Entity    Entity    `json:"entity"`
	EntityID  int64     `json:"entityId"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(kind Kind, entity Entity, entityID int64) LedgerEvent {
	return LedgerEvent{
		ID:        uuid.New(),
		Kind:      kind,
		Entity:    entity,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

// RoutingKey extends base with the entity and kind, e.g. ledger.changed.category.updated.
func (e LedgerEvent) RoutingKey(base string) string {
	return fmt.Sprintf("%s.%s.%s", base, e.Entity, e.Kind)
}

func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return LedgerEvent{}, fmt.Errorf("decode ledger event: %w", err)
	}
	if e.ID == uuid.Nil {
		return LedgerEvent{}, fmt.Errorf("decode ledger event: missing id")
	}
	return e, nil
}
