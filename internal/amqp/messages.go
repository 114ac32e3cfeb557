package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"ledger/internal/core"
)

type EventType string

const (
	EventExpenseCreated  EventType = "expense.created"
	EventExpenseUpdated  EventType = "expense.updated"
	EventExpenseDeleted  EventType = "expense.deleted"
	EventIncomeCreated   EventType = "income.created"
	EventIncomeDeleted   EventType = "income.deleted"
	EventBudgetSet       EventType = "budget.set"
	EventGoalCreated     EventType = "goal.created"
	EventGoalContributed EventType = "goal.contributed"
	EventGoalDeleted     EventType = "goal.deleted"
)

func (t EventType) IsValid() bool {
	switch t {
	case EventExpenseCreated, EventExpenseUpdated, EventExpenseDeleted,
		EventIncomeCreated, EventIncomeDeleted,
		EventBudgetSet,
		EventGoalCreated, EventGoalContributed, EventGoalDeleted:
		return true
	default:
		return false
	}
}

// AffectsSpending reports whether the event changes the spent total of its category.
func (t EventType) AffectsSpending() bool {
	switch t {
	case EventExpenseCreated, EventExpenseUpdated, EventGoalContributed:
		return true
	default:
		return false
	}
}

// LedgerEvent is a lightweight notification that a ledger record changed.
// Consumers read current state from the database; the event only says where to look.
type LedgerEvent struct {
	Type        EventType `json:"type"`
	EntityID    int64     `json:"entity_id"`
	Category    string    `json:"category,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewLedgerEvent(t EventType, entityID int64, category string, amount core.Money) *LedgerEvent {
	return &LedgerEvent{
		Type:        t,
		EntityID:    entityID,
		Category:    category,
		AmountCents: amount.Cents,
		Timestamp:   time.Now().UTC(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event and rejects unknown types.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if !e.Type.IsValid() {
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	return &e, nil
}
