package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/recurring-ledger/internal/domain"
)

// ExecutionEvent is published once for every transaction created by a series run.
// Amounts travel as decimal strings.
type ExecutionEvent struct {
	SeriesID      uuid.UUID `json:"series_id"`
	SeriesName    string    `json:"series_name"`
	OwnerID       uuid.UUID `json:"owner_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Amount        string    `json:"amount"`
	Kind          string    `json:"kind"`
	Category      string    `json:"category,omitempty"`
	Date          string    `json:"date"`
	ExecutedAt    time.Time `json:"executed_at"`
}

// NewExecutionEvent builds the event for a persisted transaction
func NewExecutionEvent(series *domain.RecurringSeries, tx *domain.Transaction, executedAt time.Time) *ExecutionEvent {
	return &ExecutionEvent{
		SeriesID:      series.ID,
		SeriesName:    series.Name,
		OwnerID:       tx.OwnerID,
		TransactionID: tx.ID,
		Amount:        tx.Amount.StringFixed(2),
		Kind:          string(tx.Kind),
		Category:      tx.Category,
		Date:          tx.Date.Format(time.DateOnly),
		ExecutedAt:    executedAt.UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *ExecutionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExecutionEventFromJSON decodes an event published by Publisher
func ExecutionEventFromJSON(data []byte) (*ExecutionEvent, error) {
	var e ExecutionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
