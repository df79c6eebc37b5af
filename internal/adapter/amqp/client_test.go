package amqp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/recurring-ledger/internal/domain"
)

type fakeChannel struct {
	published []amqp091.Publishing
	keys      []string
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func fixtures() (*domain.RecurringSeries, *domain.Transaction) {
	owner := uuid.New()
	series := &domain.RecurringSeries{ID: uuid.New(), OwnerID: owner, Name: "Rent"}
	seriesID := series.ID
	tx := &domain.Transaction{
		ID:       uuid.New(),
		OwnerID:  owner,
		Amount:   decimal.RequireFromString("-1200.5"),
		Kind:     domain.KindExpense,
		Category: "housing",
		Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		SeriesID: &seriesID,
	}
	return series, tx
}

func TestPublisher_NotifyExecuted(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "recurring", "series.executed", nil)
	executedAt := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	p.now = func() time.Time { return executedAt }

	series, tx := fixtures()
	require.NoError(t, p.NotifyExecuted(context.Background(), series, tx))

	require.Len(t, ch.published, 1)
	assert.Equal(t, []string{"recurring/series.executed"}, ch.keys)
	msg := ch.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp091.Persistent, msg.DeliveryMode)
	assert.Equal(t, tx.ID.String(), msg.MessageId)

	event, err := ExecutionEventFromJSON(msg.Body)
	require.NoError(t, err)
	assert.Equal(t, series.ID, event.SeriesID)
	assert.Equal(t, "Rent", event.SeriesName)
	assert.Equal(t, tx.ID, event.TransactionID)
	assert.Equal(t, "-1200.50", event.Amount)
	assert.Equal(t, "expense", event.Kind)
	assert.Equal(t, "2024-03-01", event.Date)
	assert.True(t, executedAt.Equal(event.ExecutedAt))
}

func TestPublisher_NotifyExecutedErrors(t *testing.T) {
	series, tx := fixtures()

	t.Run("publish failure is wrapped", func(t *testing.T) {
		brokerErr := errors.New("channel closed")
		p := newPublisher(&fakeChannel{err: brokerErr}, "recurring", "series.executed", nil)
		err := p.NotifyExecuted(context.Background(), series, tx)
		assert.ErrorIs(t, err, brokerErr)
	})

	t.Run("nil transaction", func(t *testing.T) {
		ch := &fakeChannel{}
		p := newPublisher(ch, "recurring", "series.executed", nil)
		assert.Error(t, p.NotifyExecuted(context.Background(), series, nil))
		assert.Empty(t, ch.published)
	})
}

func TestPublisher_Close(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "recurring", "series.executed", nil)
	assert.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestExecutionEventFromJSON_Invalid(t *testing.T) {
	_, err := ExecutionEventFromJSON([]byte("{not json"))
	assert.Error(t, err)
}
