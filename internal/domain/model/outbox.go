package model

import (
	"time"

	"github.com/google/uuid"
)

// OutboxMessageType identifies the side effect an outbox message triggers.
type OutboxMessageType string

const (
	OutboxNotifyCustomer    OutboxMessageType = "notify.customer"
	OutboxNotifyOperator    OutboxMessageType = "notify.operator"
	OutboxInventoryMarkSold OutboxMessageType = "inventory.mark_sold"
	OutboxOrderPaidEvent    OutboxMessageType = "order.paid"
)

// OutboxMessageStatus describes delivery state of an outbox message.
type OutboxMessageStatus string

const (
	OutboxStatusPending    OutboxMessageStatus = "pending"
	OutboxStatusProcessing OutboxMessageStatus = "processing"
	OutboxStatusSent       OutboxMessageStatus = "sent"
	OutboxStatusFailed     OutboxMessageStatus = "failed"
)

// OutboxMessage is a side effect recorded together with an order transition
// and delivered later by the dispatcher.
type OutboxMessage struct {
	ID          uuid.UUID
	Type        OutboxMessageType
	AggregateID string
	Payload     []byte
	Status      OutboxMessageStatus
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	SentAt      *time.Time
}
