package shared

import "github.com/google/uuid"

// LedgerCommand instructs the ledger pipeline to post entries for a
// committed business event. Commands are buffered alongside domain
// events and flushed only when the enclosing transaction commits.
type LedgerCommand struct {
	Type           string         `json:"type"`
	OrganizationID string         `json:"organization_id"`
	Livemode       bool           `json:"livemode"`
	Payload        map[string]any `json:"payload,omitempty"`
}

// TransactionOutcome carries a workflow result together with the side
// effects the workflow accumulated while the transaction was open.
// Callers persist Events and LedgerCommands with the commit; on
// rollback the whole outcome is discarded.
type TransactionOutcome[T any] struct {
	Value          T
	Events         []DomainEvent
	LedgerCommands []LedgerCommand
	// ReceiptRequests lists invoices whose receipts the caller
	// dispatches after the commit. A rollback drops them with the rest
	// of the outcome.
	ReceiptRequests []uuid.UUID
}

// NewTransactionOutcome creates an outcome with no side effects yet
func NewTransactionOutcome[T any](value T) *TransactionOutcome[T] {
	return &TransactionOutcome[T]{Value: value}
}

// AddEvent buffers a domain event
func (o *TransactionOutcome[T]) AddEvent(event DomainEvent) {
	o.Events = append(o.Events, event)
}

// AddEvents buffers multiple domain events preserving order
func (o *TransactionOutcome[T]) AddEvents(events ...DomainEvent) {
	o.Events = append(o.Events, events...)
}

// AddLedgerCommand buffers a ledger command
func (o *TransactionOutcome[T]) AddLedgerCommand(cmd LedgerCommand) {
	o.LedgerCommands = append(o.LedgerCommands, cmd)
}

// AddReceiptRequest buffers an invoice for post-commit receipt
// generation
func (o *TransactionOutcome[T]) AddReceiptRequest(invoiceID uuid.UUID) {
	o.ReceiptRequests = append(o.ReceiptRequests, invoiceID)
}
