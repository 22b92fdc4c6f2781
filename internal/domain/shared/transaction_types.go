package shared

// ReferenceType names the subsystem a wallet transaction points at. The column is a loose
// string; these are the values the ledger understands.
type ReferenceType = string

const (
	ReferenceTypeTicketPurchase ReferenceType = "ticket_purchase"
	ReferenceTypeOrder          ReferenceType = "order"
	ReferenceTypeEmailGrant     ReferenceType = "email_grant"
	ReferenceTypeAllocation     ReferenceType = "allocation"
)

// Common wallet transaction types.
const (
	TransactionTypePurchase   = "purchase"
	TransactionTypeConsume    = "consume"
	TransactionTypeRefund     = "refund"
	TransactionTypeAdjustment = "adjustment"
)

// OrderStatusCompleted is the only order status that represents a real sale.
const OrderStatusCompleted = "completed"

// GrantStatusActive marks an email access grant that currently gives access.
const GrantStatusActive = "active"

// FailureReason defines adjustment request failure categories
type FailureReason string

const (
	FailureReasonInsufficientBalance FailureReason = "INSUFFICIENT_BALANCE"
	FailureReasonInvalidAmount       FailureReason = "INVALID_AMOUNT"
	FailureReasonInvalidRequest      FailureReason = "INVALID_REQUEST"
	FailureReasonAllocationFailed    FailureReason = "ALLOCATION_FAILED"
	FailureReasonUnknownError        FailureReason = "UNKNOWN_ERROR"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
