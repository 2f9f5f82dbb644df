package ingest

import "hookrelay/internal/event"

// PageRecord is the per-page configuration document. Status gates raw
// forwarding and holds the access token used for replies.
type PageRecord struct {
	PageID          string `bson:"page_id" json:"page_id"`
	Status          string `bson:"status" json:"status"`
	PageAccessToken string `bson:"page_access_token" json:"page_access_token,omitempty"`
	StoreID         string `bson:"store_id" json:"store_id,omitempty"`
}

// ConfirmationRecord marks that an inbound event was persisted. Written right
// after the event document so a missing confirmation flags a half-finished
// ingest.
type ConfirmationRecord struct {
	TimeID            float64    `bson:"time_id"`
	SchemaVersion     string     `bson:"version_api"`
	Type              string     `bson:"type"`
	PageID            string     `bson:"page_id"`
	EventType         event.Kind `bson:"event_type"`
	RelatedDocumentID string     `bson:"related_document_id"`
}

// ForwardErrorRecord captures a backend delivery failure. Status stays
// "pending_retry"; the in-memory queue owns the retries and the record is the
// durable trace of the failure.
type ForwardErrorRecord struct {
	TimeID        float64    `bson:"time_id"`
	SchemaVersion string     `bson:"version_api"`
	Type          string     `bson:"type"`
	PageID        string     `bson:"page_id"`
	EventType     event.Kind `bson:"event_type"`
	DocumentID    string     `bson:"document_id"`
	Status        string     `bson:"status"`
	Error         string     `bson:"error"`
}

const StatusPendingRetry = "pending_retry"

// NotificationRecord stores one opt-in token. The token is unique across the
// collection; repeated webhooks for the same token only flip the status.
type NotificationRecord struct {
	TimeID            float64 `bson:"time_id"`
	PageID            string  `bson:"page_id"`
	SenderID          string  `bson:"sender_id"`
	RecipientID       string  `bson:"recipient_id"`
	NotificationToken string  `bson:"notification_messages_token"`
	TokenExpiry       string  `bson:"token_expiry_timestamp,omitempty"`
	UserTokenStatus   string  `bson:"user_token_status,omitempty"`
	Timezone          string  `bson:"notification_messages_timezone,omitempty"`
	Title             string  `bson:"title,omitempty"`
	Status            string  `bson:"notification_messages_status"`
}

// AddressRecord stores a flattened customer-information form response.
type AddressRecord struct {
	TimeID      float64                `bson:"time_id"`
	PageID      string                 `bson:"page_id"`
	SenderID    string                 `bson:"sender_id"`
	RecipientID string                 `bson:"recipient_id"`
	Address     map[string]interface{} `bson:"address"`
}
