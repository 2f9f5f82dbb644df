package event

// Kind is the closed set of classified webhook event types.
type Kind string

const (
	KindMessage              Kind = "message"
	KindComment              Kind = "comment"
	KindReaction             Kind = "reaction"
	KindLike                 Kind = "like"
	KindPostCreation         Kind = "post_creation"
	KindPhotoPost            Kind = "photo_post"
	KindNotificationMessages Kind = "notification_messages"
	KindAddressForm          Kind = "address_form"
	KindUnknown              Kind = "unknown"
)

// Wire/store constants carried over from the upstream payload contract.
const (
	SchemaVersion = "21-03: 17.00"

	TypeEventIn      = "fb_event_in"
	TypeEventConfirm = "fb_event_confirm"
	TypeForwardError = "fb_event_forward_error"
	TypeForceConfirm = "fb_event_force_confirm"
)

// Notification-messages token states.
const (
	TokenStatusAvailable    = "AVAILABLE"
	TokenStatusNotAvailable = "NOT_AVAILABLE"

	StatusResumeNotifications = "RESUME_NOTIFICATIONS"
)

// StructuredEvent is the normalized record derived from one raw webhook
// payload. Data is shaped by EventType; the two are always consistent.
type StructuredEvent struct {
	TimeID        float64                `json:"time_id" bson:"time_id"`
	SchemaVersion string                 `json:"version_api" bson:"version_api"`
	Type          string                 `json:"type" bson:"type"`
	PageID        string                 `json:"page_id" bson:"page_id"`
	EventType     Kind                   `json:"event_type" bson:"event_type"`
	Data          map[string]interface{} `json:"data" bson:"data"`
}
