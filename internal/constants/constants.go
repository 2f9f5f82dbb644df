package constants

import "time"

const (
	DefaultForwardTimeout = 15 * time.Second
	DefaultReplyTimeout   = 15 * time.Second
)

const (
	DefaultQueueCapacity = 100
	DefaultMaxAttempts   = 3
	DefaultAttemptDelay  = 3 * time.Second
)

const (
	// Serialized payloads above this size travel as metadata summaries.
	DefaultAsyncSizeThreshold = 10000
)

const (
	DefaultMongoDBName      = "hookrelay"
	CollectionWebhookLogs   = "webhook_logs"
	CollectionPages         = "pages"
	CollectionNotifications = "notification_messages"
	CollectionAddresses     = "addresses"
)

const (
	ShutdownTimeout   = 5 * time.Second
	ProcessingTimeout = 60 * time.Second
)

const (
	PageStatusOn  = "on"
	PageStatusOff = "off"
)

const (
	ProcessingSync  = "sync"
	ProcessingAsync = "async"
)

const (
	ForwardModeStructured = "structured"
	ForwardModeRaw        = "raw"
)

const MetadataPreviewLen = 50
