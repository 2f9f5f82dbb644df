// Package ingest owns the webhook intake path: classification, persistence,
// token bookkeeping and the hand-off to the forwarder.
package ingest

import (
	"context"

	"hookrelay/internal/config"
	"hookrelay/internal/constants"
	"hookrelay/internal/event"
	"hookrelay/internal/forwarder"
	"hookrelay/internal/logger"
	"hookrelay/pkg/logging"
	"hookrelay/pkg/metrics"
)

// Processing status strings reported by the orchestrator. They only feed
// logs and metrics; callers never branch on them.
const (
	StatusSkipped             = "skipped"
	StatusStoreError          = "store_error"
	StatusForwarded           = "forwarded"
	StatusAccepted            = "accepted"
	StatusForwardingDisabled  = "forwarding_disabled"
	StatusPageOff             = "page_off"
	StatusNotificationSaved   = "notification_recorded"
	StatusNotificationUpdated = "notification_updated"
)

// Forwarder is the slice of the forwarding service the orchestrator needs.
type Forwarder interface {
	Forward(ctx context.Context, documentID string, kind event.Kind, data map[string]interface{}) forwarder.Outcome
	ForwardRaw(ctx context.Context, raw map[string]interface{}, pageToken string) bool
}

// Service sequences one inbound payload through classify, persist, confirm
// and forward. Every failure is absorbed into a status string; nothing
// escapes to the HTTP layer.
type Service struct {
	repo Repository
	fwd  Forwarder
	cfg  config.ForwardingConfig
	log  logger.Logger
}

func NewService(repo Repository, fwd Forwarder, cfg config.ForwardingConfig, log logger.Logger) *Service {
	return &Service{
		repo: repo,
		fwd:  fwd,
		cfg:  cfg,
		log:  log,
	}
}

// Process handles one structured-mode payload.
func (s *Service) Process(ctx context.Context, raw map[string]interface{}, timeID float64) string {
	ev, docID, status := s.ingest(ctx, raw, timeID)
	if ev == nil {
		return status
	}
	ctx = logging.WithDocumentID(ctx, docID)

	switch ev.EventType {
	case event.KindNotificationMessages:
		// Token events are bookkeeping only and never reach the backend.
		return s.handleNotification(ctx, ev)
	case event.KindAddressForm:
		s.persistAddress(ctx, ev)
	}

	if !s.cfg.Enabled {
		s.forceConfirm(ctx, ev, docID)
		return StatusForwardingDisabled
	}

	outcome := s.fwd.Forward(ctx, docID, ev.EventType, ev.Data)
	if !outcome.Success {
		s.recordForwardError(ctx, ev, docID, outcome.Err)
		metrics.WebhookEventsTotal.WithLabelValues(string(ev.EventType), StatusPendingRetry).Inc()
		return StatusPendingRetry
	}

	metrics.WebhookEventsTotal.WithLabelValues(string(ev.EventType), StatusForwarded).Inc()
	if outcome.Sync {
		return StatusForwarded
	}
	return StatusAccepted
}

// ProcessRaw handles one payload in raw-forwarding mode: the original body is
// delivered unchanged and the page's access token drives the reply flow. The
// event is still classified and persisted for the durable trail.
func (s *Service) ProcessRaw(ctx context.Context, raw map[string]interface{}, timeID float64) string {
	ev, docID, status := s.ingest(ctx, raw, timeID)
	if ev == nil {
		return status
	}
	ctx = logging.WithDocumentID(ctx, docID)

	if ev.EventType == event.KindNotificationMessages {
		return s.handleNotification(ctx, ev)
	}
	if ev.EventType == event.KindAddressForm {
		s.persistAddress(ctx, ev)
	}

	page := s.repo.GetPage(ctx, ev.PageID)
	if page.Status != constants.PageStatusOn {
		s.forceConfirm(ctx, ev, docID)
		metrics.WebhookEventsTotal.WithLabelValues(string(ev.EventType), StatusPageOff).Inc()
		return StatusPageOff
	}

	if !s.fwd.ForwardRaw(ctx, raw, page.PageAccessToken) {
		s.recordForwardError(ctx, ev, docID, "raw forward failed")
		metrics.WebhookEventsTotal.WithLabelValues(string(ev.EventType), StatusPendingRetry).Inc()
		return StatusPendingRetry
	}

	metrics.WebhookEventsTotal.WithLabelValues(string(ev.EventType), StatusForwarded).Inc()
	return StatusForwarded
}

// ingest classifies and persists the payload. A nil event means the caller
// should stop with the returned status.
func (s *Service) ingest(ctx context.Context, raw map[string]interface{}, timeID float64) (*event.StructuredEvent, string, string) {
	ev := event.Classify(raw, timeID)
	if ev == nil {
		s.log.DebugwCtx(ctx, "payload suppressed by classification")
		metrics.WebhookEventsTotal.WithLabelValues("none", StatusSkipped).Inc()
		return nil, "", StatusSkipped
	}

	docID, err := s.repo.InsertLog(ctx, ev)
	if err != nil {
		s.log.ErrorwCtx(ctx, "failed to persist event",
			"event_type", ev.EventType,
			"error", err)
		metrics.WebhookEventsTotal.WithLabelValues(string(ev.EventType), StatusStoreError).Inc()
		return nil, "", StatusStoreError
	}

	confirm := ConfirmationRecord{
		TimeID:            ev.TimeID,
		SchemaVersion:     event.SchemaVersion,
		Type:              event.TypeEventConfirm,
		PageID:            ev.PageID,
		EventType:         ev.EventType,
		RelatedDocumentID: docID,
	}
	if _, err := s.repo.InsertLog(ctx, confirm); err != nil {
		// The event itself is stored; a lost confirmation is log-worthy
		// but not fatal.
		s.log.WarnwCtx(ctx, "failed to persist confirmation record",
			"document_id", docID,
			"error", err)
	}

	s.log.InfowCtx(ctx, "event ingested",
		"event_type", ev.EventType,
		"page_id", ev.PageID,
		"document_id", docID)
	return ev, docID, ""
}

func (s *Service) handleNotification(ctx context.Context, ev *event.StructuredEvent) string {
	token := stringField(ev.Data, "notification_messages_token")
	status := stringField(ev.Data, "notification_messages_status")

	existing, err := s.repo.FindNotificationByToken(ctx, token)
	if err != nil {
		s.log.ErrorwCtx(ctx, "notification token lookup failed",
			"error", err)
		return StatusStoreError
	}

	if existing != nil {
		if err := s.repo.UpdateNotificationStatus(ctx, token, status); err != nil {
			s.log.ErrorwCtx(ctx, "notification status update failed",
				"error", err)
			return StatusStoreError
		}
		return StatusNotificationUpdated
	}

	record := NotificationRecord{
		TimeID:            ev.TimeID,
		PageID:            ev.PageID,
		SenderID:          stringField(ev.Data, "sender_id"),
		RecipientID:       stringField(ev.Data, "recipient_id"),
		NotificationToken: token,
		TokenExpiry:       stringField(ev.Data, "token_expiry_timestamp"),
		UserTokenStatus:   stringField(ev.Data, "user_token_status"),
		Timezone:          stringField(ev.Data, "notification_messages_timezone"),
		Title:             stringField(ev.Data, "title"),
		Status:            status,
	}
	if err := s.repo.InsertNotification(ctx, record); err != nil {
		s.log.ErrorwCtx(ctx, "notification insert failed",
			"error", err)
		return StatusStoreError
	}
	return StatusNotificationSaved
}

func (s *Service) persistAddress(ctx context.Context, ev *event.StructuredEvent) {
	address, _ := ev.Data["address"].(map[string]interface{})
	record := AddressRecord{
		TimeID:      ev.TimeID,
		PageID:      ev.PageID,
		SenderID:    stringField(ev.Data, "sender_id"),
		RecipientID: stringField(ev.Data, "recipient_id"),
		Address:     address,
	}
	if err := s.repo.InsertAddress(ctx, record); err != nil {
		s.log.ErrorwCtx(ctx, "address insert failed",
			"error", err)
	}
}

// forceConfirm marks an event as settled without a backend delivery, for
// pages that are switched off or deployments with forwarding disabled.
func (s *Service) forceConfirm(ctx context.Context, ev *event.StructuredEvent, docID string) {
	record := ConfirmationRecord{
		TimeID:            ev.TimeID,
		SchemaVersion:     event.SchemaVersion,
		Type:              event.TypeForceConfirm,
		PageID:            ev.PageID,
		EventType:         ev.EventType,
		RelatedDocumentID: docID,
	}
	if _, err := s.repo.InsertLog(ctx, record); err != nil {
		s.log.WarnwCtx(ctx, "failed to persist force-confirm record",
			"document_id", docID,
			"error", err)
	}
}

func (s *Service) recordForwardError(ctx context.Context, ev *event.StructuredEvent, docID, reason string) {
	record := ForwardErrorRecord{
		TimeID:        ev.TimeID,
		SchemaVersion: event.SchemaVersion,
		Type:          event.TypeForwardError,
		PageID:        ev.PageID,
		EventType:     ev.EventType,
		DocumentID:    docID,
		Status:        StatusPendingRetry,
		Error:         reason,
	}
	if _, err := s.repo.InsertLog(ctx, record); err != nil {
		s.log.ErrorwCtx(ctx, "failed to persist forward-error record",
			"document_id", docID,
			"error", err)
	}
}

func stringField(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}
