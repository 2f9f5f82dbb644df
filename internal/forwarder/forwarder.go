// Package forwarder delivers classified events to the downstream backend
// and routes raw payloads through the reply flow.
package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"hookrelay/internal/config"
	"hookrelay/internal/constants"
	"hookrelay/internal/event"
	"hookrelay/internal/logger"
	"hookrelay/pkg/circuitbreaker"
	"hookrelay/pkg/metrics"
)

// Outcome describes a single forward attempt.
type Outcome struct {
	Success bool
	// Sync is true when the backend processed the event inline (HTTP 200)
	// rather than accepting it for asynchronous processing.
	Sync       bool
	StatusCode int
	Err        string
}

// Queue receives payloads that failed to deliver. Implemented by the retry
// queue manager.
type Queue interface {
	Enqueue(payload map[string]interface{}) bool
}

// ReplyClient posts comment replies back to the upstream platform.
// Implemented by the page API client.
type ReplyClient interface {
	ReplyToComment(ctx context.Context, commentID, postID, message, accessToken string) error
}

// Service forwards events to the configured backend URL.
type Service struct {
	cfg     config.ForwardingConfig
	policy  event.DispatchPolicy
	client  *http.Client
	breaker *circuitbreaker.Wrapper
	queue   Queue
	replies ReplyClient
	log     logger.Logger
}

func NewService(cfg config.ForwardingConfig, replies ReplyClient, log logger.Logger) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultForwardTimeout
	}
	return &Service{
		cfg:     cfg,
		policy:  event.NewDispatchPolicy(cfg.HighPriorityKinds, cfg.AsyncSizeThreshold),
		client:  &http.Client{Timeout: timeout},
		replies: replies,
		log:     log,
	}
}

// SetQueue attaches the retry queue. The queue in turn uses Deliver as its
// sender, so the two are wired after construction to break the cycle.
func (s *Service) SetQueue(q Queue) {
	s.queue = q
}

// SetBreaker installs a circuit breaker around backend calls.
func (s *Service) SetBreaker(b *circuitbreaker.Wrapper) {
	s.breaker = b
}

// Forward builds the backend envelope for a classified event and posts it.
// Events routed async carry only extracted metadata; the full document stays
// in the database. A non-success response or transport error enqueues the
// payload for retry.
func (s *Service) Forward(ctx context.Context, documentID string, kind event.Kind, data map[string]interface{}) Outcome {
	async := s.policy.ShouldProcessAsync(kind, data)
	pref := constants.ProcessingSync
	wireData := data
	if async {
		pref = constants.ProcessingAsync
		wireData = event.ExtractMetadata(kind, data)
	}

	payload := map[string]interface{}{
		"document_id":           documentID,
		"event_type":            string(kind),
		"data":                  wireData,
		"timestamp":             float64(time.Now().UnixNano()) / 1e9,
		"processing_preference": pref,
	}

	start := time.Now()
	status, _, err := s.post(ctx, payload)
	elapsed := float64(time.Since(start).Milliseconds())

	switch {
	case err != nil:
		metrics.ForwardAttemptsTotal.WithLabelValues("error").Inc()
		metrics.ForwardDuration.WithLabelValues("error").Observe(elapsed)
		s.log.ErrorwCtx(ctx, "forward failed", "error", err)
		s.enqueueForRetry(ctx, payload)
		return Outcome{Err: err.Error()}
	case status == http.StatusOK:
		metrics.ForwardAttemptsTotal.WithLabelValues("delivered").Inc()
		metrics.ForwardDuration.WithLabelValues("delivered").Observe(elapsed)
		return Outcome{Success: true, Sync: true, StatusCode: status}
	case isAsyncAccepted(status):
		metrics.ForwardAttemptsTotal.WithLabelValues("accepted").Inc()
		metrics.ForwardDuration.WithLabelValues("accepted").Observe(elapsed)
		return Outcome{Success: true, StatusCode: status}
	default:
		metrics.ForwardAttemptsTotal.WithLabelValues("rejected").Inc()
		metrics.ForwardDuration.WithLabelValues("rejected").Observe(elapsed)
		s.log.WarnwCtx(ctx, "backend rejected event", "status", status)
		s.enqueueForRetry(ctx, payload)
		return Outcome{StatusCode: status, Err: fmt.Sprintf("backend returned status %d", status)}
	}
}

// Deliver re-posts a previously built payload. It is the retry queue's
// sender: a failed delivery here is reported back to the queue, never
// re-enqueued by the forwarder itself.
func (s *Service) Deliver(ctx context.Context, payload map[string]interface{}) bool {
	status, _, err := s.post(ctx, payload)
	if err != nil {
		s.log.WarnwCtx(ctx, "retry delivery failed", "error", err)
		return false
	}
	return isSuccess(status)
}

// ForwardRaw posts the unclassified payload as-is. When the payload carries a
// feed comment and the backend response includes a message, that message is
// posted back as a comment reply using the page's access token. An empty
// message means the backend handled the event without wanting a reply.
func (s *Service) ForwardRaw(ctx context.Context, raw map[string]interface{}, pageToken string) bool {
	status, body, err := s.post(ctx, raw)
	if err != nil || !isSuccess(status) {
		if err != nil {
			s.log.ErrorwCtx(ctx, "raw forward failed", "error", err)
		} else {
			s.log.WarnwCtx(ctx, "backend rejected raw event", "status", status)
		}
		metrics.ForwardAttemptsTotal.WithLabelValues("error").Inc()
		s.enqueueForRetry(ctx, raw)
		return false
	}
	metrics.ForwardAttemptsTotal.WithLabelValues("delivered").Inc()

	commentID, postID, ok := event.FindCommentChange(raw)
	if !ok {
		return true
	}
	var resp struct {
		Message string `json:"message"`
	}
	if len(body) == 0 || json.Unmarshal(body, &resp) != nil {
		return true
	}
	if resp.Message == "" {
		s.log.DebugwCtx(ctx, "backend returned no reply message", "comment_id", commentID)
		return true
	}
	if s.replies == nil || pageToken == "" {
		s.log.WarnwCtx(ctx, "reply requested but no reply client or token configured", "comment_id", commentID)
		return true
	}
	if err := s.replies.ReplyToComment(ctx, commentID, postID, resp.Message, pageToken); err != nil {
		s.log.ErrorwCtx(ctx, "comment reply failed", "comment_id", commentID, "error", err)
	}
	return true
}

func (s *Service) enqueueForRetry(ctx context.Context, payload map[string]interface{}) {
	if s.queue == nil {
		return
	}
	if !s.queue.Enqueue(payload) {
		s.log.WarnwCtx(ctx, "retry queue rejected payload, event will only exist in the database")
	}
}

type postResult struct {
	status int
	body   []byte
}

func (s *Service) post(ctx context.Context, payload map[string]interface{}) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshaling payload: %w", err)
	}

	do := func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BackendURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if s.cfg.APIKey != "" {
			req.Header.Set("api_key", s.cfg.APIKey)
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		// Cap reads so a misbehaving backend cannot balloon memory.
		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		return postResult{status: resp.StatusCode, body: respBody}, nil
	}

	var result interface{}
	if s.breaker != nil {
		result, err = s.breaker.ExecuteWithContext(ctx, do)
	} else {
		result, err = do()
	}
	if err != nil {
		return 0, nil, err
	}
	res := result.(postResult)
	return res.status, res.body, nil
}

func isAsyncAccepted(status int) bool {
	return status == http.StatusCreated || status == http.StatusAccepted || status == http.StatusNoContent
}

func isSuccess(status int) bool {
	return status == http.StatusOK || isAsyncAccepted(status)
}
