package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookrelay/internal/config"
	"hookrelay/internal/constants"
	"hookrelay/internal/event"
	"hookrelay/internal/forwarder"
	"hookrelay/internal/logger"
)

type fakeRepo struct {
	mu            sync.Mutex
	logs          []interface{}
	pages         map[string]PageRecord
	notifications map[string]NotificationRecord
	statusUpdates map[string]string
	addresses     []AddressRecord

	insertLogErr error
	findTokenErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		pages:         map[string]PageRecord{},
		notifications: map[string]NotificationRecord{},
		statusUpdates: map[string]string{},
	}
}

func (r *fakeRepo) InsertLog(_ context.Context, doc interface{}) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertLogErr != nil {
		return "", r.insertLogErr
	}
	r.logs = append(r.logs, doc)
	return fmt.Sprintf("doc-%d", len(r.logs)), nil
}

func (r *fakeRepo) GetPage(_ context.Context, pageID string) PageRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if page, ok := r.pages[pageID]; ok {
		return page
	}
	return PageRecord{PageID: pageID, Status: constants.PageStatusOff}
}

func (r *fakeRepo) UpsertPage(_ context.Context, page PageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[page.PageID] = page
	return nil
}

func (r *fakeRepo) FindNotificationByToken(_ context.Context, token string) (*NotificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findTokenErr != nil {
		return nil, r.findTokenErr
	}
	if record, ok := r.notifications[token]; ok {
		return &record, nil
	}
	return nil, nil
}

func (r *fakeRepo) InsertNotification(_ context.Context, record NotificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications[record.NotificationToken] = record
	return nil
}

func (r *fakeRepo) UpdateNotificationStatus(_ context.Context, token, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusUpdates[token] = status
	return nil
}

func (r *fakeRepo) InsertAddress(_ context.Context, record AddressRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addresses = append(r.addresses, record)
	return nil
}

func (r *fakeRepo) EnsureIndexes(context.Context) error { return nil }

type forwardCall struct {
	documentID string
	kind       event.Kind
	data       map[string]interface{}
}

type fakeForwarder struct {
	mu       sync.Mutex
	calls    []forwardCall
	rawCalls []string // page tokens
	outcome  forwarder.Outcome
	rawOK    bool
}

func (f *fakeForwarder) Forward(_ context.Context, documentID string, kind event.Kind, data map[string]interface{}) forwarder.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, forwardCall{documentID, kind, data})
	return f.outcome
}

func (f *fakeForwarder) ForwardRaw(_ context.Context, _ map[string]interface{}, pageToken string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rawCalls = append(f.rawCalls, pageToken)
	return f.rawOK
}

func newTestService(repo Repository, fwd Forwarder, enabled bool) *Service {
	return NewService(repo, fwd, config.ForwardingConfig{Enabled: enabled}, logger.NopLogger())
}

func rawMessagePayload() map[string]interface{} {
	return map[string]interface{}{
		"object": "page",
		"entry": []interface{}{
			map[string]interface{}{
				"id": "page-1",
				"messaging": []interface{}{
					map[string]interface{}{
						"sender":    map[string]interface{}{"id": "user-1"},
						"recipient": map[string]interface{}{"id": "page-1"},
						"timestamp": float64(1700000000),
						"message":   map[string]interface{}{"mid": "m-1", "text": "hello"},
					},
				},
			},
		},
	}
}

func rawSelfCommentPayload() map[string]interface{} {
	return map[string]interface{}{
		"object": "page",
		"entry": []interface{}{
			map[string]interface{}{
				"id": "page-1",
				"changes": []interface{}{
					map[string]interface{}{
						"field": "feed",
						"value": map[string]interface{}{
							"item":       "comment",
							"from":       map[string]interface{}{"id": "page-1", "name": "The Page"},
							"comment_id": "c-1",
							"post_id":    "page-1_77",
							"message":    "replying to ourselves",
						},
					},
				},
			},
		},
	}
}

func rawCommentPayload() map[string]interface{} {
	return map[string]interface{}{
		"object": "page",
		"entry": []interface{}{
			map[string]interface{}{
				"id": "page-1",
				"changes": []interface{}{
					map[string]interface{}{
						"field": "feed",
						"value": map[string]interface{}{
							"item":       "comment",
							"from":       map[string]interface{}{"id": "user-2", "name": "A Customer"},
							"comment_id": "c-2",
							"post_id":    "page-1_77",
							"message":    "is this in stock?",
						},
					},
				},
			},
		},
	}
}

func rawNotificationPayload(token string) map[string]interface{} {
	return map[string]interface{}{
		"object": "page",
		"entry": []interface{}{
			map[string]interface{}{
				"id": "page-1",
				"messaging": []interface{}{
					map[string]interface{}{
						"sender":    map[string]interface{}{"id": "user-3"},
						"recipient": map[string]interface{}{"id": "page-1"},
						"optin": map[string]interface{}{
							"type":                        "notification_messages",
							"notification_messages_token": token,
							"user_token_status":           "REFRESHED",
						},
					},
				},
			},
		},
	}
}

func rawAddressPayload() map[string]interface{} {
	return map[string]interface{}{
		"object": "page",
		"entry": []interface{}{
			map[string]interface{}{
				"id": "page-1",
				"messaging": []interface{}{
					map[string]interface{}{
						"sender":    map[string]interface{}{"id": "user-4"},
						"recipient": map[string]interface{}{"id": "page-1"},
						"timestamp": float64(1700000100),
						"messaging_customer_information": map[string]interface{}{
							"screens": []interface{}{
								map[string]interface{}{
									"responses": []interface{}{
										map[string]interface{}{"key": "street", "value": "1 Main St"},
										map[string]interface{}{"key": "city", "value": "Springfield"},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

func TestProcessSkipsSuppressedPayload(t *testing.T) {
	repo := newFakeRepo()
	fwd := &fakeForwarder{}
	svc := newTestService(repo, fwd, true)

	status := svc.Process(context.Background(), rawSelfCommentPayload(), 1.0)

	assert.Equal(t, StatusSkipped, status)
	assert.Empty(t, repo.logs)
	assert.Empty(t, fwd.calls)
}

func TestProcessPersistsEventAndConfirmation(t *testing.T) {
	repo := newFakeRepo()
	fwd := &fakeForwarder{outcome: forwarder.Outcome{Success: true, Sync: true, StatusCode: 200}}
	svc := newTestService(repo, fwd, true)

	status := svc.Process(context.Background(), rawMessagePayload(), 42.5)

	assert.Equal(t, StatusForwarded, status)
	require.Len(t, repo.logs, 2)

	ev, ok := repo.logs[0].(*event.StructuredEvent)
	require.True(t, ok)
	assert.Equal(t, event.TypeEventIn, ev.Type)
	assert.Equal(t, event.KindMessage, ev.EventType)
	assert.Equal(t, 42.5, ev.TimeID)
	assert.Equal(t, "page-1", ev.PageID)

	confirm, ok := repo.logs[1].(ConfirmationRecord)
	require.True(t, ok)
	assert.Equal(t, event.TypeEventConfirm, confirm.Type)
	assert.Equal(t, "doc-1", confirm.RelatedDocumentID)
	assert.Equal(t, event.KindMessage, confirm.EventType)

	require.Len(t, fwd.calls, 1)
	assert.Equal(t, "doc-1", fwd.calls[0].documentID)
	assert.Equal(t, event.KindMessage, fwd.calls[0].kind)
	assert.Equal(t, "hello", fwd.calls[0].data["text"])
}

func TestProcessAsyncAcceptedStatus(t *testing.T) {
	repo := newFakeRepo()
	fwd := &fakeForwarder{outcome: forwarder.Outcome{Success: true, StatusCode: 202}}
	svc := newTestService(repo, fwd, true)

	assert.Equal(t, StatusAccepted, svc.Process(context.Background(), rawMessagePayload(), 1.0))
}

func TestProcessForwardFailureWritesPendingRetry(t *testing.T) {
	repo := newFakeRepo()
	fwd := &fakeForwarder{outcome: forwarder.Outcome{StatusCode: 500, Err: "backend returned status 500"}}
	svc := newTestService(repo, fwd, true)

	status := svc.Process(context.Background(), rawCommentPayload(), 7.0)

	assert.Equal(t, StatusPendingRetry, status)
	require.Len(t, repo.logs, 3)

	errRecord, ok := repo.logs[2].(ForwardErrorRecord)
	require.True(t, ok)
	assert.Equal(t, event.TypeForwardError, errRecord.Type)
	assert.Equal(t, StatusPendingRetry, errRecord.Status)
	assert.Equal(t, "doc-1", errRecord.DocumentID)
	assert.Equal(t, "backend returned status 500", errRecord.Error)
}

func TestProcessForwardingDisabled(t *testing.T) {
	repo := newFakeRepo()
	fwd := &fakeForwarder{}
	svc := newTestService(repo, fwd, false)

	status := svc.Process(context.Background(), rawMessagePayload(), 1.0)

	assert.Equal(t, StatusForwardingDisabled, status)
	assert.Empty(t, fwd.calls)
	require.Len(t, repo.logs, 3)
	force, ok := repo.logs[2].(ConfirmationRecord)
	require.True(t, ok)
	assert.Equal(t, event.TypeForceConfirm, force.Type)
}

func TestProcessStoreError(t *testing.T) {
	repo := newFakeRepo()
	repo.insertLogErr = errors.New("connection reset")
	fwd := &fakeForwarder{}
	svc := newTestService(repo, fwd, true)

	assert.Equal(t, StatusStoreError, svc.Process(context.Background(), rawMessagePayload(), 1.0))
	assert.Empty(t, fwd.calls)
}

func TestNotificationTokenIdempotency(t *testing.T) {
	repo := newFakeRepo()
	fwd := &fakeForwarder{outcome: forwarder.Outcome{Success: true, Sync: true}}
	svc := newTestService(repo, fwd, true)

	first := svc.Process(context.Background(), rawNotificationPayload("tok-1"), 1.0)
	assert.Equal(t, StatusNotificationSaved, first)
	require.Len(t, repo.notifications, 1)
	record := repo.notifications["tok-1"]
	assert.Equal(t, "user-3", record.SenderID)
	assert.Equal(t, event.TokenStatusAvailable, record.Status)

	second := svc.Process(context.Background(), rawNotificationPayload("tok-1"), 2.0)
	assert.Equal(t, StatusNotificationUpdated, second)
	assert.Len(t, repo.notifications, 1)
	assert.Equal(t, event.TokenStatusAvailable, repo.statusUpdates["tok-1"])

	// Token events stay out of the forwarding path entirely.
	assert.Empty(t, fwd.calls)
}

func TestAddressFormPersistedAndForwarded(t *testing.T) {
	repo := newFakeRepo()
	fwd := &fakeForwarder{outcome: forwarder.Outcome{Success: true, Sync: true}}
	svc := newTestService(repo, fwd, true)

	status := svc.Process(context.Background(), rawAddressPayload(), 3.0)

	assert.Equal(t, StatusForwarded, status)
	require.Len(t, repo.addresses, 1)
	assert.Equal(t, "user-4", repo.addresses[0].SenderID)
	assert.Equal(t, "1 Main St", repo.addresses[0].Address["street"])
	require.Len(t, fwd.calls, 1)
	assert.Equal(t, event.KindAddressForm, fwd.calls[0].kind)
}

func TestProcessRawPageOff(t *testing.T) {
	repo := newFakeRepo()
	fwd := &fakeForwarder{rawOK: true}
	svc := newTestService(repo, fwd, true)

	status := svc.ProcessRaw(context.Background(), rawCommentPayload(), 5.0)

	assert.Equal(t, StatusPageOff, status)
	assert.Empty(t, fwd.rawCalls)
	require.Len(t, repo.logs, 3)
	force, ok := repo.logs[2].(ConfirmationRecord)
	require.True(t, ok)
	assert.Equal(t, event.TypeForceConfirm, force.Type)
}

func TestProcessRawPageOnForwardsWithToken(t *testing.T) {
	repo := newFakeRepo()
	repo.pages["page-1"] = PageRecord{
		PageID:          "page-1",
		Status:          constants.PageStatusOn,
		PageAccessToken: "token-xyz",
	}
	fwd := &fakeForwarder{rawOK: true}
	svc := newTestService(repo, fwd, true)

	status := svc.ProcessRaw(context.Background(), rawCommentPayload(), 5.0)

	assert.Equal(t, StatusForwarded, status)
	require.Len(t, fwd.rawCalls, 1)
	assert.Equal(t, "token-xyz", fwd.rawCalls[0])
}

func TestProcessRawFailureWritesPendingRetry(t *testing.T) {
	repo := newFakeRepo()
	repo.pages["page-1"] = PageRecord{PageID: "page-1", Status: constants.PageStatusOn}
	fwd := &fakeForwarder{rawOK: false}
	svc := newTestService(repo, fwd, true)

	status := svc.ProcessRaw(context.Background(), rawCommentPayload(), 5.0)

	assert.Equal(t, StatusPendingRetry, status)
	require.Len(t, repo.logs, 3)
	errRecord, ok := repo.logs[2].(ForwardErrorRecord)
	require.True(t, ok)
	assert.Equal(t, StatusPendingRetry, errRecord.Status)
}

func TestNotificationLookupErrorReported(t *testing.T) {
	repo := newFakeRepo()
	repo.findTokenErr = errors.New("timeout")
	fwd := &fakeForwarder{}
	svc := newTestService(repo, fwd, true)

	assert.Equal(t, StatusStoreError, svc.Process(context.Background(), rawNotificationPayload("tok-9"), 1.0))
}
