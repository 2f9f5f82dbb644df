package ingest

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hookrelay/internal/config"
	"hookrelay/internal/constants"
	"hookrelay/internal/logger"
)

type Repository interface {
	InsertLog(ctx context.Context, doc interface{}) (string, error)
	GetPage(ctx context.Context, pageID string) PageRecord
	UpsertPage(ctx context.Context, page PageRecord) error
	FindNotificationByToken(ctx context.Context, token string) (*NotificationRecord, error)
	InsertNotification(ctx context.Context, record NotificationRecord) error
	UpdateNotificationStatus(ctx context.Context, token, status string) error
	InsertAddress(ctx context.Context, record AddressRecord) error
	EnsureIndexes(ctx context.Context) error
}

type mongoRepository struct {
	logs          *mongo.Collection
	pages         *mongo.Collection
	notifications *mongo.Collection
	addresses     *mongo.Collection
	log           logger.Logger
}

func NewRepository(db *mongo.Database, collections config.CollectionsConfig, log logger.Logger) Repository {
	name := func(configured, fallback string) string {
		if configured != "" {
			return configured
		}
		return fallback
	}
	return &mongoRepository{
		logs:          db.Collection(name(collections.Logs, constants.CollectionWebhookLogs)),
		pages:         db.Collection(name(collections.Pages, constants.CollectionPages)),
		notifications: db.Collection(name(collections.Notifications, constants.CollectionNotifications)),
		addresses:     db.Collection(name(collections.Addresses, constants.CollectionAddresses)),
		log:           log,
	}
}

func (r *mongoRepository) InsertLog(ctx context.Context, doc interface{}) (string, error) {
	result, err := r.logs.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to insert log document: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprintf("%v", result.InsertedID), nil
}

// GetPage never fails: a missing page or a store error degrades to a default
// record with status off, so raw forwarding stays disabled for unknown pages.
func (r *mongoRepository) GetPage(ctx context.Context, pageID string) PageRecord {
	var page PageRecord
	err := r.pages.FindOne(ctx, bson.M{"page_id": pageID}).Decode(&page)
	if err == mongo.ErrNoDocuments {
		return PageRecord{PageID: pageID, Status: constants.PageStatusOff}
	}
	if err != nil {
		r.log.ErrorwCtx(ctx, "page lookup failed, using default record",
			"page_id", pageID,
			"error", err)
		return PageRecord{PageID: pageID, Status: constants.PageStatusOff}
	}
	return page
}

func (r *mongoRepository) UpsertPage(ctx context.Context, page PageRecord) error {
	filter := bson.M{"page_id": page.PageID}
	update := bson.M{"$set": page}
	opts := options.Update().SetUpsert(true)

	if _, err := r.pages.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}
	return nil
}

func (r *mongoRepository) FindNotificationByToken(ctx context.Context, token string) (*NotificationRecord, error) {
	var record NotificationRecord
	err := r.notifications.FindOne(ctx, bson.M{"notification_messages_token": token}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find notification token: %w", err)
	}
	return &record, nil
}

func (r *mongoRepository) InsertNotification(ctx context.Context, record NotificationRecord) error {
	if _, err := r.notifications.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert notification record: %w", err)
	}
	return nil
}

func (r *mongoRepository) UpdateNotificationStatus(ctx context.Context, token, status string) error {
	filter := bson.M{"notification_messages_token": token}
	update := bson.M{"$set": bson.M{"notification_messages_status": status}}

	if _, err := r.notifications.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	return nil
}

func (r *mongoRepository) InsertAddress(ctx context.Context, record AddressRecord) error {
	if _, err := r.addresses.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert address record: %w", err)
	}
	return nil
}

func (r *mongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.logs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "time_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create log index: %w", err)
	}

	_, err = r.pages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "page_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create page index: %w", err)
	}

	// The unique token index backs the read-then-insert dedup in the
	// orchestrator: a racing duplicate insert fails here instead of
	// producing two records.
	_, err = r.notifications.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "notification_messages_token", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create notification index: %w", err)
	}

	return nil
}
