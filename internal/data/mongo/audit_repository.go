// Package mongo stores the gateway audit trail in MongoDB.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fsp-loan-gateway/internal/domain/audit"
)

// DefaultAuditCollection is used when no collection name is configured
const DefaultAuditCollection = "gateway_audit_log"

// AuditRepository implements the audit.Repository interface for MongoDB
type AuditRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database, collection string) *AuditRepository {
	if collection == "" {
		collection = DefaultAuditCollection
	}
	return &AuditRepository{
		collection: db.Collection(collection),
		logger:     logger,
	}
}

// EnsureIndexes creates the lookup indexes used by GetByMsgID and GetByTimeRange
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "fsp_code", Value: 1}, {Key: "msg_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "correlation_id", Value: 1}}},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, models); err != nil {
		r.logger.Error("Failed to create audit indexes", "collection", r.collection.Name(), "error", err)
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}

func (r *AuditRepository) Create(ctx context.Context, record *audit.Record) error {
	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		r.logger.Error("Failed to create audit record",
			"correlation_id", record.CorrelationID,
			"msg_id", record.MsgID,
			"error", err)
		return fmt.Errorf("failed to create audit record: %w", err)
	}
	return nil
}

// GetByMsgID returns every audited call carrying the given message ID, oldest first
func (r *AuditRepository) GetByMsgID(ctx context.Context, fspCode, msgID string) ([]*audit.Record, error) {
	filter := bson.M{"fsp_code": fspCode, "msg_id": msgID}
	opts := options.Find().SetSort(bson.M{"created_at": 1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get audit records",
			"fsp_code", fspCode,
			"msg_id", msgID,
			"error", err)
		return nil, fmt.Errorf("failed to get audit records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*audit.Record
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode audit records", "msg_id", msgID, "error", err)
		return nil, fmt.Errorf("failed to decode audit records: %w", err)
	}

	return records, nil
}

// GetByTimeRange retrieves paginated audit records within the window, newest first
func (r *AuditRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*audit.Record, error) {
	filter := bson.M{
		"created_at": bson.M{
			"$gte": startTime,
			"$lte": endTime,
		},
	}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get audit records by time range",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to get audit records by time range: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*audit.Record
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode audit records",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to decode audit records: %w", err)
	}

	return records, nil
}
