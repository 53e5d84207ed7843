package adapter

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aelexs/marketplace-countdown/internal/countdown"
	"github.com/aelexs/marketplace-countdown/internal/domain"
	"github.com/aelexs/marketplace-countdown/internal/dynamo"
)

// listingDynamoDB is a narrow, consumer-defined interface for the DynamoDB
// operations the listing store needs. *dynamodb.Client satisfies it.
type listingDynamoDB interface {
	GetItem(ctx context.Context, params *dynamo.GetItemInput, optFns ...func(*dynamo.Options)) (*dynamo.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamo.PutItemInput, optFns ...func(*dynamo.Options)) (*dynamo.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamo.DeleteItemInput, optFns ...func(*dynamo.Options)) (*dynamo.DeleteItemOutput, error)
}

// listingItem is the DynamoDB item shape for the listing timers table.
// Timestamps are stored as RFC 3339 strings; reads also accept epoch
// milliseconds written by older producers.
type listingItem struct {
	PK              string `dynamodbav:"pk"`
	Kind            string `dynamodbav:"kind"`
	ListingID       string `dynamodbav:"listing_id"`
	Title           string `dynamodbav:"title,omitempty"`
	EndTime         string `dynamodbav:"end_time,omitempty"`
	CreatedAt       string `dynamodbav:"created_at,omitempty"`
	UpdatedAt       string `dynamodbav:"updated_at,omitempty"`
	PromoDurationMs int64  `dynamodbav:"promo_duration_ms,omitempty"`
}

func listingKey(kind domain.ListingKind, id domain.ListingID) string {
	return string(kind) + "#" + id.String()
}

// DynamoListingStore persists listing timer anchors in DynamoDB.
type DynamoListingStore struct {
	db        listingDynamoDB
	tableName string
}

// NewDynamoListingStore creates a DynamoListingStore backed by db.
func NewDynamoListingStore(db listingDynamoDB, tableName string) *DynamoListingStore {
	return &DynamoListingStore{db: db, tableName: tableName}
}

// Get returns the listing stored under kind/id.
// Returns domain.ErrNotFound when no item exists.
func (s *DynamoListingStore) Get(ctx context.Context, kind domain.ListingKind, id domain.ListingID) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "dynamodb.listings.get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "GetItem"),
	)

	out, err := s.db.GetItem(ctx, &dynamo.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"pk": &dynamo.AttributeValueMemberS{Value: listingKey(kind, id)},
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("listing store: get: %w: %w", domain.ErrUnavailable, err)
	}

	if out.Item == nil {
		return nil, fmt.Errorf("listing store: get %s: %w", listingKey(kind, id), domain.ErrNotFound)
	}

	var item listingItem
	if err := dynamo.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("listing store: unmarshal listing: %w", err)
	}

	return item.toListing(kind, id), nil
}

// Put writes (or replaces) the listing's timer anchors.
func (s *DynamoListingStore) Put(ctx context.Context, l domain.Listing) error {
	ctx, span := tracer.Start(ctx, "dynamodb.listings.put")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "PutItem"),
	)

	av, err := dynamo.MarshalMap(newListingItem(l))
	if err != nil {
		return fmt.Errorf("listing store: marshal listing: %w", err)
	}

	if _, err := s.db.PutItem(ctx, &dynamo.PutItemInput{
		TableName: &s.tableName,
		Item:      av,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("listing store: put: %w: %w", domain.ErrUnavailable, err)
	}

	return nil
}

// Delete removes the listing's timer anchors. Deleting a missing listing is
// not an error.
func (s *DynamoListingStore) Delete(ctx context.Context, kind domain.ListingKind, id domain.ListingID) error {
	ctx, span := tracer.Start(ctx, "dynamodb.listings.delete")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "DeleteItem"),
	)

	if _, err := s.db.DeleteItem(ctx, &dynamo.DeleteItemInput{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"pk": &dynamo.AttributeValueMemberS{Value: listingKey(kind, id)},
		},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("listing store: delete: %w: %w", domain.ErrUnavailable, err)
	}

	return nil
}

func newListingItem(l domain.Listing) listingItem {
	return listingItem{
		PK:              listingKey(l.Kind, l.ID),
		Kind:            string(l.Kind),
		ListingID:       l.ID.String(),
		Title:           l.Title,
		EndTime:         formatTime(l.EndTime),
		CreatedAt:       formatTime(l.CreatedAt),
		UpdatedAt:       formatTime(l.UpdatedAt),
		PromoDurationMs: l.PromoDuration.Milliseconds(),
	}
}

// toListing tolerates malformed timestamps: they read back as zero times,
// which resolve to an expired countdown rather than a failed request.
func (item listingItem) toListing(kind domain.ListingKind, id domain.ListingID) *domain.Listing {
	return &domain.Listing{
		ID:            id,
		Kind:          kind,
		Title:         item.Title,
		EndTime:       countdown.ParseDeadline(item.EndTime).Time(),
		CreatedAt:     countdown.ParseDeadline(item.CreatedAt).Time(),
		UpdatedAt:     countdown.ParseDeadline(item.UpdatedAt).Time(),
		PromoDuration: time.Duration(item.PromoDurationMs) * time.Millisecond,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
