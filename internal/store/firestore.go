// Package store persists prediction records to Firestore. The collection is
// append-only: records are added, never updated or deleted.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/belens/belens-api/internal/pipeline"
)

// ErrPersistence marks a transient document-store fault.
var ErrPersistence = errors.New("persistence failed")

// DefaultCollection is the predictions collection name.
const DefaultCollection = "predictions"

// PredictionStore appends and queries prediction documents.
type PredictionStore struct {
	client     *firestore.Client
	collection string
	timeout    time.Duration
}

func NewPredictionStore(client *firestore.Client, collection string, timeout time.Duration) *PredictionStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &PredictionStore{client: client, collection: collection, timeout: timeout}
}

// Save appends one record and returns the store-assigned document ID.
func (s *PredictionStore) Save(ctx context.Context, rec *pipeline.Record) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ref, _, err := s.client.Collection(s.collection).Add(ctx, rec.Fields())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return ref.ID, nil
}

// History returns a principal's records, newest first, each annotated with
// its document ID.
func (s *PredictionStore) History(ctx context.Context, uid string) ([]map[string]any, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	iter := s.client.Collection(s.collection).
		Where("user_id", "==", uid).
		OrderBy("timestamp", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	history := []map[string]any{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		data := doc.Data()
		data["doc_id"] = doc.Ref.ID
		history = append(history, data)
	}
	return history, nil
}
