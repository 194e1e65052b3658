package firestorestore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultCollection holds one document per cache key.
const DefaultCollection = "stockreport_cache"

type document struct {
	Value     []byte    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// Store keeps cache entries in a single Firestore collection.
type Store struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

func New(client *firestore.Client, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{client: client, collection: collection, now: time.Now}
}

// Open dials Firestore for project and wraps the client. The caller closes
// the returned client.
func Open(ctx context.Context, project, collection string) (*Store, *firestore.Client, error) {
	client, err := firestore.NewClient(ctx, project)
	if err != nil {
		return nil, nil, fmt.Errorf("firestore client: %w", err)
	}
	return New(client, collection), client, nil
}

// docID escapes keys so a "/" in a ticker can't form a sub-path.
func docID(key string) string {
	return url.PathEscape(key)
}

func (s *Store) doc(key string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(docID(key))
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	snap, err := s.doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("firestore get %s: %w", key, err)
	}
	var d document
	if err := snap.DataTo(&d); err != nil {
		return nil, false, fmt.Errorf("firestore decode %s: %w", key, err)
	}
	return d.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.doc(key).Set(ctx, document{Value: value, UpdatedAt: s.now().UTC()}); err != nil {
		return fmt.Errorf("firestore set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	it := s.client.Collection(s.collection).Documents(ctx)
	defer it.Stop()

	bw := s.client.BulkWriter(ctx)
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			bw.End()
			return fmt.Errorf("firestore list: %w", err)
		}
		if _, err := bw.Delete(snap.Ref); err != nil {
			bw.End()
			return fmt.Errorf("firestore delete %s: %w", snap.Ref.ID, err)
		}
	}
	bw.End()
	return nil
}
