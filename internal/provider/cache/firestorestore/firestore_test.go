package firestorestore

import (
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "av_RY.TRT", docID("av_RY.TRT"))
	assert.Equal(t, "av_BRK%2FB", docID("av_BRK/B"))
}

// newEmulatorStore connects to the Firestore emulator; the test is skipped
// when FIRESTORE_EMULATOR_HOST is not set.
func newEmulatorStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(testContext(t), "stockreport-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	collection := fmt.Sprintf("cache_%d", time.Now().UnixNano())
	return New(client, collection)
}

func TestStore_Emulator(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := testContext(t)

	_, ok, err := s.Get(ctx, "av_IBM")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "av_IBM", []byte(`{"symbol":"IBM"}`)))
	require.NoError(t, s.Set(ctx, "av_BRK/B", []byte(`{}`)))

	b, ok, err := s.Get(ctx, "av_IBM")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"symbol":"IBM"}`, string(b))

	require.NoError(t, s.Clear(ctx))
	_, ok, err = s.Get(ctx, "av_BRK/B")
	require.NoError(t, err)
	assert.False(t, ok)
}
