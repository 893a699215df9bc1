package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeDB struct{ err error }

func (f *fakeDB) Ping() error { return f.err }

type fakeStore struct{ err error }

func (f *fakeStore) Ping(ctx context.Context) error { return f.err }

func TestCollectHealth_AllConnected(t *testing.T) {
	result := CollectHealth(context.Background(), &fakeDB{}, &fakeStore{})
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, "connected", result.Dependencies["database"].Status)
	assert.Equal(t, "connected", result.Dependencies["storage"].Status)
	assert.NotEmpty(t, result.Runtime.GoVersion)
}

func TestCollectHealth_NilDeps(t *testing.T) {
	result := CollectHealth(context.Background(), nil, nil)
	assert.Equal(t, "degraded", result.Status)
	assert.Equal(t, "disconnected", result.Dependencies["database"].Status)
	assert.Equal(t, "disconnected", result.Dependencies["storage"].Status)
}

func TestCollectHealth_DBError(t *testing.T) {
	result := CollectHealth(context.Background(), &fakeDB{err: errors.New("down")}, &fakeStore{})
	assert.Equal(t, "degraded", result.Status)
	assert.Equal(t, "error", result.Dependencies["database"].Status)
}
