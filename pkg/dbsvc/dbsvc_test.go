package dbsvc

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNullTime(t *testing.T) {
	assert.False(t, nullTime(nil).Valid)

	now := time.Now()
	nt := nullTime(&now)
	assert.True(t, nt.Valid)
	assert.Equal(t, now, nt.Time)
}

func TestNullInt64(t *testing.T) {
	assert.False(t, nullInt64(nil).Valid)

	v := int64(42)
	ni := nullInt64(&v)
	assert.True(t, ni.Valid)
	assert.Equal(t, int64(42), ni.Int64)
}

func TestTimePtr(t *testing.T) {
	assert.Nil(t, timePtr(sql.NullTime{}))

	now := time.Now()
	p := timePtr(sql.NullTime{Time: now, Valid: true})
	if assert.NotNil(t, p) {
		assert.Equal(t, now, *p)
	}
}

func TestInt64Ptr(t *testing.T) {
	assert.Nil(t, int64Ptr(sql.NullInt64{}))

	p := int64Ptr(sql.NullInt64{Int64: 7, Valid: true})
	if assert.NotNil(t, p) {
		assert.Equal(t, int64(7), *p)
	}
}

// Note: the query methods are exercised against a real PostgreSQL instance in
// an integration environment (migrations applied via dbinit). The scan and
// scheduling logic is tested against the in-memory catalog in pkg/testutil,
// which mirrors the transition guards implemented here.
