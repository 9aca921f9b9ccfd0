package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPostgresDBRejectsEmptyDSN(t *testing.T) {
	_, err := NewPostgresDB(context.Background(), "  ", PoolOptions{})
	assert.EqualError(t, err, "db: empty DSN")
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, 25, orDefault(0, 25))
	assert.Equal(t, 25, orDefault(-1, 25))
	assert.Equal(t, 7, orDefault(7, 25))
}
