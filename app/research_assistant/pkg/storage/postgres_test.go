package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DBConfig{Host: "db", Port: 5432, User: "ra", Password: "secret", Name: "research"})
	assert.Equal(t, "host=db port=5432 user=ra password=secret dbname=research sslmode=disable", dsn)
}

func TestNewStorage_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewStorage(ctx, config.DBConfig{Host: "127.0.0.1", Port: 1, User: "u", Name: "n"})
	assert.Error(t, err)
}
