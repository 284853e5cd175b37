package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/memo-edu/memo-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "memo",
		Password: "secret",
		Name:     "memo_test",
		SSLMode:  "disable",
	})

	assert.Equal(t, "host=db port=5433 user=memo password=secret dbname=memo_test sslmode=disable", dsn)
}
