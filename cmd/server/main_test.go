package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w2s.io/advisor/internal/config"
	"w2s.io/advisor/internal/store"
)

func TestWriteTimeout(t *testing.T) {
	assert.Equal(t, 75*time.Second, writeTimeout(60*time.Second))
	assert.Equal(t, time.Duration(0), writeTimeout(0))
	assert.Equal(t, time.Duration(0), writeTimeout(-time.Second))
}

func TestOpenStore(t *testing.T) {
	s, err := openStore(&config.Config{StoreDriver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)

	s, err = openStore(&config.Config{StoreDriver: "sqlite", DatabaseURL: ":memory:"})
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &store.SQLiteStore{}, s)
}
