package xxhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasherHashDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	got := h.Hash([]byte("hello world"))
	assert.Equal(t, "45ab6734b21e6968", got)
	assert.Equal(t, got, h.Hash([]byte("hello world")))
	assert.Equal(t, got, h.HashString("hello world"))
}

func TestHasherHashEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ef46db3751d8e999", New().HashString(""))
	assert.NotEqual(t, New().HashString("a"), New().HashString("b"))
}
