package assets

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewPublicID(t *testing.T) {
	a, b := newPublicID(), newPublicID()

	assert.True(t, strings.HasPrefix(a, "image-"))
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(strings.TrimPrefix(a, "image-"))
	assert.NoError(t, err)
}

func TestNewStoreKeepsFolder(t *testing.T) {
	s, err := NewStore("demo", "key", "secret", "shopping")
	assert.NoError(t, err)
	assert.Equal(t, "shopping", s.folder)
	assert.True(t, s.cld.Config.URL.Secure)
}
