package handler

import (
	"civicgo/backend/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTokenRoundTrip verifies an issued token parses back to the same
// actor.
func TestTokenRoundTrip(t *testing.T) {
	// Arrange
	actor := models.Actor{ID: "user-42", Name: "Jane", Role: "officer"}

	// Act
	token, err := generateToken(actor)
	require.NoError(t, err)

	parsed, err := parseActor(token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, actor, parsed)
}

// TestParseActorRejectsGarbage verifies malformed tokens are refused.
func TestParseActorRejectsGarbage(t *testing.T) {
	_, err := parseActor("not.a.token")
	assert.Error(t, err)
}
