package mcp

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/licycle/sessionwatch/internal/domain/session"
)

func TestMapError(t *testing.T) {
	require.NoError(t, MapError(nil))

	err := MapError(fmt.Errorf("loading session: %w", session.ErrSessionNotFound))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "SESSION_NOT_FOUND", apiErr.Code)
	require.NotEmpty(t, apiErr.RecoveryHint)

	err = MapError(session.ErrInvalidInput)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "INVALID_INPUT", apiErr.Code)

	unknown := errors.New("db locked")
	require.Equal(t, unknown, MapError(unknown))
}

func TestParseTimeParam(t *testing.T) {
	got, err := parseTimeParam("")
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = parseTimeParam("2026-03-01T14:30:00Z")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 2026, got.Year())

	_, err = parseTimeParam("yesterday")
	require.Error(t, err)
}
