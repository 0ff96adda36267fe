package handler_test

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arena-go-api/internal/dto"
)

func TestActivityHandlerListsAuditTrail(t *testing.T) {
	a := setupArenaApp(t)
	challenge := publishChallenge(t, a, "Fibonacci Sprint")

	token := bearerToken(t, "user-1", "participant")
	armAttempt(t, a, token, challenge.ID, "python")
	a.clock.Advance(40 * time.Second)
	submitCode(t, a, token, challenge.ID, "print(1)")

	lecturer := bearerToken(t, "lecturer-1", "lecturer")

	resp := a.request(t, fiber.MethodGet, "/api/v1/activity?page=1&page_size=10", lecturer, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool                     `json:"success"`
		Data    dto.ActivityListResponse `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	require.True(t, payload.Success)
	require.Equal(t, int64(2), payload.Data.Pagination.TotalItems)

	actions := make([]string, 0, len(payload.Data.Items))
	for _, item := range payload.Data.Items {
		actions = append(actions, item.Action)
	}
	require.Contains(t, actions, "challenge.published")
	require.Contains(t, actions, "submission.graded")
}

func TestActivityHandlerFiltersByAction(t *testing.T) {
	a := setupArenaApp(t)
	challenge := publishChallenge(t, a, "Fibonacci Sprint")

	token := bearerToken(t, "user-1", "participant")
	armAttempt(t, a, token, challenge.ID, "python")
	a.clock.Advance(40 * time.Second)
	submitCode(t, a, token, challenge.ID, "print(1)")

	resp := a.request(t, fiber.MethodGet, "/api/v1/activity?action=submission.graded", bearerToken(t, "lecturer-1", "lecturer"), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data dto.ActivityListResponse `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	require.Len(t, payload.Data.Items, 1)

	entry := payload.Data.Items[0]
	require.Equal(t, "user-1", entry.ActorID)
	require.Equal(t, "submission.graded", entry.Action)
	require.Equal(t, "challenge", entry.EntityType)
	require.Equal(t, challenge.ID, entry.EntityID)
}

func TestActivityHandlerFiltersBySince(t *testing.T) {
	a := setupArenaApp(t)
	publishChallenge(t, a, "Fibonacci Sprint")

	lecturer := bearerToken(t, "lecturer-1", "lecturer")

	resp := a.request(t, fiber.MethodGet, "/api/v1/activity?since=2100-01-01T00:00:00Z", lecturer, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data dto.ActivityListResponse `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	require.Empty(t, payload.Data.Items)

	resp = a.request(t, fiber.MethodGet, "/api/v1/activity?since=2000-01-01T00:00:00Z", lecturer, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	decodeResponse(t, resp, &payload)
	require.Len(t, payload.Data.Items, 1)
}

func TestActivityHandlerRejectsMalformedSince(t *testing.T) {
	a := setupArenaApp(t)

	resp := a.request(t, fiber.MethodGet, "/api/v1/activity?since=yesterday", bearerToken(t, "lecturer-1", "lecturer"), nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeError(t, resp)
	require.Equal(t, "validation", body.Code)
}

func TestActivityHandlerForbiddenForParticipant(t *testing.T) {
	a := setupArenaApp(t)

	resp := a.request(t, fiber.MethodGet, "/api/v1/activity", bearerToken(t, "user-1", "participant"), nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
