package handler_test

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/pkg/ai"
)

// gradeAndSubmit runs one participant through the attempt and submit flow
// with a scripted score and duration.
func gradeAndSubmit(t *testing.T, a *arenaApp, challengeID, user string, score int, duration time.Duration) {
	t.Helper()

	token := bearerToken(t, user, "participant")
	a.grader.set(ai.Verdict{Score: score, Feedback: "Reviewed.", Status: ai.StatusPass}, nil)

	armAttempt(t, a, token, challengeID, "python")
	a.clock.Advance(duration)
	submitCode(t, a, token, challengeID, "print(1)")
}

func TestLeaderboardHandlerChallengeBoard(t *testing.T) {
	a := setupArenaApp(t)
	challenge := publishChallenge(t, a, "Fibonacci Sprint")

	gradeAndSubmit(t, a, challenge.ID, "alice", 95, 30*time.Second)
	gradeAndSubmit(t, a, challenge.ID, "dave", 80, 20*time.Second)
	gradeAndSubmit(t, a, challenge.ID, "bob", 80, 45*time.Second)
	gradeAndSubmit(t, a, challenge.ID, "carol", 60, 25*time.Second)

	resp := a.request(t, fiber.MethodGet, "/api/v1/challenges/"+challenge.ID+"/leaderboard", bearerToken(t, "viewer", "participant"), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool                    `json:"success"`
		Data    dto.LeaderboardSnapshot `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	require.True(t, payload.Success)

	snapshot := payload.Data
	require.Equal(t, challenge.ID, snapshot.ChallengeID)
	require.Equal(t, challenge.LeaderboardHandle, snapshot.Handle)
	require.Equal(t, 4, snapshot.TotalSubmissions)
	require.Len(t, snapshot.Entries, 4)

	require.Equal(t, "alice", snapshot.Entries[0].UserID)
	require.Equal(t, 1, snapshot.Entries[0].Rank)
	require.Equal(t, "gold", snapshot.Entries[0].Medal)

	// Equal scores rank by duration, fastest first.
	require.Equal(t, "dave", snapshot.Entries[1].UserID)
	require.Equal(t, "silver", snapshot.Entries[1].Medal)
	require.Equal(t, "bob", snapshot.Entries[2].UserID)
	require.Equal(t, "bronze", snapshot.Entries[2].Medal)

	require.Equal(t, "carol", snapshot.Entries[3].UserID)
	require.Equal(t, 4, snapshot.Entries[3].Rank)
	require.Equal(t, "finalist", snapshot.Entries[3].Medal)
}

func TestLeaderboardHandlerEmptyBoard(t *testing.T) {
	a := setupArenaApp(t)
	challenge := publishChallenge(t, a, "Fibonacci Sprint")

	resp := a.request(t, fiber.MethodGet, "/api/v1/challenges/"+challenge.ID+"/leaderboard", bearerToken(t, "viewer", "participant"), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data dto.LeaderboardSnapshot `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	require.Zero(t, payload.Data.TotalSubmissions)
	require.Empty(t, payload.Data.Entries)
}

func TestLeaderboardHandlerGlobalBoard(t *testing.T) {
	a := setupArenaApp(t)
	challenge := publishChallenge(t, a, "Fibonacci Sprint")

	gradeAndSubmit(t, a, challenge.ID, "alice", 95, 30*time.Second)
	gradeAndSubmit(t, a, challenge.ID, "bob", 80, 45*time.Second)
	gradeAndSubmit(t, a, challenge.ID, "carol", 60, 25*time.Second)

	resp := a.request(t, fiber.MethodGet, "/api/v1/leaderboard/global", bearerToken(t, "viewer", "participant"), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool                          `json:"success"`
		Data    dto.GlobalLeaderboardResponse `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	require.True(t, payload.Success)

	entries := payload.Data.Entries
	require.Len(t, entries, 3)
	require.Equal(t, "alice", entries[0].UserID)
	require.Equal(t, 95, entries[0].Score)
	require.Equal(t, "champion", entries[0].Medal)
	require.Equal(t, "bob", entries[1].UserID)
	require.Equal(t, "silver", entries[1].Medal)
	require.Equal(t, "carol", entries[2].UserID)
	require.Equal(t, "bronze", entries[2].Medal)
}

func TestLeaderboardHandlerUnknownChallenge(t *testing.T) {
	a := setupArenaApp(t)

	resp := a.request(t, fiber.MethodGet, "/api/v1/challenges/missing/leaderboard", bearerToken(t, "viewer", "participant"), nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	payload := decodeError(t, resp)
	require.Equal(t, "challenge_not_found", payload.Code)
}

func TestLeaderboardHandlerStreamRequiresUpgrade(t *testing.T) {
	a := setupArenaApp(t)

	resp := a.request(t, fiber.MethodGet, "/api/v1/leaderboard/stream?handle=board-1", bearerToken(t, "viewer", "participant"), nil)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
