package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/arena-go-api/internal/config"
	"github.com/noah-isme/arena-go-api/internal/database"
	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/handler"
	"github.com/noah-isme/arena-go-api/internal/middleware"
	"github.com/noah-isme/arena-go-api/internal/repository"
	"github.com/noah-isme/arena-go-api/internal/router"
	"github.com/noah-isme/arena-go-api/internal/service"
	"github.com/noah-isme/arena-go-api/pkg/ai"
)

const e2eSecret = "arena-e2e-secret"

type e2eClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *e2eClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *e2eClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type e2eGrader struct {
	mu      sync.Mutex
	verdict ai.Verdict
}

func (g *e2eGrader) Grade(context.Context, ai.GradeRequest) (ai.Verdict, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verdict, nil
}

func (g *e2eGrader) set(verdict ai.Verdict) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verdict = verdict
}

type arenaServer struct {
	baseURL  string
	shutdown func()
	clock    *e2eClock
	grader   *e2eGrader
}

func startArenaServer(t *testing.T) *arenaServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:arenae2e?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	challengeRepo := repository.NewChallengeRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	clock := &e2eClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	timers := service.NewTimerRegistryWithClock(clock.Now)

	grader := &e2eGrader{verdict: ai.Verdict{Score: 90, Feedback: "Clean recursion.", Status: ai.StatusPass}}
	grading := service.NewGradingService(grader, time.Second, logger)

	activity := service.NewActivityService(activityRepo, logger)
	board := service.NewLeaderboardService(submissionRepo, challengeRepo, scoreRepo, nil, "", nil, logger)
	challenges := service.NewChallengeService(challengeRepo, board, nil, activity, validate, logger)
	submissions := service.NewSubmissionService(submissionRepo, challengeRepo, timers, grading, board, activity, validate, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Arena E2E", AppEnv: "test", JWTSecret: e2eSecret}, router.Dependencies{
		ChallengeHandler:   handler.NewChallengeHandler(challenges, validate, logger),
		SubmissionHandler:  handler.NewSubmissionHandler(submissions, validate, logger),
		LeaderboardHandler: handler.NewLeaderboardHandler(board, logger),
		ActivityHandler:    handler.NewActivityHandler(activity, logger),
		JWTMiddleware:      middleware.JWTProtected(e2eSecret),
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if serveErr := app.Listener(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", serveErr)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return &arenaServer{
		baseURL:  "http://" + listener.Addr().String(),
		shutdown: shutdown,
		clock:    clock,
		grader:   grader,
	}
}

func signToken(t *testing.T, subject, role string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(e2eSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func postJSON(t *testing.T, client *http.Client, url, token string, payload interface{}) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response, target *T) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target))
}

func TestArenaEndToEndFlow(t *testing.T) {
	server := startArenaServer(t)
	defer server.shutdown()

	client := &http.Client{Timeout: 5 * time.Second}
	lecturer := signToken(t, "lecturer-1", "lecturer")
	alice := signToken(t, "alice", "participant")

	// Step 1: lecturer publishes a challenge.
	resp := postJSON(t, client, server.baseURL+"/api/v1/challenges", lecturer, dto.PublishChallengeRequest{
		Title:       "Fibonacci Sprint",
		Description: "Print the first N Fibonacci numbers without recursion blowup.",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var published struct {
		Success bool                  `json:"success"`
		Data    dto.ChallengeResponse `json:"data"`
	}
	decode(t, resp, &published)
	require.True(t, published.Success)
	require.True(t, published.Data.Active)

	challenge := published.Data

	// Step 2: a viewer subscribes to the live board before anyone submits.
	wsURL := "ws" + strings.TrimPrefix(server.baseURL, "http") + "/api/v1/leaderboard/stream?handle=" + challenge.LeaderboardHandle
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conn, wsResp, err := dialer.Dial(wsURL, http.Header{"Authorization": {signToken(t, "viewer", "participant")}})
	require.NoError(t, err)
	if wsResp != nil {
		_ = wsResp.Body.Close()
	}
	defer conn.Close()

	// Give the hub a moment to register the subscriber.
	time.Sleep(100 * time.Millisecond)

	// Step 3: alice arms an attempt and submits after half a minute.
	resp = postJSON(t, client, server.baseURL+"/api/v1/challenges/"+challenge.ID+"/attempt", alice, dto.AttemptRequest{Language: "python"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	server.clock.Advance(30 * time.Second)

	resp = postJSON(t, client, server.baseURL+"/api/v1/challenges/"+challenge.ID+"/submit", alice, dto.SubmissionRequest{
		Code: "a, b = 0, 1\nfor _ in range(10):\n    print(a)\n    a, b = b, a + b\n",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var graded struct {
		Success bool                         `json:"success"`
		Data    dto.SubmissionResultResponse `json:"data"`
	}
	decode(t, resp, &graded)
	require.True(t, graded.Success)
	require.Equal(t, 90, graded.Data.Score)
	require.InDelta(t, 30.0, graded.Data.DurationSeconds, 0.01)

	// Step 4: the recorded verdict is pushed to the websocket subscriber.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	var pushed dto.LeaderboardSnapshot
	require.NoError(t, conn.ReadJSON(&pushed))
	require.Equal(t, challenge.LeaderboardHandle, pushed.Handle)
	require.Equal(t, 1, pushed.TotalSubmissions)
	require.Len(t, pushed.Entries, 1)
	require.Equal(t, "alice", pushed.Entries[0].UserID)
	require.Equal(t, "gold", pushed.Entries[0].Medal)
	require.Equal(t, 90, pushed.Entries[0].Score)

	// Step 5: the HTTP board read agrees with the push.
	req, err := http.NewRequest(http.MethodGet, server.baseURL+"/api/v1/challenges/"+challenge.ID+"/leaderboard", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", alice)
	boardResp, err := client.Do(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, boardResp.StatusCode)

	var board struct {
		Data dto.LeaderboardSnapshot `json:"data"`
	}
	decode(t, boardResp, &board)
	require.Equal(t, 1, board.Data.TotalSubmissions)
	require.Equal(t, "alice", board.Data.Entries[0].UserID)

	// Step 6: the global board carries alice's cumulative score.
	req, err = http.NewRequest(http.MethodGet, server.baseURL+"/api/v1/leaderboard/global", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", alice)
	globalResp, err := client.Do(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, globalResp.StatusCode)

	var global struct {
		Data dto.GlobalLeaderboardResponse `json:"data"`
	}
	decode(t, globalResp, &global)
	require.Len(t, global.Data.Entries, 1)
	require.Equal(t, "alice", global.Data.Entries[0].UserID)
	require.Equal(t, 90, global.Data.Entries[0].Score)
	require.Equal(t, "champion", global.Data.Entries[0].Medal)
}
