package ai

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GradeRequest carries the challenge context and candidate code handed to a
// grader.
type GradeRequest struct {
	Title       string
	Description string
	Language    string
	Code        string
}

// Verdict statuses a grader may assign.
const (
	StatusPass = "Pass"
	StatusFail = "Fail"
)

// Verdict is the grading outcome. Score is always within [0, 100]; any
// upstream payload outside the contract never becomes a Verdict.
type Verdict struct {
	Score         int    `json:"score"`
	Feedback      string `json:"feedback"`
	Status        string `json:"status"`
	IsAISuspected bool   `json:"is_ai_suspected"`
}

// Grader describes an AI model capable of scoring challenge submissions.
// Implementations make exactly one upstream call per Grade invocation and
// never retry; degradation policy lives with the caller.
type Grader interface {
	Grade(ctx context.Context, req GradeRequest) (Verdict, error)
}

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arena",
		Subsystem: "grader",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of grading oracle requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "grader",
		Name:      "evaluation_failures_total",
		Help:      "Number of grading oracle failures",
	}, []string{"model"})
)
