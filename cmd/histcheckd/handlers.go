package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dbhist/histcheck/internal/checkrun"
	"github.com/dbhist/histcheck/internal/config"
	"github.com/dbhist/histcheck/internal/history"
	"github.com/dbhist/histcheck/pkg/logging"
)

// checkRequest is the POST /v1/check and initial GET /v1/check/ws payload:
// the options a CLI caller would otherwise pass as flags, plus the
// history itself instead of a file path.
type checkRequest struct {
	Options config.Options  `json:"options"`
	History history.History `json:"history"`
}

// checkResponse is a flat, API-stable projection of checkrun.Result —
// sccdriver.Report and verdict.Result are this module's internal search
// bookkeeping, not a wire contract, so the handler maps them into the
// shape a caller actually wants to parse.
type checkResponse struct {
	Models      []string `json:"models"`
	Valid       bool     `json:"valid"`
	Unknown     bool     `json:"unknown"`
	DurationMS  int64    `json:"duration_ms"`
	Anomalies   []string `json:"anomalies"`
	Reportable  []string `json:"reportable"`
	LostUpdates int      `json:"lost_updates"`
}

func toCheckResponse(res *checkrun.Result) checkResponse {
	return checkResponse{
		Models:      res.Opts.Models,
		Valid:       res.Verdict.Valid,
		Unknown:     res.Verdict.Unknown,
		DurationMS:  res.Duration.Milliseconds(),
		Anomalies:   res.Verdict.Anomalies,
		Reportable:  res.Verdict.Reportable,
		LostUpdates: len(res.LostUpdates),
	}
}

// validateRequest fills in the HistoryFile placeholder config.Options
// expects (an HTTP caller has no file, only an inline history) and runs
// the same validation a CLI invocation would, so a malformed request
// fails the same way a malformed config file would.
func validateRequest(req *checkRequest) error {
	if req.Options.HistoryFile == "" {
		req.Options.HistoryFile = "(http)"
	}
	if err := req.Options.Validate(); err != nil {
		return err
	}
	return req.History.Validate()
}

// handleCheck runs one check synchronously and returns its result as
// JSON. Configuration errors (bad JSON, a failed config.Options.Validate,
// or a failed history.History.Validate) are reported as 400 Bad Request,
// never a 500 — a malformed request is the caller's fault, not a server
// failure.
func handleCheck(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := validateRequest(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		res, err := checkrun.Run(c.Request.Context(), logger.Slog(), &req.History, req.Options, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, toCheckResponse(res))
	}
}
