package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/dbhist/histcheck/internal/config"
	"github.com/dbhist/histcheck/internal/history"
	"github.com/dbhist/histcheck/pkg/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError, Quiet: true})
}

func cyclicHistoryBody() history.History {
	return history.History{Txns: []history.Txn{
		{ID: 1, Outcome: history.OutcomeOK, Value: []history.Mop{
			{Op: history.OpRead, Key: "x", Value: 99},
		}},
		{ID: 2, Outcome: history.OutcomeOK, Value: []history.Mop{
			{Op: history.OpWrite, Key: "x", Value: 99},
		}},
	}}
}

func TestHandleHealthzReturnsOK(t *testing.T) {
	router := gin.New()
	router.GET("/healthz", handleHealthz)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleCheckReturnsVerdictForValidRequest(t *testing.T) {
	router := gin.New()
	router.POST("/v1/check", handleCheck(testLogger()))

	body := checkRequest{
		Options: config.Options{Models: []string{"strong-serializable"}},
		History: cyclicHistoryBody(),
	}
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/v1/check", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp checkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Valid)
	require.NotEmpty(t, resp.Anomalies)
}

func TestHandleCheckRejectsUnknownModelWith400(t *testing.T) {
	router := gin.New()
	router.POST("/v1/check", handleCheck(testLogger()))

	body := checkRequest{
		Options: config.Options{Models: []string{"not-a-real-model"}},
		History: cyclicHistoryBody(),
	}
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/v1/check", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCheckRejectsMalformedJSONWith400(t *testing.T) {
	router := gin.New()
	router.POST("/v1/check", handleCheck(testLogger()))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/v1/check", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCheckRejectsInvalidHistoryWith400(t *testing.T) {
	router := gin.New()
	router.POST("/v1/check", handleCheck(testLogger()))

	body := checkRequest{
		Options: config.Options{Models: []string{"serializable"}},
		History: history.History{Txns: []history.Txn{
			{ID: 1, Outcome: history.OutcomeOK, Value: []history.Mop{
				{Op: history.OpWrite, Key: "x", Value: 1},
				{Op: history.OpWrite, Key: 2, Value: 1}, // mixed key types
			}},
		}},
	}
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/v1/check", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
