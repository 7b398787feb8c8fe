package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"ChatDesk/server/internal/config"
)

func setupWebhookConfig() {
	cfg = &config.Config{
		BusinessPartyID: "biz:test",
	}
	cfg.Provider.VerifyToken = "shared-secret"
}

func TestVerifyWebhookEchoesChallenge(t *testing.T) {
	setupWebhookConfig()

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=shared-secret&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()

	VerifyWebhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345", rec.Body.String())
}

func TestVerifyWebhookRejectsBadToken(t *testing.T) {
	setupWebhookConfig()

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()

	VerifyWebhook(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), "12345")
}

func TestVerifyWebhookRejectsBadMode(t *testing.T) {
	setupWebhookConfig()

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=unsubscribe&hub.verify_token=shared-secret&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()

	VerifyWebhook(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReceiveWebhookRejectsMalformedBody(t *testing.T) {
	setupWebhookConfig()

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.Body = http.NoBody
	rec := httptest.NewRecorder()

	ReceiveWebhook(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
