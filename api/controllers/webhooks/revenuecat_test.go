package webhooks

import (
	"bytes"
	"crypto/subtle"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	webhooksvc "github.com/scanmyscale/scanmyscale-backend/internal/webhooks"
)

type fakeVerifier struct {
	secret string
}

func (f *fakeVerifier) VerifyWebhook(_ []byte, signature, secret string) bool {
	if f.secret != secret {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(signature), []byte(secret)) == 1
}

func newRevenueCatGuard(t *testing.T) *webhooksvc.IdempotencyGuard {
	t.Helper()
	guard, err := webhooksvc.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "revenuecat")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return guard
}

func TestRevenueCatWebhookSuccessAndIdempotent(t *testing.T) {
	payload := []byte(`{"api_version":"1.0","event":{"id":"evt_rc_1","type":"RENEWAL","app_user_id":"user-1"}}`)
	processor := &fakeProcessor{result: okResult()}
	sink := &fakeSink{}
	handler := RevenueCatWebhook(processor, &fakeVerifier{secret: "rc_secret"}, sink, newRevenueCatGuard(t), "rc_secret", nil)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/revenuecat", bytes.NewReader(payload))
		req.Header.Set("Authorization", "rc_secret")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d (%s)", i+1, rec.Code, rec.Body.String())
		}
	}
	if processor.calls != 1 || sink.calls != 1 {
		t.Fatalf("duplicate delivery processed: processor=%d sink=%d", processor.calls, sink.calls)
	}
}

func TestRevenueCatWebhookRejectsBadSecret(t *testing.T) {
	payload := []byte(`{"event":{"id":"evt_rc_2","type":"RENEWAL"}}`)
	processor := &fakeProcessor{result: okResult()}
	handler := RevenueCatWebhook(processor, &fakeVerifier{secret: "rc_secret"}, &fakeSink{}, newRevenueCatGuard(t), "rc_secret", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/revenuecat", bytes.NewReader(payload))
	req.Header.Set("Authorization", "wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if processor.calls != 0 {
		t.Fatal("processor should not run with bad credentials")
	}
}

func TestRevenueCatWebhookRejectsMissingEventID(t *testing.T) {
	payload := []byte(`{"event":{"type":"RENEWAL"}}`)
	handler := RevenueCatWebhook(&fakeProcessor{result: okResult()}, &fakeVerifier{secret: "rc_secret"}, &fakeSink{}, newRevenueCatGuard(t), "rc_secret", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/revenuecat", bytes.NewReader(payload))
	req.Header.Set("Authorization", "rc_secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
