package mailer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"certhub/config"
)

func TestSend(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" || r.Header.Get("Authorization") != "Bearer sg-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := New(&config.MailConfig{SendGridAPIKey: "sg-key", APIHost: srv.URL, From: "certs@example.com", FromName: "Certs"}, zap.NewNop())
	err := m.Send(context.Background(), Message{
		ToName:    "Asha",
		ToEmail:   "asha@example.com",
		Subject:   "Your certificate",
		PlainText: "attached",
		Attachments: []Attachment{
			{Filename: "CERT-2026-000001.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
		},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got["subject"] != "Your certificate" {
		t.Errorf("unexpected subject in payload: %v", got["subject"])
	}
	atts, _ := got["attachments"].([]interface{})
	if len(atts) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(atts))
	}
}

func TestSend_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad"}]}`))
	}))
	defer srv.Close()

	m := New(&config.MailConfig{SendGridAPIKey: "sg-key", APIHost: srv.URL, From: "certs@example.com"}, zap.NewNop())
	if err := m.Send(context.Background(), Message{ToEmail: "a@example.com", Subject: "s", PlainText: "p"}); err == nil {
		t.Error("expected error on 400")
	}
}

func TestSend_NoAPIKey(t *testing.T) {
	m := New(&config.MailConfig{}, zap.NewNop())
	if err := m.Send(context.Background(), Message{ToEmail: "a@example.com"}); err == nil {
		t.Error("expected error without api key")
	}
}
