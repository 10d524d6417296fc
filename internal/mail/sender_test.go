package mail

import (
	"context"
	"errors"
	"strings"
	"testing"

	"directory-console/backend/internal/apperr"
)

func TestSendCode_BuildsMessage(t *testing.T) {
	var gotTo, gotSubject, gotBody string
	s := NewSender(Config{From: "noreply@corp.example.com"})
	s.sendF = func(_ context.Context, to, subject, body string) error {
		gotTo, gotSubject, gotBody = to, subject, body
		return nil
	}

	if err := s.SendCode(context.Background(), "alice@example.com", "123456"); err != nil {
		t.Fatal(err)
	}
	if gotTo != "alice@example.com" {
		t.Errorf("to = %q", gotTo)
	}
	if gotSubject == "" {
		t.Error("subject is empty")
	}
	if !strings.Contains(gotBody, "123456") {
		t.Errorf("body %q does not carry the code", gotBody)
	}
}

func TestSendCode_RelayFailureIsGatewayError(t *testing.T) {
	s := NewSender(Config{})
	s.sendF = func(context.Context, string, string, string) error {
		return errors.New("connection refused")
	}
	err := s.SendCode(context.Background(), "alice@example.com", "123456")
	if !apperr.Is(err, apperr.KindGateway) {
		t.Fatalf("want gateway error, got %v", err)
	}
}
