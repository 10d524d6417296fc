package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"directory-console/backend/internal/apperr"
)

func TestPercentEncode(t *testing.T) {
	cases := map[string]string{
		"abc-_.~":    "abc-_.~",
		"a b":        "a%20b",
		"a*b":        "a%2Ab",
		"a/b=c&d":    "a%2Fb%3Dc%26d",
		`{"code":"1"}`: "%7B%22code%22%3A%221%22%7D",
	}
	for in, want := range cases {
		if got := percentEncode(in); got != want {
			t.Errorf("percentEncode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCanonicalizedQuery_SortedAndEncoded(t *testing.T) {
	got := canonicalizedQuery(map[string]string{
		"B": "2",
		"A": "1 1",
		"C": "x~",
	})
	want := "A=1%201&B=2&C=x~"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSign_KnownVector(t *testing.T) {
	// HMAC-SHA1 over "GET&%2F&<encoded query>" with key "secret&".
	got := sign("testsecret", "A=1&B=2")
	if got == "" {
		t.Fatal("empty signature")
	}
	// Base64 of a SHA1 digest is always 28 characters.
	if len(got) != 28 {
		t.Errorf("signature %q has length %d, want 28", got, len(got))
	}
	// Deterministic for fixed inputs.
	if again := sign("testsecret", "A=1&B=2"); again != got {
		t.Error("signature not deterministic")
	}
	if other := sign("othersecret", "A=1&B=2"); other == got {
		t.Error("signature must depend on the secret")
	}
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		AccessKeyID:     "AKID",
		AccessKeySecret: "AKSECRET",
		SignName:        "Corp",
		TemplateReset:   "SMS_RESET",
		TemplateNotify:  "SMS_NOTIFY",
	})
	c.endpoint = srv.URL + "/"
	c.nowF = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	c.nonceF = func() string { return "fixed-nonce" }
	return c
}

func TestSendCode_SignedRequest(t *testing.T) {
	var gotQuery map[string]string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k, v := range r.URL.Query() {
			gotQuery[k] = v[0]
		}
		w.Write([]byte(`{"Code":"OK","Message":"OK","BizId":"1"}`))
	})

	if err := c.SendCode(context.Background(), "13800000000", "123456"); err != nil {
		t.Fatal(err)
	}
	if gotQuery["Action"] != "SendSms" || gotQuery["PhoneNumbers"] != "13800000000" {
		t.Errorf("query = %v", gotQuery)
	}
	if gotQuery["TemplateCode"] != "SMS_RESET" {
		t.Errorf("TemplateCode = %q", gotQuery["TemplateCode"])
	}
	if !strings.Contains(gotQuery["TemplateParam"], `"code":"123456"`) {
		t.Errorf("TemplateParam = %q", gotQuery["TemplateParam"])
	}
	if gotQuery["Timestamp"] != "2026-09-01T12:00:00Z" {
		t.Errorf("Timestamp = %q", gotQuery["Timestamp"])
	}

	// The signature must be reproducible from the other parameters.
	sig := gotQuery["Signature"]
	delete(gotQuery, "Signature")
	if want := sign("AKSECRET", canonicalizedQuery(gotQuery)); sig != want {
		t.Errorf("Signature = %q, want %q", sig, want)
	}
}

func TestSendExpiryNotice_UsesNotifyTemplate(t *testing.T) {
	var template, param string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		template = r.URL.Query().Get("TemplateCode")
		param = r.URL.Query().Get("TemplateParam")
		w.Write([]byte(`{"Code":"OK"}`))
	})
	if err := c.SendExpiryNotice(context.Background(), "13800000000", "alice", 3); err != nil {
		t.Fatal(err)
	}
	if template != "SMS_NOTIFY" {
		t.Errorf("TemplateCode = %q", template)
	}
	if !strings.Contains(param, `"days":"3"`) || !strings.Contains(param, `"name":"alice"`) {
		t.Errorf("TemplateParam = %q", param)
	}
}

func TestSend_GatewayRejection(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Code":"isv.BUSINESS_LIMIT_CONTROL","Message":"trigger flow control"}`))
	})
	err := c.SendCode(context.Background(), "13800000000", "123456")
	if !apperr.Is(err, apperr.KindGateway) {
		t.Fatalf("want gateway error, got %v", err)
	}
	if !strings.Contains(err.Error(), "trigger flow control") {
		t.Errorf("provider message missing: %v", err)
	}
}

func TestSend_HTTPError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	err := c.SendCode(context.Background(), "13800000000", "123456")
	if !apperr.Is(err, apperr.KindGateway) {
		t.Fatalf("want gateway error, got %v", err)
	}
}
