// Package sms delivers one-time codes and notices through the Aliyun SMS
// gateway.
package sms

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"directory-console/backend/internal/apperr"
)

const endpoint = "https://dysmsapi.aliyuncs.com/"

// Config carries the gateway credentials and template identity.
type Config struct {
	AccessKeyID     string
	AccessKeySecret string
	SignName        string
	// TemplateReset carries the one-time code placeholder {code}.
	TemplateReset string
	// TemplateNotify carries the expiry notice placeholders {name} and {days}.
	TemplateNotify string
}

// Client is an Aliyun SMS gateway client.
type Client struct {
	cfg      Config
	endpoint string
	http     *http.Client
	nowF     func() time.Time
	nonceF   func() string
}

// NewClient returns a gateway client.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:      cfg,
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
		nowF:     func() time.Time { return time.Now().UTC() },
		nonceF:   func() string { return uuid.New().String() },
	}
}

// SendCode delivers a one-time code using the reset template.
func (c *Client) SendCode(ctx context.Context, phone, code string) error {
	return c.send(ctx, phone, c.cfg.TemplateReset, map[string]string{"code": code})
}

// SendExpiryNotice delivers a password-expiry notice using the notify template.
func (c *Client) SendExpiryNotice(ctx context.Context, phone, name string, daysLeft int) error {
	return c.send(ctx, phone, c.cfg.TemplateNotify, map[string]string{
		"name": name,
		"days": fmt.Sprintf("%d", daysLeft),
	})
}

type gatewayResponse struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
	BizID   string `json:"BizId"`
}

func (c *Client) send(ctx context.Context, phone, templateCode string, templateParam map[string]string) error {
	paramJSON, err := json.Marshal(templateParam)
	if err != nil {
		return fmt.Errorf("sms: marshal template param: %w", err)
	}
	params := map[string]string{
		"Action":           "SendSms",
		"PhoneNumbers":     phone,
		"SignName":         c.cfg.SignName,
		"TemplateCode":     templateCode,
		"TemplateParam":    string(paramJSON),
		"RegionId":         "cn-hangzhou",
		"Format":           "JSON",
		"Version":          "2017-05-25",
		"AccessKeyId":      c.cfg.AccessKeyID,
		"SignatureMethod":  "HMAC-SHA1",
		"SignatureVersion": "1.0",
		"SignatureNonce":   c.nonceF(),
		"Timestamp":        c.nowF().Format("2006-01-02T15:04:05Z"),
	}

	query := canonicalizedQuery(params)
	signature := sign(c.cfg.AccessKeySecret, query)
	reqURL := c.endpoint + "?" + query + "&Signature=" + percentEncode(signature)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("sms: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindGateway, "sms gateway unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperr.Wrap(apperr.KindGateway, "sms gateway response unreadable", err)
	}
	if resp.StatusCode != http.StatusOK {
		return apperr.New(apperr.KindGateway, fmt.Sprintf("sms gateway returned HTTP %d", resp.StatusCode))
	}
	var gw gatewayResponse
	if err := json.Unmarshal(body, &gw); err != nil {
		return apperr.Wrap(apperr.KindGateway, "sms gateway response malformed", err)
	}
	if gw.Code != "OK" {
		return apperr.New(apperr.KindGateway, fmt.Sprintf("sms gateway rejected send: %s (%s)", gw.Code, gw.Message))
	}
	return nil
}

// percentEncode applies the gateway's signing variant of URL escaping: only
// -_.~ are safe, spaces become %20.
func percentEncode(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	escaped = strings.ReplaceAll(escaped, "*", "%2A")
	escaped = strings.ReplaceAll(escaped, "%7E", "~")
	return escaped
}

// canonicalizedQuery renders the parameters sorted by key, each key and value
// percent-encoded.
func canonicalizedQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(params[k]))
	}
	return strings.Join(pairs, "&")
}

// sign computes the HMAC-SHA1 signature over the canonical GET string with
// the secret suffixed by "&".
func sign(secret, query string) string {
	stringToSign := "GET&%2F&" + percentEncode(query)
	mac := hmac.New(sha1.New, []byte(secret+"&"))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
