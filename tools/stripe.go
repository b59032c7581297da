package tools

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const stripeAPIBase = "https://api.stripe.com/v1"

// Tolerância padrão entre o timestamp assinado e o relógio local.
const StripeSignatureTolerance = 5 * time.Minute

// StripeClient fala com a API REST do Stripe (form-encoded).
type StripeClient struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

func NewStripeClient() (*StripeClient, error) {
	key := strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY"))
	if key == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY not set")
	}
	base := strings.TrimSpace(os.Getenv("STRIPE_API_BASE"))
	if base == "" {
		base = stripeAPIBase
	}
	return &StripeClient{
		APIKey:  key,
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type CheckoutSessionParams struct {
	CustomerEmail string
	AmountEUR     int // inteiro em euros; convertido para centimes no wire
	ProductName   string
	Description   string
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCheckoutSession cria uma checkout session hospedada (mode=payment).
func (s *StripeClient) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("customer_email", params.CustomerEmail)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", "eur")
	form.Set("line_items[0][price_data][unit_amount]", strconv.Itoa(params.AmountEUR*100))
	form.Set("line_items[0][price_data][product_data][name]", params.ProductName)
	if params.Description != "" {
		form.Set("line_items[0][price_data][product_data][description]", params.Description)
	}
	for k, v := range params.Metadata {
		form.Set("metadata["+k+"]", v)
	}
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("stripe api error: status=%d body=%s", resp.StatusCode, string(body))
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, err
	}
	if session.ID == "" || session.URL == "" {
		return nil, fmt.Errorf("stripe api: incomplete session response")
	}
	return &session, nil
}

// StripeEvent é o envelope mínimo dos eventos de webhook que consumimos.
type StripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object StripeSessionObject `json:"object"`
	} `json:"data"`
}

type StripeSessionObject struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

// VerifyStripeEvent valida o header Stripe-Signature (t=...,v1=...) sobre o
// corpo bruto e decodifica o evento. O payload assinado é "<t>.<body>" com
// HMAC-SHA256; qualquer v1 válido passa. Nada é decodificado antes da
// assinatura conferir.
func VerifyStripeEvent(rawBody []byte, sigHeader string, secret string, tolerance time.Duration) (*StripeEvent, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("empty webhook secret")
	}

	var timestamp int64
	var signatures [][]byte

	for _, part := range strings.Split(sigHeader, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid signature timestamp")
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(kv[1])
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}

	if timestamp == 0 || len(signatures) == 0 {
		return nil, fmt.Errorf("malformed Stripe-Signature header")
	}
	if tolerance > 0 {
		age := time.Since(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return nil, fmt.Errorf("signature timestamp outside tolerance")
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(rawBody)
	expected := mac.Sum(nil)

	valid := false
	for _, sig := range signatures {
		if hmac.Equal(sig, expected) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("signature mismatch")
	}

	var event StripeEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("invalid event json: %w", err)
	}
	return &event, nil
}

// SignStripePayload monta um header Stripe-Signature válido para o corpo dado.
// Usado pelos testes e por ferramentas de replay local.
func SignStripePayload(rawBody []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(ts))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(rawBody)
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}
