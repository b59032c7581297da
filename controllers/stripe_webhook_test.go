package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"traveltactik/controllers"
	"traveltactik/models"
	"traveltactik/tools"

	"github.com/gin-gonic/gin"
)

const webhookSecret = "whsec_test_reconcile"

func registerWebhookRoute(r *gin.Engine) {
	r.POST("/api/stripe/webhook", controllers.StripeWebhook)
}

func stripeEventBody(t *testing.T, eventType, sessionID, leadID string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":   "evt_" + sessionID,
		"type": eventType,
		"data": map[string]any{
			"object": map[string]any{
				"id":             sessionID,
				"payment_intent": "pi_" + sessionID,
				"metadata":       map[string]string{"leadId": leadID},
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return body
}

func deliverWebhook(t *testing.T, r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", signature)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookDuplicateDeliveryIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(db, registerWebhookRoute)
	mail := startMailServer(t)
	t.Setenv("STRIPE_WEBHOOK_SECRET", webhookSecret)

	lead := insertLead(t, db, nil)
	body := stripeEventBody(t, "checkout.session.completed", "cs_dup", lead.ID)
	sig := tools.SignStripePayload(body, webhookSecret, time.Now())

	// Primeira entrega: faz a transição.
	if w := deliverWebhook(t, r, body, sig); w.Code != http.StatusOK {
		t.Fatalf("first delivery: status = %d body = %s", w.Code, w.Body.String())
	}

	var after models.Lead
	if err := db.Where("id = ?", lead.ID).First(&after).Error; err != nil {
		t.Fatalf("reload lead: %v", err)
	}
	if after.PaymentStatus != models.LEAD_PAYMENT_PAID {
		t.Fatalf("payment_status = %s, want paid", after.PaymentStatus)
	}
	if after.PaidAt == nil {
		t.Fatal("paid_at not set")
	}
	if after.StripePaymentIntentID == nil || *after.StripePaymentIntentID != "pi_cs_dup" {
		t.Fatalf("payment intent not recorded: %v", after.StripePaymentIntentID)
	}
	firstPaidAt := *after.PaidAt

	// Reentrega at-least-once do mesmo evento: no-op de sucesso.
	if w := deliverWebhook(t, r, body, sig); w.Code != http.StatusOK {
		t.Fatalf("second delivery: status = %d", w.Code)
	}

	if err := db.Where("id = ?", lead.ID).First(&after).Error; err != nil {
		t.Fatalf("reload lead: %v", err)
	}
	if !after.PaidAt.Equal(firstPaidAt) {
		t.Fatalf("paid_at rewritten on duplicate delivery: %v -> %v", firstPaidAt, after.PaidAt)
	}

	// Placeholders: exatamente um tarifs e um carnet, pending.
	var docs []models.LeadDocument
	if err := db.Where("lead_id = ?", lead.ID).Order("doc_type").Find(&docs).Error; err != nil {
		t.Fatalf("load documents: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 document placeholders, got %d", len(docs))
	}
	for _, doc := range docs {
		if doc.Status != models.DOC_STATUS_PENDING {
			t.Errorf("doc %s status = %s, want pending", doc.DocType, doc.Status)
		}
		if doc.URL != nil {
			t.Errorf("doc %s should not have url yet", doc.DocType)
		}
	}
	if docs[0].DocType != models.DOC_TYPE_CARNET || docs[1].DocType != models.DOC_TYPE_TARIFS {
		t.Fatalf("unexpected doc types: %s, %s", docs[0].DocType, docs[1].DocType)
	}

	// E-mails de pagamento (cliente + interno) disparados uma única vez.
	if mail.count() != 2 {
		t.Fatalf("expected 2 payment emails total, got %d: %v", mail.count(), mail.recipients())
	}
}

func TestWebhookAsyncPaymentSucceeded(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(db, registerWebhookRoute)
	startMailServer(t)
	t.Setenv("STRIPE_WEBHOOK_SECRET", webhookSecret)

	lead := insertLead(t, db, func(l *models.Lead) { l.Email = "async@example.com" })
	body := stripeEventBody(t, "checkout.session.async_payment_succeeded", "cs_async", lead.ID)
	sig := tools.SignStripePayload(body, webhookSecret, time.Now())

	if w := deliverWebhook(t, r, body, sig); w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	var after models.Lead
	db.Where("id = ?", lead.ID).First(&after)
	if after.PaymentStatus != models.LEAD_PAYMENT_PAID {
		t.Fatalf("async event should mark paid, got %s", after.PaymentStatus)
	}
}

func TestWebhookInvalidSignature(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(db, registerWebhookRoute)
	t.Setenv("STRIPE_WEBHOOK_SECRET", webhookSecret)

	lead := insertLead(t, db, func(l *models.Lead) { l.Email = "sig@example.com" })
	body := stripeEventBody(t, "checkout.session.completed", "cs_sig", lead.ID)

	// Assinado com outro segredo.
	sig := tools.SignStripePayload(body, "whsec_wrong", time.Now())
	if w := deliverWebhook(t, r, body, sig); w.Code != http.StatusBadRequest {
		t.Fatalf("forged signature: status = %d, want 400", w.Code)
	}

	// Sem header.
	if w := deliverWebhook(t, r, body, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("missing signature: status = %d, want 400", w.Code)
	}

	var after models.Lead
	db.Where("id = ?", lead.ID).First(&after)
	if after.PaymentStatus != models.LEAD_PAYMENT_PENDING {
		t.Fatalf("rejected event must not touch the lead, got %s", after.PaymentStatus)
	}
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(db, registerWebhookRoute)
	t.Setenv("STRIPE_WEBHOOK_SECRET", webhookSecret)

	lead := insertLead(t, db, func(l *models.Lead) { l.Email = "other@example.com" })
	body := stripeEventBody(t, "checkout.session.expired", "cs_exp", lead.ID)
	sig := tools.SignStripePayload(body, webhookSecret, time.Now())

	if w := deliverWebhook(t, r, body, sig); w.Code != http.StatusOK {
		t.Fatalf("unhandled type should still ack: status = %d", w.Code)
	}

	var after models.Lead
	db.Where("id = ?", lead.ID).First(&after)
	if after.PaymentStatus != models.LEAD_PAYMENT_PENDING {
		t.Fatalf("expired event must not mark paid, got %s", after.PaymentStatus)
	}
}

func TestWebhookInvalidLeadMetadata(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(db, registerWebhookRoute)
	t.Setenv("STRIPE_WEBHOOK_SECRET", webhookSecret)

	for _, leadID := range []string{"", "not-a-uuid"} {
		body := stripeEventBody(t, "checkout.session.completed", "cs_bad", leadID)
		sig := tools.SignStripePayload(body, webhookSecret, time.Now())
		// Evento assinado mas sem lead utilizável: descarta com 200 (500 só
		// faria o transporte reentregar lixo para sempre).
		if w := deliverWebhook(t, r, body, sig); w.Code != http.StatusOK {
			t.Fatalf("leadId %q: status = %d, want 200", leadID, w.Code)
		}
	}

	var count int
	db.Model(&models.LeadDocument{}).Count(&count)
	if count != 0 {
		t.Fatalf("invalid metadata created %d documents", count)
	}
}

func TestWebhookUnknownLeadIsAcked(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(db, registerWebhookRoute)
	t.Setenv("STRIPE_WEBHOOK_SECRET", webhookSecret)

	// UUID válido sem linha correspondente: RowsAffected 0, tratado como
	// "já processado" — 200 para parar a reentrega.
	body := stripeEventBody(t, "checkout.session.completed", "cs_ghost", "3b1e1c1a-8a69-4f1c-9f6a-2d9f6f0f1234")
	sig := tools.SignStripePayload(body, webhookSecret, time.Now())
	if w := deliverWebhook(t, r, body, sig); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
