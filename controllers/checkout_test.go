package controllers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"traveltactik/controllers"
	"traveltactik/models"

	"github.com/gin-gonic/gin"
)

func registerCheckoutRoutes(r *gin.Engine) {
	r.POST("/api/checkout", controllers.CreateCheckout)

	auth := r.Group("")
	auth.Use(controllers.AuthRequired())
	auth.POST("/api/checkout/quote", controllers.CreateQuoteCheckout)

	// O fluxo de quote precisa de login.
	r.POST("/api/users", controllers.CreateUser)
	r.POST("/api/login", controllers.Login)
}

// startStripeAPI sobe um fake da API de checkout e captura o form recebido.
func startStripeAPI(t *testing.T) *map[string][]string {
	t.Helper()

	var lastForm map[string][]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		lastForm = r.PostForm
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":  "cs_live_42",
			"url": "https://checkout.stripe.com/pay/cs_live_42",
		})
	}))
	t.Cleanup(ts.Close)

	t.Setenv("STRIPE_SECRET_KEY", "sk_test_checkout")
	t.Setenv("STRIPE_API_BASE", ts.URL)

	return &lastForm
}

func checkoutPayload(email string) map[string]any {
	return map[string]any{
		"email": email,
		"pack":  models.LEAD_PACK_ITINERARY,
		"speed": models.LEAD_SPEED_URGENT,
		"brief": map[string]any{
			"destination":  "Tokyo",
			"durationDays": 10,
			"travelers":    2,
			"comfort":      models.COMFORT_PREMIUM,
			"budgetMax":    6000,
		},
		"createdAt": "2026-08-28T10:00:00Z",
	}
}

func TestCreateCheckoutCreatesLeadAndSession(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(db, registerCheckoutRoutes)
	form := startStripeAPI(t)

	w := doJSON(t, r, http.MethodPost, "/api/checkout", checkoutPayload("buy@example.com"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	if resp["url"] != "https://checkout.stripe.com/pay/cs_live_42" {
		t.Fatalf("missing checkout url: %v", resp)
	}
	leadID, _ := resp["leadId"].(string)
	if leadID == "" {
		t.Fatalf("missing leadId: %v", resp)
	}

	var lead models.Lead
	if err := db.Where("id = ?", leadID).First(&lead).Error; err != nil {
		t.Fatalf("lead not persisted: %v", err)
	}
	if lead.PaymentStatus != models.LEAD_PAYMENT_PENDING {
		t.Fatalf("payment_status = %s, want pending", lead.PaymentStatus)
	}
	if lead.StripeSessionID != "cs_live_42" {
		t.Fatalf("session id not persisted: %q", lead.StripeSessionID)
	}
	// itinerary + urgent = 449 EUR = 44900 centimes no wire.
	if lead.PriceEUR != 449 {
		t.Fatalf("price_eur = %d, want 449", lead.PriceEUR)
	}
	if got := (*form)["line_items[0][price_data][unit_amount]"]; len(got) != 1 || got[0] != "44900" {
		t.Fatalf("unit_amount sent = %v, want 44900", got)
	}
	if got := (*form)["metadata[leadId]"]; len(got) != 1 || got[0] != leadID {
		t.Fatalf("metadata leadId = %v, want %s", got, leadID)
	}
}

func TestCreateCheckoutValidation(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(db, registerCheckoutRoutes)
	startStripeAPI(t)

	payload := checkoutPayload("badpack@example.com")
	payload["pack"] = "deluxe"
	if w := doJSON(t, r, http.MethodPost, "/api/checkout", payload, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid pack: status = %d", w.Code)
	}

	var count int
	db.Model(&models.Lead{}).Count(&count)
	if count != 0 {
		t.Fatalf("invalid checkout persisted %d leads", count)
	}
}

func TestCreateQuoteCheckout(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(db, registerCheckoutRoutes)
	startStripeAPI(t)

	quote := insertLead(t, db, func(l *models.Lead) {
		l.Email = "quote@example.com"
		l.PriceEUR = 520
	})
	token := createAndLogin(t, r, "quote@example.com")

	w := doJSON(t, r, http.MethodPost, "/api/checkout/quote", map[string]any{"leadId": quote.ID}, withBearer(token))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if resp := decodeBody(t, w); resp["url"] == "" {
		t.Fatalf("missing checkout url: %v", resp)
	}

	var after models.Lead
	db.Where("id = ?", quote.ID).First(&after)
	if after.StripeSessionID != "cs_live_42" {
		t.Fatalf("session id not persisted: %q", after.StripeSessionID)
	}
}

func TestCreateQuoteCheckoutGuards(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(db, registerCheckoutRoutes)
	startStripeAPI(t)

	quote := insertLead(t, db, func(l *models.Lead) { l.Email = "guard@example.com" })
	otherToken := createAndLogin(t, r, "someoneelse@example.com")
	ownerToken := createAndLogin(t, r, "guard@example.com")

	// Lead de outro usuário: mesma resposta de inexistente.
	w := doJSON(t, r, http.MethodPost, "/api/checkout/quote", map[string]any{"leadId": quote.ID}, withBearer(otherToken))
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign quote: status = %d, want 404", w.Code)
	}

	// Quote já pago não reabre checkout.
	markPaid(t, db, quote.ID)
	w = doJSON(t, r, http.MethodPost, "/api/checkout/quote", map[string]any{"leadId": quote.ID}, withBearer(ownerToken))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("paid quote: status = %d, want 400", w.Code)
	}

	// Quote sem preço (criado como draft sem valor).
	free := insertLead(t, db, func(l *models.Lead) {
		l.Email = "guard@example.com"
		l.PriceEUR = 0
	})
	w = doJSON(t, r, http.MethodPost, "/api/checkout/quote", map[string]any{"leadId": free.ID}, withBearer(ownerToken))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("priceless quote: status = %d, want 400", w.Code)
	}
}
