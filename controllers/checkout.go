package controllers

import (
	"fmt"
	"log"
	"net/http"
	"net/url"

	"traveltactik/models"
	"traveltactik/tools"

	"github.com/gin-gonic/gin"
)

// siteURL é setado pelo router na inicialização (config.SiteURL).
var siteURL = "https://travel-tactik.com"

func SetSiteURL(u string) {
	if u != "" {
		siteURL = u
	}
}

func successURL() string {
	return siteURL + "/paiement/succes?session_id={CHECKOUT_SESSION_ID}"
}

func cancelURL(leadID string) string {
	return siteURL + "/paiement/annule?lead_id=" + url.QueryEscape(leadID)
}

// POST /api/checkout
//
// Fluxo público de compra: cria o lead (payment pending) e a checkout session
// num passo só. O preço cobrado é sempre o da tabela servidor.
func CreateCheckout(c *gin.Context) {
	var body LeadPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, "Invalid JSON", http.StatusBadRequest)
		return
	}

	email := models.NormalizeEmail(body.Email)
	if !tools.ValidateEmail(email) {
		RespondError(c, "Invalid email", http.StatusBadRequest)
		return
	}
	if !models.IsPack(body.Pack) {
		RespondError(c, "Invalid pack", http.StatusBadRequest)
		return
	}
	if !models.IsSpeed(body.Speed) {
		RespondError(c, "Invalid speed", http.StatusBadRequest)
		return
	}
	if body.SelectedPlan != "" && !models.IsComfort(body.SelectedPlan) {
		RespondError(c, "Invalid plan", http.StatusBadRequest)
		return
	}
	if missing := body.Brief.MissingFields(); missing != "" {
		RespondError(c, "Invalid brief: "+missing, http.StatusBadRequest)
		return
	}

	db := RequireDB(c)
	if db == nil {
		return
	}

	lead, err := buildLead(body, email, c.Request.UserAgent())
	if err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if lead.PriceEUR <= 0 {
		RespondError(c, "Invalid price", http.StatusBadRequest)
		return
	}

	if err := db.Create(&lead).Error; err != nil {
		log.Printf("[checkout] insert error: %v", err)
		RespondError(c, "Server error", http.StatusInternalServerError)
		return
	}

	stripe, err := tools.NewStripeClient()
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	brief, _ := lead.ParseBrief()
	session, err := stripe.CreateCheckoutSession(c.Request.Context(), tools.CheckoutSessionParams{
		CustomerEmail: email,
		AmountEUR:     lead.PriceEUR,
		ProductName:   fmt.Sprintf("TravelTactik — %s (%s)", lead.Pack, lead.Speed),
		Description: fmt.Sprintf("Destination: %s — Durée: %dj — Voyageurs: %d",
			destinationOrFlexible(brief.Destination), brief.DurationDays, brief.Travelers),
		Metadata: map[string]string{
			"leadId": lead.ID,
			"pack":   lead.Pack,
			"speed":  lead.Speed,
		},
		SuccessURL: successURL(),
		CancelURL:  cancelURL(lead.ID),
	})
	if err != nil {
		log.Printf("[checkout] stripe error: %v", err)
		RespondError(c, "Server error", http.StatusInternalServerError)
		return
	}

	if err := db.Model(&models.Lead{}).Where("id = ?", lead.ID).
		Update("stripe_session_id", session.ID).Error; err != nil {
		log.Printf("[checkout] session id persist error: %v", err)
	}

	RespondSuccess(c, gin.H{"ok": true, "url": session.URL, "leadId": lead.ID})
}

type QuoteCheckoutRequest struct {
	LeadID string `json:"leadId"`
}

// POST /api/checkout/quote (autenticado)
//
// Checkout de um devis existente. Pré-condições: o lead pertence ao e-mail
// logado, tem preço não-zero e ainda não foi pago — re-iniciar checkout de um
// lead pago é erro explícito, não retry idempotente.
func CreateQuoteCheckout(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req QuoteCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.LeadID == "" {
		RespondError(c, "leadId missing", http.StatusBadRequest)
		return
	}

	db := RequireDB(c)
	if db == nil {
		return
	}

	email := models.NormalizeEmail(user.Email)

	var lead models.Lead
	if err := db.Where("id = ? AND email = ?", req.LeadID, email).First(&lead).Error; err != nil {
		RespondError(c, "Quote not found", http.StatusNotFound)
		return
	}
	if lead.PaymentStatus == models.LEAD_PAYMENT_PAID {
		RespondError(c, "Quote already paid", http.StatusBadRequest)
		return
	}
	if lead.PriceEUR <= 0 {
		RespondError(c, "Quote missing price", http.StatusBadRequest)
		return
	}

	stripe, err := tools.NewStripeClient()
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	brief, _ := lead.ParseBrief()
	session, err := stripe.CreateCheckoutSession(c.Request.Context(), tools.CheckoutSessionParams{
		CustomerEmail: email,
		AmountEUR:     lead.PriceEUR,
		ProductName:   "TravelTactik — Devis personnalisé",
		Description:   destinationOrFlexible(brief.Destination),
		Metadata: map[string]string{
			"leadId": lead.ID,
			"pack":   lead.Pack,
			"speed":  lead.Speed,
		},
		SuccessURL: successURL(),
		CancelURL:  cancelURL(lead.ID),
	})
	if err != nil {
		log.Printf("[checkout/quote] stripe error: %v", err)
		RespondError(c, "Server error", http.StatusInternalServerError)
		return
	}

	if err := db.Model(&models.Lead{}).Where("id = ?", lead.ID).
		Update("stripe_session_id", session.ID).Error; err != nil {
		log.Printf("[checkout/quote] session id persist error: %v", err)
	}

	RespondSuccess(c, gin.H{"ok": true, "url": session.URL})
}

func destinationOrFlexible(dest string) string {
	if dest == "" {
		return "Flexible"
	}
	return dest
}
