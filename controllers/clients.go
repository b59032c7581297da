package controllers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"traveltactik/models"
	"traveltactik/tools"
	"traveltactik/workers"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const quoteExpiry = 7 * 24 * time.Hour

type ClientRow struct {
	User      models.User  `json:"user"`
	LastQuote *models.Lead `json:"last_quote"`
}

// GET /api/admin/clients
//
// Roster de clientes com o último devis de cada um. Antes de listar, faz a
// limpeza lazy dos devis publicados, expirados e não pagos (delete sempre
// condicionado a payment_status <> paid).
func GetClients(c *gin.Context) {
	db := RequireDB(c)
	if db == nil {
		return
	}

	if n, err := workers.CleanupExpiredQuotes(db); err != nil {
		log.Printf("[admin/clients] cleanup error: %v", err)
	} else if n > 0 {
		log.Printf("[admin/clients] cleaned %d expired quotes", n)
	}

	var users []models.User
	if err := db.Order("updated_at desc").Limit(300).Find(&users).Error; err != nil {
		log.Printf("[admin/clients] query error: %v", err)
		RespondError(c, "Server error", http.StatusInternalServerError)
		return
	}

	rows := make([]ClientRow, 0, len(users))
	for _, user := range users {
		user.Password = ""
		row := ClientRow{User: user}

		var lead models.Lead
		err := db.Where("user_id = ?", user.ID).Order("created_at desc").First(&lead).Error
		if err == nil {
			row.LastQuote = &lead
		}
		rows = append(rows, row)
	}

	RespondSuccess(c, gin.H{"ok": true, "rows": rows})
}

type ClientQuoteRequest struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	Destination  string `json:"destination"`
	CallSummary  string `json:"callSummary"`
	QuoteDetails string `json:"quoteDetails"`
	PriceEUR     int    `json:"priceEUR"`
	DurationDays int    `json:"durationDays"`
	Travelers    int    `json:"travelers"`
	BudgetMax    int    `json:"budgetMax"`
	Publish      bool   `json:"publish"`
}

// POST /api/admin/clients
//
// Devis autorado pelo operador depois do appel découverte. Publicar seta
// status published + expiry de 7 dias e avisa o cliente por e-mail; draft
// fica invisível até publicar.
func CreateClientQuote(c *gin.Context) {
	var body ClientQuoteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, "Invalid JSON", http.StatusBadRequest)
		return
	}

	email := models.NormalizeEmail(body.Email)
	if body.UserID == "" || email == "" || strings.TrimSpace(body.Destination) == "" ||
		strings.TrimSpace(body.CallSummary) == "" || strings.TrimSpace(body.QuoteDetails) == "" ||
		body.PriceEUR <= 0 {
		RespondError(c, "Missing required fields", http.StatusBadRequest)
		return
	}
	if _, err := uuid.Parse(body.UserID); err != nil {
		RespondError(c, "Invalid userId", http.StatusBadRequest)
		return
	}

	db := RequireDB(c)
	if db == nil {
		return
	}

	now := time.Now()
	brief := models.TripBrief{
		Destination:   strings.TrimSpace(body.Destination),
		DurationDays:  orDefault(body.DurationDays, 7),
		Travelers:     orDefault(body.Travelers, 2),
		Comfort:       models.COMFORT_COMFORT,
		BudgetMax:     orDefault(body.BudgetMax, body.PriceEUR),
		AvoidLayovers: false,
		QuoteDetails:  strings.TrimSpace(body.QuoteDetails),
		Status:        models.BRIEF_STATUS_DRAFT,
	}
	if body.Publish {
		expires := now.Add(quoteExpiry)
		brief.Status = models.BRIEF_STATUS_PUBLISHED
		brief.PublishedAt = &now
		brief.ExpiresAt = &expires
	}

	userID := body.UserID
	lead := models.Lead{
		ID:            uuid.NewString(),
		UserID:        &userID,
		Email:         email,
		Pack:          models.LEAD_PACK_AUDIT,
		Speed:         models.LEAD_SPEED_STANDARD,
		PriceEUR:      body.PriceEUR,
		Notes:         strings.TrimSpace(body.CallSummary),
		PaymentStatus: models.LEAD_PAYMENT_PENDING,
	}
	lead.ClientCreatedAt = &now
	if err := lead.SetBrief(brief); err != nil {
		RespondError(c, "Server error", http.StatusInternalServerError)
		return
	}

	if err := db.Create(&lead).Error; err != nil {
		log.Printf("[admin/clients] insert error: %v", err)
		RespondError(c, "Server error", http.StatusInternalServerError)
		return
	}

	if body.Publish {
		ctx, cancel := context.WithTimeout(c.Request.Context(), leadEmailTimeout)
		defer cancel()
		if err := tools.SendQuotePublishedEmail(ctx, lead.ID, email, siteURL+"/app/plans"); err != nil {
			log.Printf("[admin/clients] quote email error: %v", err)
		}
	}

	RespondSuccess(c, gin.H{"ok": true, "quoteId": lead.ID})
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
