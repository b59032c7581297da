package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"traveltactik/models"
	"traveltactik/tools"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

/************************************************
/**** MARK: ANTI-ABUSE ****/
/************************************************/

const rlWindow = 10 * time.Minute
const rlMaxPerIP = 12
const rlMaxPerEmail = 6 // cota mais apertada: e-mail identifica pessoa, IP pode ser compartilhado

const minFormDwell = 1200 * time.Millisecond
const maxFormAge = 2 * time.Hour

const dedupWindow = 5 * time.Minute
const maxNotesLen = 5000

const leadEmailTimeout = 15 * time.Second

// Buckets em memória, por processo. Com múltiplas instâncias cada uma aplica
// a própria cota (best effort assumido — ver tools.Limiter).
var ipLimiter tools.Limiter = tools.NewRateLimiter(rlMaxPerIP, rlWindow)
var emailLimiter tools.Limiter = tools.NewRateLimiter(rlMaxPerEmail, rlWindow)

type LeadPayload struct {
	Email        string           `json:"email"`
	Notes        string           `json:"notes"`
	Pack         string           `json:"pack"`
	Speed        string           `json:"speed"`
	PriceEUR     int              `json:"priceEUR"`
	Brief        models.TripBrief `json:"brief"`
	SelectedPlan string           `json:"selectedPlan"`
	CreatedAt    string           `json:"createdAt"`

	// anti-abus
	HP   string `json:"hp"` // honeypot (deve ficar vazio)
	TS   int64  `json:"ts"` // epoch ms da abertura do form
	Page string `json:"page"`
}

// validateHumanTiming rejeita submissões rápidas demais (bot) ou velhas
// demais (replay de estado antigo do cliente).
func validateHumanTiming(ts int64) error {
	if ts <= 0 {
		return fmt.Errorf("Missing form timestamp")
	}
	age := time.Since(time.UnixMilli(ts))
	if age < minFormDwell {
		return fmt.Errorf("Too fast")
	}
	if age > maxFormAge {
		return fmt.Errorf("Expired form")
	}
	return nil
}

// POST /api/lead
//
// Intake de lead. Honeypot preenchido => resposta neutra de sucesso sem
// persistir nada (não sinalizar detecção pro bot). Dedup em 5 minutos por
// (email, pack, destination) devolve o id existente com deduped=true.
func SubmitLead(c *gin.Context) {
	var body LeadPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// Honeypot: resposta neutra, nenhum registro, nenhum e-mail.
	if strings.TrimSpace(body.HP) != "" {
		RespondSuccess(c, gin.H{"ok": true})
		return
	}

	if err := validateHumanTiming(body.TS); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	ip := c.ClientIP()
	email := models.NormalizeEmail(body.Email)

	if !ipLimiter.Allow(ip) {
		RespondError(c, "Too many requests (ip)", http.StatusTooManyRequests)
		return
	}
	if email != "" && !emailLimiter.Allow(email) {
		RespondError(c, "Too many requests (email)", http.StatusTooManyRequests)
		return
	}

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
	if len(body.Notes) > maxNotesLen {
		RespondError(c, "Notes too long", http.StatusBadRequest)
		return
	}

	db := RequireDB(c)
	if db == nil {
		return
	}

	log.Printf("[lead] received: ip=%s email=%s pack=%s speed=%s destination=%q page=%s",
		ip, email, body.Pack, body.Speed, body.Brief.Destination, body.Page)

	// Déduplication curta (double-submit / refresh): mesmo email + pack +
	// destination nos últimos 5 minutos reusa o lead existente.
	dest := strings.TrimSpace(body.Brief.Destination)
	since := time.Now().Add(-dedupWindow)

	var existing models.Lead
	err := db.
		Where("email = ? AND pack = ? AND destination = ?", email, body.Pack, dest).
		Where("client_created_at > ?", since).
		Order("client_created_at desc").
		First(&existing).Error
	if err == nil && existing.ID != "" {
		log.Printf("[lead] deduped: %s", existing.ID)
		RespondSuccess(c, gin.H{"ok": true, "leadId": existing.ID, "deduped": true})
		return
	}

	lead, err := buildLead(body, email, c.Request.UserAgent())
	if err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	if err := db.Create(&lead).Error; err != nil {
		log.Printf("[lead] insert error: %v", err)
		RespondError(c, "Server error", http.StatusInternalServerError)
		return
	}

	log.Printf("[lead] inserted: %s", lead.ID)

	// E-mails só no fluxo de contato (appel découverte). Timeout fixo: um
	// mailer lento não pode segurar a resposta; o lead já existe de qualquer
	// forma, então falha de e-mail vira campo na resposta, não erro HTTP.
	var emailErr error
	if body.Page == "/appel-decouverte" {
		ctx, cancel := context.WithTimeout(c.Request.Context(), leadEmailTimeout)
		defer cancel()

		emailErr = tools.SendLeadEmails(ctx, tools.LeadMailData{
			LeadID:      lead.ID,
			Email:       email,
			Pack:        lead.Pack,
			Speed:       lead.Speed,
			PriceEUR:    lead.PriceEUR,
			Destination: dest,
			Duration:    body.Brief.DurationDays,
			Travelers:   body.Brief.Travelers,
			Notes:       lead.Notes,
		})
		if emailErr != nil {
			log.Printf("[lead] sendLeadEmails error: %v", emailErr)
		}
	}

	resp := gin.H{"ok": true, "leadId": lead.ID}
	if emailErr != nil {
		resp["emailError"] = emailErr.Error()
	}
	RespondSuccess(c, resp)
}

// buildLead monta o registro pending/pending a partir do payload validado.
// O preço é sempre o da tabela servidor; divergência do cliente só gera log.
func buildLead(body LeadPayload, email string, userAgent string) (models.Lead, error) {
	price := models.PriceEURFor(body.Pack, body.Speed)
	if body.PriceEUR != 0 && body.PriceEUR != price {
		log.Printf("[lead] client price mismatch: sent=%d computed=%d (server wins)", body.PriceEUR, price)
	}

	clientCreatedAt, err := time.Parse(time.RFC3339, body.CreatedAt)
	if err != nil {
		return models.Lead{}, fmt.Errorf("Invalid createdAt")
	}

	lead := models.Lead{
		ID:            uuid.NewString(),
		Email:         email,
		Pack:          body.Pack,
		Speed:         body.Speed,
		PriceEUR:      price,
		SelectedPlan:  body.SelectedPlan,
		Notes:         body.Notes,
		PaymentStatus: models.LEAD_PAYMENT_PENDING,
		UserAgent:     userAgent,
	}
	lead.ClientCreatedAt = &clientCreatedAt
	if err := lead.SetBrief(body.Brief); err != nil {
		return models.Lead{}, err
	}
	return lead, nil
}
