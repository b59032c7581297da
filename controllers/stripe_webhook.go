package controllers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"traveltactik/models"
	"traveltactik/tools"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

// POST /api/stripe/webhook
//
// Entrada dos eventos de pagamento (at-least-once). A assinatura é conferida
// sobre o corpo bruto antes de qualquer leitura de estado. Os dois subtipos
// ("completed" síncrono e "async_payment_succeeded") significam a mesma coisa
// — pagamento liquidado — e caem no mesmo handler.
//
// Qualquer falha depois da assinatura vira 500: o transporte reentrega e o
// update condicional curto-circuita o que já foi feito.
func StripeWebhook(c *gin.Context) {
	secret := strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", ""))
	if secret == "" {
		RespondError(c, "STRIPE_WEBHOOK_SECRET not set", http.StatusInternalServerError)
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		RespondError(c, "failed to read body", http.StatusBadRequest)
		return
	}

	event, err := tools.VerifyStripeEvent(raw, c.GetHeader("Stripe-Signature"), secret, tools.StripeSignatureTolerance)
	if err != nil {
		log.Printf("[stripe webhook] signature verification failed: %v", err)
		RespondError(c, "invalid signature", http.StatusBadRequest)
		return
	}

	db := RequireDB(c)
	if db == nil {
		return
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		if err := handleCheckoutPaid(c.Request.Context(), db, event); err != nil {
			log.Printf("[stripe webhook] handler error: %v", err)
			RespondError(c, "Server error", http.StatusInternalServerError)
			return
		}
	default:
		log.Printf("[stripe webhook] ignoring event type %s", event.Type)
	}

	RespondSuccess(c, gin.H{"received": true})
}

// handleCheckoutPaid faz a transição pending -> paid exatamente uma vez.
//
// O update condicional (payment_status <> paid) é a fronteira de atomicidade:
// RowsAffected discrimina "eu fiz a transição" de "alguém já fez". Só o
// vencedor cria os placeholders e dispara os e-mails; os passos seguintes são
// todos idempotentes, então a reentrega após falha parcial é segura.
func handleCheckoutPaid(ctx context.Context, db *gorm.DB, event *tools.StripeEvent) error {
	session := event.Data.Object

	leadID := session.Metadata["leadId"]
	if _, err := uuid.Parse(leadID); err != nil {
		// Evento corrompido ou de outro sistema: descarta sem tocar em nada.
		log.Printf("[stripe webhook] missing/invalid leadId in metadata: %q (session=%s)", leadID, session.ID)
		return nil
	}

	var paymentIntent *string
	if session.PaymentIntent != "" {
		pi := session.PaymentIntent
		paymentIntent = &pi
	}

	now := time.Now()
	res := db.Model(&models.Lead{}).
		Where("id = ? AND payment_status <> ?", leadID, models.LEAD_PAYMENT_PAID).
		Updates(map[string]any{
			"payment_status":           models.LEAD_PAYMENT_PAID,
			"stripe_session_id":        session.ID,
			"stripe_payment_intent_id": paymentIntent,
			"paid_at":                  &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Entrega duplicada de um pagamento já processado: no-op de sucesso.
		log.Printf("[stripe webhook] already processed: lead=%s session=%s event=%s", leadID, session.ID, event.ID)
		return nil
	}

	var lead models.Lead
	if err := db.Where("id = ?", leadID).First(&lead).Error; err != nil {
		return err
	}

	// Brief aceito (devis publicado vira accepted depois do pagamento).
	if brief, err := lead.ParseBrief(); err == nil && strings.TrimSpace(lead.Brief) != "" {
		brief.Status = models.BRIEF_STATUS_ACCEPTED
		if err := lead.SetBrief(brief); err == nil {
			if err := db.Model(&models.Lead{}).Where("id = ?", leadID).
				Update("brief", lead.Brief).Error; err != nil {
				return err
			}
		}
	}

	// Placeholders pending para os entregáveis. Upsert-or-ignore: a retry
	// deste passo não duplica linha (chave única lead_id+doc_type).
	for _, docType := range []string{models.DOC_TYPE_TARIFS, models.DOC_TYPE_CARNET} {
		var doc models.LeadDocument
		err := db.Where(models.LeadDocument{LeadID: leadID, DocType: docType}).
			Attrs(models.LeadDocument{Status: models.DOC_STATUS_PENDING}).
			FirstOrCreate(&doc).Error
		if err != nil {
			return err
		}
	}

	brief, _ := lead.ParseBrief()
	return tools.SendPaymentEmails(ctx, tools.LeadMailData{
		LeadID:      lead.ID,
		Email:       lead.Email,
		Pack:        lead.Pack,
		Speed:       lead.Speed,
		PriceEUR:    lead.PriceEUR,
		Destination: brief.Destination,
		Duration:    brief.DurationDays,
		Travelers:   brief.Travelers,
		Notes:       lead.Notes,
	})
}
