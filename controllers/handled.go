package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"traveltactik/models"
	"traveltactik/tools"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

const deliveredEmailTimeout = 15 * time.Second

// POST /api/admin/leads/:id/handled
//
// Toggle do flag handled (ação de operador). A ida false -> true é guardada:
// exige pagamento paid e documento tarifs ready com URL. A volta true ->
// false é correção, sempre permitida.
//
// O e-mail "documents prêts" dispara no máximo uma vez por lead, controlado
// por delivered_email_sent_at (não pelo handled: un-handle + re-handle não
// reenvia).
func ToggleHandled(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		RespondError(c, "Invalid id", http.StatusBadRequest)
		return
	}

	db := RequireDB(c)
	if db == nil {
		return
	}

	var lead models.Lead
	if err := db.Where("id = ?", id).First(&lead).Error; err != nil {
		RespondError(c, "Lead not found", http.StatusNotFound)
		return
	}

	now := time.Now()

	if lead.Handled {
		// Undo: sem pré-condições.
		err := db.Model(&models.Lead{}).Where("id = ?", id).
			Updates(map[string]any{"handled": false, "handled_at": nil}).Error
		if err != nil {
			log.Printf("[handled] undo error: %v", err)
			RespondError(c, "Server error", http.StatusInternalServerError)
			return
		}
		respondHandledRow(c, db, id)
		return
	}

	// Guarda A: só marca handled depois do pagamento.
	if lead.PaymentStatus != models.LEAD_PAYMENT_PAID {
		RespondError(c, "Lead is not paid yet", http.StatusBadRequest)
		return
	}

	// Guarda B: o documento tarifs precisa estar ready com URL.
	// O carnet é opcional e não trava a entrega.
	var tarifs models.LeadDocument
	err := db.Where("lead_id = ? AND doc_type = ?", id, models.DOC_TYPE_TARIFS).First(&tarifs).Error
	if err != nil || tarifs.Status != models.DOC_STATUS_READY || tarifs.URL == nil || *tarifs.URL == "" {
		RespondError(c, "Document tarifs is not ready", http.StatusBadRequest)
		return
	}

	// CAS no flag: só o vencedor segue para o e-mail.
	res := db.Model(&models.Lead{}).
		Where("id = ? AND handled = ?", id, false).
		Updates(map[string]any{"handled": true, "handled_at": &now})
	if res.Error != nil {
		log.Printf("[handled] update error: %v", res.Error)
		RespondError(c, "Server error", http.StatusInternalServerError)
		return
	}

	if res.RowsAffected > 0 && lead.DeliveredEmailSentAt == nil {
		sendDeliveredOnce(c.Request.Context(), db, lead)
	}

	respondHandledRow(c, db, id)
}

// sendDeliveredOnce envia o e-mail de entrega e grava o latch. O carimbo é um
// update condicional em delivered_email_sent_at IS NULL: um toggle duplicado
// concorrente não consegue gravar duas vezes, e o envio só é tentado por quem
// ganhou o CAS do handled. Falha de envio não grava o latch (retry num
// próximo re-handle).
func sendDeliveredOnce(ctx context.Context, db *gorm.DB, lead models.Lead) {
	sendCtx, cancel := context.WithTimeout(ctx, deliveredEmailTimeout)
	defer cancel()

	if err := tools.SendDeliveredEmail(sendCtx, lead.ID, lead.Email, siteURL+"/app"); err != nil {
		log.Printf("[handled] delivered email error: %v", err)
		return
	}

	now := time.Now()
	res := db.Model(&models.Lead{}).
		Where("id = ? AND delivered_email_sent_at IS NULL", lead.ID).
		Updates(map[string]any{
			"delivered_email_sent_at": &now,
			"delivered_at":            &now,
		})
	if res.Error != nil {
		log.Printf("[handled] delivered latch error: %v", res.Error)
	} else if res.RowsAffected == 0 {
		log.Printf("[handled] delivered latch already set: lead=%s", lead.ID)
	}
}

func respondHandledRow(c *gin.Context, db *gorm.DB, id string) {
	var lead models.Lead
	if err := db.Where("id = ?", id).First(&lead).Error; err != nil {
		RespondError(c, "Server error", http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"ok": true, "row": gin.H{
		"id":         lead.ID,
		"handled":    lead.Handled,
		"handled_at": lead.HandledAt,
	}})
}
