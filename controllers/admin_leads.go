package controllers

import (
	"log"
	"net/http"
	"strconv"

	"traveltactik/models"

	"github.com/gin-gonic/gin"
)

// GET /api/admin/leads?status=&handled=&limit=
//
// Listagem do painel do operador, filtros opcionais por payment_status e
// handled, limit entre 1 e 200 (default 50).
func GetLeads(c *gin.Context) {
	db := RequireDB(c)
	if db == nil {
		return
	}

	query := db.Model(&models.Lead{})

	if status := c.Query("status"); status != "" {
		if status != models.LEAD_PAYMENT_PENDING && status != models.LEAD_PAYMENT_PAID {
			RespondError(c, "Invalid status filter", http.StatusBadRequest)
			return
		}
		query = query.Where("payment_status = ?", status)
	}

	if handled := c.Query("handled"); handled != "" {
		switch handled {
		case "true":
			query = query.Where("handled = ?", true)
		case "false":
			query = query.Where("handled = ?", false)
		default:
			RespondError(c, "Invalid handled filter", http.StatusBadRequest)
			return
		}
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}

	var leads []models.Lead
	if err := query.Order("created_at desc").Limit(limit).Find(&leads).Error; err != nil {
		log.Printf("[admin/leads] query error: %v", err)
		RespondError(c, "Server error", http.StatusInternalServerError)
		return
	}

	RespondSuccess(c, gin.H{"ok": true, "rows": leads})
}
