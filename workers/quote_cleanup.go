package workers

import (
	"log"
	"time"

	"traveltactik/models"

	"github.com/jinzhu/gorm"
)

// StartQuoteCleanup starts a loop that prunes expired published quotes.
func StartQuoteCleanup(db *gorm.DB) {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if n, err := CleanupExpiredQuotes(db); err != nil {
				log.Printf("quote cleanup worker: %v", err)
			} else if n > 0 {
				log.Printf("quote cleanup worker: removed %d expired quotes", n)
			}
		}
	}()
}

// CleanupExpiredQuotes apaga devis publicados, expirados e ainda não pagos.
// Política de retenção soft: é a ÚNICA rota de delete físico de lead, e o
// delete é condicionado a payment_status <> paid — um pagamento que chega
// entre o select e o delete vence a corrida e o lead fica.
func CleanupExpiredQuotes(db *gorm.DB) (int, error) {
	var candidates []models.Lead
	err := db.
		Where("payment_status <> ?", models.LEAD_PAYMENT_PAID).
		Where("brief LIKE ?", "%\"status\":\"published\"%").
		Find(&candidates).Error
	if err != nil {
		return 0, err
	}

	now := time.Now()
	removed := 0

	for _, lead := range candidates {
		brief, err := lead.ParseBrief()
		if err != nil {
			continue
		}
		if brief.Status != models.BRIEF_STATUS_PUBLISHED || brief.ExpiresAt == nil {
			continue
		}
		if brief.ExpiresAt.After(now) {
			continue
		}

		res := db.Where("id = ? AND payment_status <> ?", lead.ID, models.LEAD_PAYMENT_PAID).
			Delete(&models.Lead{})
		if res.Error != nil {
			return removed, res.Error
		}
		removed += int(res.RowsAffected)
	}

	return removed, nil
}
