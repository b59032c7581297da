package controllers

import (
	"log"
	"net/http"
	"strings"

	"traveltactik/models"
	"traveltactik/tools"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UpsertDocumentRequest struct {
	DocType string `json:"docType"`
	Status  string `json:"status"`
	URL     string `json:"url"`
}

// POST /api/admin/leads/:id/documents
//
// Upsert do status de um entregável. Chave (lead_id, doc_type): segunda
// chamada para o mesmo par substitui status/url, nunca duplica linha.
// Regras: ready exige URL https não-vazia; pending força url = null (não
// deixa URL ready antiga vazando sob status pending).
func UpsertLeadDocument(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		RespondError(c, "Invalid id", http.StatusBadRequest)
		return
	}

	var body UpsertDocumentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if !models.IsDocType(body.DocType) {
		RespondError(c, "Invalid docType", http.StatusBadRequest)
		return
	}
	if !models.IsDocStatus(body.Status) {
		RespondError(c, "Invalid status", http.StatusBadRequest)
		return
	}

	var nextURL *string
	if body.Status == models.DOC_STATUS_READY {
		trimmed := strings.TrimSpace(body.URL)
		if !tools.ValidateDocumentURL(trimmed) {
			RespondError(c, "Missing or invalid url for ready document", http.StatusBadRequest)
			return
		}
		nextURL = &trimmed
	}

	db := RequireDB(c)
	if db == nil {
		return
	}

	// Lead precisa existir: evita linha órfã de documento para id forjado.
	var lead models.Lead
	if err := db.Select("id").Where("id = ?", id).First(&lead).Error; err != nil {
		RespondError(c, "Lead not found", http.StatusNotFound)
		return
	}

	var doc models.LeadDocument
	err := db.Where(models.LeadDocument{LeadID: id, DocType: body.DocType}).
		Assign(map[string]any{"status": body.Status, "url": nextURL}).
		FirstOrCreate(&doc).Error
	if err != nil {
		log.Printf("[documents] upsert error: %v", err)
		RespondError(c, "Server error", http.StatusInternalServerError)
		return
	}

	// Relê o registro pra devolver o estado final persistido.
	if err := db.Where("lead_id = ? AND doc_type = ?", id, body.DocType).First(&doc).Error; err != nil {
		RespondError(c, "Server error", http.StatusInternalServerError)
		return
	}

	RespondSuccess(c, gin.H{"ok": true, "row": doc})
}

// GET /api/app/documents/:leadId/:docType (autenticado)
//
// Download do cliente: ownership pelo e-mail da sessão, documento ready com
// URL, redirect 302 para o blob.
func DownloadDocument(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}

	leadID := c.Param("leadId")
	docType := c.Param("docType")

	if _, err := uuid.Parse(leadID); err != nil {
		RespondError(c, "Invalid leadId", http.StatusBadRequest)
		return
	}
	if !models.IsDocType(docType) {
		RespondError(c, "Invalid docType", http.StatusBadRequest)
		return
	}

	db := RequireDB(c)
	if db == nil {
		return
	}

	var lead models.Lead
	if err := db.Where("id = ?", leadID).First(&lead).Error; err != nil {
		RespondError(c, "Not found", http.StatusNotFound)
		return
	}
	if models.NormalizeEmail(lead.Email) != models.NormalizeEmail(user.Email) {
		RespondError(c, "Forbidden", http.StatusForbidden)
		return
	}

	var doc models.LeadDocument
	if err := db.Where("lead_id = ? AND doc_type = ?", leadID, docType).First(&doc).Error; err != nil {
		RespondError(c, "Not found", http.StatusNotFound)
		return
	}
	if doc.Status != models.DOC_STATUS_READY || doc.URL == nil || *doc.URL == "" {
		RespondError(c, "Not ready", http.StatusNotFound)
		return
	}

	c.Redirect(http.StatusFound, *doc.URL)
}
