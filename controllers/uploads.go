package controllers

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"traveltactik/tools"

	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 20 << 20 // 20MB por PDF

// POST /api/admin/uploads
//
// Upload de PDF para o blob. Devolve a URL pública; quem pluga a URL no
// registro de documentos é o endpoint de upsert.
func UploadDocument(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, "Missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		RespondError(c, "File too large", http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType != "application/pdf" {
		RespondError(c, "Only PDF allowed", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		RespondError(c, "failed to read file", http.StatusBadRequest)
		return
	}

	name := c.PostForm("name")
	if name == "" {
		name = header.Filename
	}
	safeName := tools.SafeBlobName(name)

	blob, err := tools.NewBlobClient()
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	path := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), safeName)
	url, err := blob.Put(c.Request.Context(), path, "application/pdf", data)
	if err != nil {
		log.Printf("[uploads] blob error: %v", err)
		RespondError(c, "Server error", http.StatusInternalServerError)
		return
	}

	RespondSuccess(c, gin.H{"ok": true, "url": url})
}
