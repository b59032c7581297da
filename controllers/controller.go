package controllers

import (
	"net/http"

	dbpkg "traveltactik/db"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

func RespondError(c *gin.Context, msg string, code int) {
	c.JSON(code, gin.H{"ok": false, "error": msg})
}

func RespondSuccess(c *gin.Context, payload any) {
	c.JSON(200, payload)
}

// RequireDB pega o handle do gorm injetado no contexto; responde 500 e
// devolve nil se o middleware de DB não rodou.
func RequireDB(c *gin.Context) *gorm.DB {
	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
	}
	return db
}
