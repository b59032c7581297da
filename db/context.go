package db

import (
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

const ctxDBKey = "traveltactik_db"

// SetDBtoContext injeta o handle do gorm em todas as requisições. Registrar
// antes do router: os controllers leem via DBInstance.
func SetDBtoContext(database *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxDBKey, database)
		c.Next()
	}
}

// DBInstance devolve o handle injetado, ou nil se o middleware não rodou.
func DBInstance(c *gin.Context) *gorm.DB {
	v, ok := c.Get(ctxDBKey)
	if !ok {
		return nil
	}
	db, _ := v.(*gorm.DB)
	return db
}
