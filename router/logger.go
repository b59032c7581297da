package router

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger registra método, rota, origem, status e latência de cada request.
// O webhook do Stripe fica fora deste middleware de propósito: o volume de
// reentrega polui o log e o handler já loga o que importa.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Printf("%s %s ip=%s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.ClientIP(),
			c.Writer.Status(), time.Since(start))
	}
}
