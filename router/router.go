package router

import (
	"log"

	"traveltactik/config"
	"traveltactik/controllers"
	"traveltactik/middleware"

	"github.com/gin-gonic/gin"
)

// Initialize wires all routes and middlewares: public intake/checkout/webhook,
// authenticated customer routes, admin routes behind Adminizer.
func Initialize(r *gin.Engine, cfg config.Configuration) {
	controllers.SetSiteURL(cfg.SiteURL)

	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")

	// Webhook Stripe — assinatura conferida no handler, nunca atrás de auth.
	api.POST("/stripe/webhook", controllers.StripeWebhook)

	// Public (no auth)
	api.POST("/lead", Logger(), controllers.SubmitLead)
	api.POST("/checkout", Logger(), controllers.CreateCheckout)
	api.POST("/users", Logger(), controllers.CreateUser)
	api.POST("/login", Logger(), controllers.Login)

	// Authenticated routes (token required)
	auth := api.Group("")
	auth.Use(controllers.AuthRequired())
	auth.GET("/me", Logger(), controllers.Me)
	auth.POST("/checkout/quote", Logger(), controllers.CreateQuoteCheckout)
	auth.GET("/app/documents/:leadId/:docType", Logger(), controllers.DownloadDocument)

	// Admin routes
	admin := auth.Group("")
	admin.Use(Adminizer())
	admin.GET("/admin/leads", Logger(), controllers.GetLeads)
	admin.POST("/admin/leads/:id/handled", Logger(), controllers.ToggleHandled)
	admin.POST("/admin/leads/:id/documents", Logger(), controllers.UpsertLeadDocument)
	admin.POST("/admin/uploads", Logger(), controllers.UploadDocument)
	admin.GET("/admin/clients", Logger(), controllers.GetClients)
	admin.POST("/admin/clients", Logger(), controllers.CreateClientQuote)

	log.Printf("Routes initialized")
}
