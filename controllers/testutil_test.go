package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	dbpkg "traveltactik/db"
	"traveltactik/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Uma única conexão: cada conexão sqlite :memory: seria um banco separado.
	db.DB().SetMaxOpenConns(1)
	db.LogMode(false)
	dbpkg.AutoMigrate(db)

	t.Cleanup(func() { db.Close() })
	return db
}

// newTestRouter registra os handlers direto, sem os middlewares de auth —
// os testes de controller exercitam as regras de negócio, não o JWT.
func newTestRouter(db *gorm.DB, register func(r *gin.Engine)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(dbpkg.SetDBtoContext(db))
	register(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload any, mutate func(req *http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

// mailCapture simula a API do mailer e guarda os envios.
type mailCapture struct {
	mu    sync.Mutex
	sends []map[string]any
}

func (m *mailCapture) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sends)
}

func (m *mailCapture) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sends {
		if to, ok := s["to"].([]any); ok && len(to) > 0 {
			out = append(out, to[0].(string))
		}
	}
	return out
}

func startMailServer(t *testing.T) *mailCapture {
	t.Helper()

	capture := &mailCapture{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		capture.mu.Lock()
		capture.sends = append(capture.sends, payload)
		capture.mu.Unlock()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"mail_test"}`))
	}))
	t.Cleanup(ts.Close)

	t.Setenv("RESEND_API_KEY", "re_test")
	t.Setenv("RESEND_BASE_URL", ts.URL)
	t.Setenv("MAILER_MODE", "production")
	t.Setenv("LEADS_NOTIFICATION_EMAIL", "ops@travel-tactik.test")

	return capture
}

func insertLead(t *testing.T, db *gorm.DB, mutate func(*models.Lead)) models.Lead {
	t.Helper()

	now := time.Now()
	lead := models.Lead{
		ID:            uuid.NewString(),
		Email:         "client@example.com",
		Pack:          models.LEAD_PACK_AUDIT,
		Speed:         models.LEAD_SPEED_STANDARD,
		PriceEUR:      199,
		PaymentStatus: models.LEAD_PAYMENT_PENDING,
	}
	lead.ClientCreatedAt = &now
	_ = lead.SetBrief(models.TripBrief{
		Destination:   "Lisbonne",
		DurationDays:  7,
		Travelers:     2,
		Comfort:       models.COMFORT_COMFORT,
		BudgetMax:     1500,
		AvoidLayovers: false,
	})
	if mutate != nil {
		mutate(&lead)
	}
	if err := db.Create(&lead).Error; err != nil {
		t.Fatalf("insert lead: %v", err)
	}
	return lead
}
