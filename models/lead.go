package models

import (
	"encoding/json"
	"strings"
	"time"
)

/************************************************
/**** MARK: SERVICE PACKS ****/
/************************************************/
const LEAD_PACK_AUDIT = "audit"
const LEAD_PACK_ITINERARY = "itinerary"
const LEAD_PACK_CONCIERGE = "concierge"

/************************************************
/**** MARK: DELIVERY SPEEDS ****/
/************************************************/
const LEAD_SPEED_STANDARD = "standard"
const LEAD_SPEED_URGENT = "urgent"

/************************************************
/**** MARK: PAYMENT STATUS ****/
/************************************************/
const LEAD_PAYMENT_PENDING = "pending"
const LEAD_PAYMENT_PAID = "paid"

/************************************************
/**** MARK: COMFORT LEVELS ****/
/************************************************/
const COMFORT_ECO = "eco"
const COMFORT_COMFORT = "comfort"
const COMFORT_PREMIUM = "premium"

/************************************************
/**** MARK: BRIEF WORKFLOW STATUS ****/
/************************************************/
const BRIEF_STATUS_DRAFT = "draft"
const BRIEF_STATUS_PUBLISHED = "published"
const BRIEF_STATUS_ACCEPTED = "accepted"

// TripBrief é o brief de viagem enviado pelo cliente. É persistido como JSON
// na coluna brief do lead. Os campos de workflow (Status/PublishedAt/ExpiresAt/
// QuoteDetails) só existem em devis criados pelo operador.
type TripBrief struct {
	Destination   string `json:"destination"`
	DurationDays  int    `json:"durationDays"`
	Travelers     int    `json:"travelers"`
	Comfort       string `json:"comfort"`
	BudgetMax     int    `json:"budgetMax"`
	AvoidLayovers bool   `json:"avoidLayovers"`

	QuoteDetails string     `json:"quoteDetails,omitempty"`
	Status       string     `json:"status,omitempty"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

// Lead representa um pedido de viagem (lead/devis) no sistema.
// payment_status avança pending -> paid e nunca volta; handled só pode virar
// true com paid + documento tarifs ready; delivered_email_sent_at é um latch
// de envio único, nunca limpo depois de setado.
type Lead struct {
	ID     string  `gorm:"primary_key;type:varchar(36)" json:"id"`
	UserID *string `gorm:"type:varchar(36);index" json:"user_id"`
	Email  string  `gorm:"not null;index" json:"email" form:"email"`

	Pack         string `gorm:"not null" json:"pack" form:"pack"`
	Speed        string `gorm:"not null" json:"speed" form:"speed"`
	PriceEUR     int    `gorm:"column:price_eur;not null;default:0" json:"price_eur"`
	Brief        string `gorm:"type:text" json:"brief"`
	Destination  string `gorm:"index" json:"destination"`
	SelectedPlan string `gorm:"default:''" json:"selected_plan"`
	Notes        string `gorm:"type:text" json:"notes" form:"notes"`

	PaymentStatus         string  `gorm:"not null;default:'pending';index" json:"payment_status"`
	StripeSessionID       string  `gorm:"default:''" json:"stripe_session_id"`
	StripePaymentIntentID *string `json:"stripe_payment_intent_id"`
	PaidAt                *time.Time `json:"paid_at"`

	Handled             bool       `gorm:"not null;default:false;index" json:"handled"`
	HandledAt           *time.Time `json:"handled_at"`
	DeliveredAt         *time.Time `json:"delivered_at"`
	DeliveredEmailSentAt *time.Time `gorm:"column:delivered_email_sent_at" json:"delivered_email_sent_at"`

	UserAgent       string     `gorm:"default:''" json:"user_agent"`
	ClientCreatedAt *time.Time `gorm:"index" json:"client_created_at"`
	CreatedAt       *time.Time `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

func IsPack(v string) bool {
	return v == LEAD_PACK_AUDIT || v == LEAD_PACK_ITINERARY || v == LEAD_PACK_CONCIERGE
}

func IsSpeed(v string) bool {
	return v == LEAD_SPEED_STANDARD || v == LEAD_SPEED_URGENT
}

func IsComfort(v string) bool {
	return v == COMFORT_ECO || v == COMFORT_COMFORT || v == COMFORT_PREMIUM
}

// Tabela de preços fixa (EUR). O preço é sempre calculado do lado servidor a
// partir de pack+speed; um preço vindo do cliente nunca é persistido tal qual.
var priceTable = map[string]map[string]int{
	LEAD_PACK_AUDIT:     {LEAD_SPEED_STANDARD: 199, LEAD_SPEED_URGENT: 279},
	LEAD_PACK_ITINERARY: {LEAD_SPEED_STANDARD: 349, LEAD_SPEED_URGENT: 449},
	LEAD_PACK_CONCIERGE: {LEAD_SPEED_STANDARD: 649, LEAD_SPEED_URGENT: 799},
}

// PriceEURFor devolve o preço servidor para pack+speed, 0 se inválido.
func PriceEURFor(pack, speed string) int {
	speeds, ok := priceTable[pack]
	if !ok {
		return 0
	}
	return speeds[speed]
}

func (b TripBrief) MissingFields() string {
	if strings.TrimSpace(b.Destination) == "" {
		return "destination"
	} else if b.DurationDays < 1 || b.DurationDays > 90 {
		return "durationDays"
	} else if b.Travelers < 1 || b.Travelers > 20 {
		return "travelers"
	} else if !IsComfort(b.Comfort) {
		return "comfort"
	} else if b.BudgetMax < 1 || b.BudgetMax > 100000 {
		return "budgetMax"
	}
	return ""
}

// ParseBrief decodifica a coluna brief. Brief vazio não é erro: devolve zero value.
func (lead Lead) ParseBrief() (TripBrief, error) {
	var brief TripBrief
	raw := strings.TrimSpace(lead.Brief)
	if raw == "" {
		return brief, nil
	}
	if err := json.Unmarshal([]byte(raw), &brief); err != nil {
		return TripBrief{}, err
	}
	return brief, nil
}

func (lead *Lead) SetBrief(brief TripBrief) error {
	b, err := json.Marshal(brief)
	if err != nil {
		return err
	}
	lead.Brief = string(b)
	lead.Destination = strings.TrimSpace(brief.Destination)
	return nil
}
