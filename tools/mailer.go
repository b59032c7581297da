package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

/************************************************
/**** MARK: MAILER MODES ****/
/************************************************/
const MAILER_MODE_PRODUCTION = "production"
const MAILER_MODE_TEST = "test"

const defaultMailerBase = "https://api.resend.com"

// Mailer envia e-mails transacionais via API HTTP (Resend).
//
// Em modo "test" todo envio é redirecionado para uma caixa fixa
// (MAILER_TEST_INBOX) com um banner indicando o destinatário real — o modo é
// decidido por configuração (MAILER_MODE), nunca pelo caller.
type Mailer struct {
	APIKey    string
	BaseURL   string
	From      string
	Mode      string
	TestInbox string
	HTTP      *http.Client
}

func NewMailer() (*Mailer, error) {
	key := strings.TrimSpace(os.Getenv("RESEND_API_KEY"))
	if key == "" {
		return nil, fmt.Errorf("RESEND_API_KEY not set")
	}

	base := strings.TrimSpace(os.Getenv("RESEND_BASE_URL"))
	if base == "" {
		base = defaultMailerBase
	}

	from := strings.TrimSpace(os.Getenv("RESEND_FROM"))
	if from == "" {
		from = "TravelTactik <onboarding@resend.dev>"
	}

	mode := strings.TrimSpace(os.Getenv("MAILER_MODE"))
	if mode != MAILER_MODE_PRODUCTION {
		mode = MAILER_MODE_TEST
	}

	testInbox := strings.TrimSpace(os.Getenv("MAILER_TEST_INBOX"))
	if mode == MAILER_MODE_TEST && testInbox == "" {
		return nil, fmt.Errorf("MAILER_TEST_INBOX not set (required in test mode)")
	}

	return &Mailer{
		APIKey:    key,
		BaseURL:   base,
		From:      from,
		Mode:      mode,
		TestInbox: testInbox,
		HTTP:      &http.Client{Timeout: 20 * time.Second},
	}, nil
}

// OwnerEmail é a caixa interna que recebe as notificações de novos leads e
// pagamentos ("prepare documents").
func OwnerEmail() (string, error) {
	email := strings.TrimSpace(os.Getenv("LEADS_NOTIFICATION_EMAIL"))
	if email == "" {
		return "", fmt.Errorf("LEADS_NOTIFICATION_EMAIL not set")
	}
	return email, nil
}

// Send envia um e-mail único. Aplica o redirect de modo test antes do POST.
func (m *Mailer) Send(ctx context.Context, to string, subject string, htmlBody string, replyTo string) error {
	if m.Mode == MAILER_MODE_TEST {
		banner := `<p style="background:#fff3cd;padding:8px;border-radius:6px">` +
			"[test mode] destinataire réel: " + html.EscapeString(to) + "</p>"
		htmlBody = banner + htmlBody
		to = m.TestInbox
	}

	payload := map[string]any{
		"from":    m.From,
		"to":      []string{to},
		"subject": subject,
		"html":    htmlBody,
	}
	if replyTo != "" {
		payload["reply_to"] = replyTo
	}

	b, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+"/emails", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mailer api error: status=%d body=%s", resp.StatusCode, string(body))
	}
	return nil
}

// LeadMailData é o recorte do lead usado nos templates.
type LeadMailData struct {
	LeadID      string
	Email       string
	Pack        string
	Speed       string
	PriceEUR    int
	Destination string
	Duration    int
	Travelers   int
	Notes       string
}

// SendLeadEmails envia a confirmação ao cliente e a notificação interna de
// novo lead. Usada no intake (appel découverte).
func SendLeadEmails(ctx context.Context, data LeadMailData) error {
	m, err := NewMailer()
	if err != nil {
		return err
	}
	owner, err := OwnerEmail()
	if err != nil {
		return err
	}

	clientBody := fmt.Sprintf(`<div style="font-family:system-ui,sans-serif;line-height:1.5">
<h2>Demande reçue</h2>
<p>Merci. J'ai bien reçu ta demande et je reviens vers toi rapidement.</p>
<p><strong>Référence :</strong> %s</p>
<hr />
<p><strong>Pack :</strong> %s — <strong>Délai :</strong> %s</p>
<p><strong>Destination :</strong> %s</p>
<p><strong>Durée :</strong> %d jours — <strong>Voyageurs :</strong> %d</p>
</div>`,
		html.EscapeString(data.LeadID), html.EscapeString(data.Pack), html.EscapeString(data.Speed),
		html.EscapeString(data.Destination), data.Duration, data.Travelers)

	if err := m.Send(ctx, data.Email, "TravelTactik — Demande reçue", clientBody, ""); err != nil {
		return err
	}

	ownerBody := fmt.Sprintf(`<div style="font-family:system-ui,sans-serif;line-height:1.5">
<h2>Nouveau lead</h2>
<p><strong>ID :</strong> %s</p>
<p><strong>Email :</strong> %s</p>
<p><strong>Pack :</strong> %s — <strong>Délai :</strong> %s — <strong>Prix :</strong> %d€</p>
<p><strong>Destination :</strong> %s</p>
<pre style="background:#f6f8fa;padding:12px;border-radius:8px">%s</pre>
</div>`,
		html.EscapeString(data.LeadID), html.EscapeString(data.Email),
		html.EscapeString(data.Pack), html.EscapeString(data.Speed), data.PriceEUR,
		html.EscapeString(data.Destination), html.EscapeString(data.Notes))

	return m.Send(ctx, owner, "Nouveau lead TravelTactik — "+data.Destination, ownerBody, data.Email)
}

// SendPaymentEmails envia a confirmação de pagamento ao cliente e o aviso
// interno "payment received — prepare documents". Chamada uma única vez por
// lead, pelo vencedor do update condicional no webhook.
func SendPaymentEmails(ctx context.Context, data LeadMailData) error {
	m, err := NewMailer()
	if err != nil {
		return err
	}
	owner, err := OwnerEmail()
	if err != nil {
		return err
	}

	clientBody := fmt.Sprintf(`<div style="font-family:system-ui,sans-serif;line-height:1.5">
<h2>Paiement confirmé</h2>
<p>Merci ! Ton paiement a bien été reçu. Tes documents sont en préparation.</p>
<p><strong>Référence :</strong> %s</p>
<p><strong>Pack :</strong> %s — <strong>Délai :</strong> %s — <strong>Montant :</strong> %d€</p>
</div>`,
		html.EscapeString(data.LeadID), html.EscapeString(data.Pack),
		html.EscapeString(data.Speed), data.PriceEUR)

	if err := m.Send(ctx, data.Email, "TravelTactik — Paiement confirmé", clientBody, ""); err != nil {
		return err
	}

	ownerBody := fmt.Sprintf(`<div style="font-family:system-ui,sans-serif;line-height:1.5">
<h2>Paiement reçu — préparer les documents</h2>
<p><strong>ID :</strong> %s</p>
<p><strong>Email :</strong> %s</p>
<p><strong>Destination :</strong> %s — <strong>Montant :</strong> %d€</p>
</div>`,
		html.EscapeString(data.LeadID), html.EscapeString(data.Email),
		html.EscapeString(data.Destination), data.PriceEUR)

	return m.Send(ctx, owner, "Paiement reçu — "+data.Destination, ownerBody, data.Email)
}

// SendDeliveredEmail avisa o cliente que os documentos estão prontos.
// O single-fire é garantido pelo caller via delivered_email_sent_at.
func SendDeliveredEmail(ctx context.Context, leadID string, email string, documentsURL string) error {
	m, err := NewMailer()
	if err != nil {
		return err
	}

	body := fmt.Sprintf(`<div style="font-family:system-ui,sans-serif;line-height:1.5">
<h2>Tes documents sont prêts</h2>
<p>Tes documents de voyage sont disponibles dans ton espace.</p>
<p><a href="%s">Accéder à mes documents</a></p>
<p><strong>Référence :</strong> %s</p>
</div>`, html.EscapeString(documentsURL), html.EscapeString(leadID))

	return m.Send(ctx, email, "TravelTactik — Documents prêts", body, "")
}

// SendQuotePublishedEmail avisa o cliente que um devis personalizado foi
// publicado no espaço dele.
func SendQuotePublishedEmail(ctx context.Context, leadID string, email string, plansURL string) error {
	m, err := NewMailer()
	if err != nil {
		return err
	}

	body := fmt.Sprintf(`<div style="font-family:system-ui,sans-serif;line-height:1.5">
<h2>Ton devis est disponible</h2>
<p>Un devis personnalisé t'attend dans ton espace.</p>
<p><a href="%s">Voir mon devis</a></p>
<p><strong>Référence :</strong> %s</p>
</div>`, html.EscapeString(plansURL), html.EscapeString(leadID))

	return m.Send(ctx, email, "TravelTactik — Devis disponible", body, "")
}
