package utils

import (
	"fmt"
	"log"
	"os"

	"github.com/wneessen/go-mail"

	"coffret_back_end/internal/models"
)

// Mailer envoie les confirmations de commande par SMTP.
// Il implémente l'interface Notifier consommée par l'orchestrateur.
type Mailer struct{}

func NewMailer() *Mailer {
	return &Mailer{}
}

// Send construit le résumé de commande et l'envoie au destinataire.
// Pour un paiement par virement, un QR SEPA est embarqué dans le corps.
func (m *Mailer) Send(recipient, subject string, bodyContext map[string]interface{}) error {
	var qrBase64 string

	if method, _ := bodyContext["payment_method"].(string); method == "bank_transfer" {
		total, _ := bodyContext["total"].(float64)
		orderID, _ := bodyContext["order_id"].(string)

		qr, err := GenerateSepaQR(
			envOrDefault("COMPANY_IBAN", "BE12345678901234"),
			envOrDefault("COMPANY_BIC", "KREDBEBB"),
			envOrDefault("COMPANY_NAME", "Coffret SRL"),
			fmt.Sprintf("CMD-%s", orderID),
			total,
		)
		if err != nil {
			log.Printf("⚠️ Erreur génération QR SEPA: %v", err)
		} else {
			qrBase64 = qr
		}
	}

	html := GenerateOrderConfirmationHTML(bodyContext, qrBase64)
	return SendConfirmationEmail(recipient, subject, html)
}

// SendConfirmationEmail envoie un e-mail HTML via le relais SMTP configuré
func SendConfirmationEmail(to, subject, htmlBody string) error {
	msg := mail.NewMsg()

	if err := msg.From(envOrDefault("SMTP_FROM", "noreply@coffret.example")); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(envOrDefault("SMTP_HOST", "ssl0.ovh.net"),
		mail.WithPort(587),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(os.Getenv("SMTP_USERNAME")),
		mail.WithPassword(os.Getenv("SMTP_PASSWORD")),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", to)
	return client.DialAndSend(msg)
}

// GenerateOrderConfirmationHTML génère le HTML du résumé de commande
func GenerateOrderConfirmationHTML(bodyContext map[string]interface{}, qrBase64 string) string {
	itemsHTML := ""
	if items, ok := bodyContext["items"].([]models.OrderItem); ok {
		for _, item := range items {
			itemsHTML += fmt.Sprintf(`
			<tr>
				<td>%s</td>
				<td>%d</td>
				<td>%.2f€</td>
				<td>%.2f€</td>
			</tr>`, item.Name, item.Quantity, item.UnitPrice, item.UnitPrice*float64(item.Quantity))
		}
	}

	subtotal, _ := bodyContext["subtotal"].(float64)
	discount, _ := bodyContext["discount"].(float64)
	tax, _ := bodyContext["tax"].(float64)
	shipping, _ := bodyContext["shipping"].(float64)
	total, _ := bodyContext["total"].(float64)

	qrHTML := ""
	if qrBase64 != "" {
		qrHTML = fmt.Sprintf(`
		<h3>Paiement par virement</h3>
		<p>Scannez ce QR code avec votre application bancaire :</p>
		<img src="%s" alt="QR SEPA" width="256" height="256">`, qrBase64)
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<title>Confirmation de commande</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Confirmation de votre commande</h2>
		<p>Bonjour,</p>
		<p>Votre commande a été confirmée avec succès.</p>

		<h3>Détails de la commande</h3>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Produit</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Quantité</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Prix unitaire</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Total</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
			<tfoot>
				<tr><td colspan="3" style="padding: 10px; text-align: right;">Sous-total:</td><td style="padding: 10px;">%.2f€</td></tr>
				<tr><td colspan="3" style="padding: 10px; text-align: right;">Réduction:</td><td style="padding: 10px;">−%.2f€</td></tr>
				<tr><td colspan="3" style="padding: 10px; text-align: right;">TVA:</td><td style="padding: 10px;">%.2f€</td></tr>
				<tr><td colspan="3" style="padding: 10px; text-align: right;">Livraison:</td><td style="padding: 10px;">%.2f€</td></tr>
				<tr><td colspan="3" style="padding: 10px; text-align: right; font-weight: bold;">Total:</td><td style="padding: 10px; font-weight: bold;">%.2f€</td></tr>
			</tfoot>
		</table>
		%s

		<p style="margin-top: 30px; color: #555;">
			Cordialement,<br>
			<strong>L'équipe Coffret</strong>
		</p>
	</div>
</body>
</html>`, itemsHTML, subtotal, discount, tax, shipping, total, qrHTML)
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
