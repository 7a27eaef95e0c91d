// utils/email.go
package utils

import (
	"fmt"
	"os"

	"github.com/keighl/postmark"

	"go-storefront/models"
)

// EmailService handles sending emails using Postmark
type EmailService struct {
	client *postmark.Client
	sender string
}

// NewEmailService initializes and returns a new EmailService instance.
// Returns nil when no API token is configured; callers treat a nil service
// as mail disabled.
func NewEmailService(apiToken, sender string) *EmailService {
	if apiToken == "" {
		return nil
	}
	return &EmailService{
		client: postmark.NewClient(apiToken, ""),
		sender: sender,
	}
}

// SendEmail sends a basic email to the specified recipient
func (es *EmailService) SendEmail(toEmail, subject, htmlContent string) error {
	_, err := es.client.SendEmail(postmark.Email{
		From:     es.sender,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlContent,
		TextBody: htmlContent,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendVerificationEmail sends an email verification link to the user
func (es *EmailService) SendVerificationEmail(toEmail, token string) error {
	subject := "Verify Your Email"
	verificationLink := fmt.Sprintf("http://localhost:%s/verify?token=%s", os.Getenv("PORT"), token)
	htmlContent := fmt.Sprintf(
		"<strong>Please verify your email by clicking on the following link:</strong> <a href=\"%s\">Verify Email</a>",
		verificationLink,
	)
	return es.SendEmail(toEmail, subject, htmlContent)
}

// SendOrderConfirmationEmail sends an order confirmation email to the user
func (es *EmailService) SendOrderConfirmationEmail(toEmail string, order *models.Order) error {
	subject := fmt.Sprintf("Order Confirmation - %s", order.OrderNumber)
	htmlContent := fmt.Sprintf(
		"<strong>Dear Customer,</strong><br><br>Thank you for your purchase! Your order <strong>%s</strong> has been placed successfully.<br><br>Total Amount: <strong>$%.2f</strong><br>Payment Method: <strong>%s</strong><br><br>Thank you for shopping with us!",
		order.OrderNumber,
		order.Total,
		order.PaymentMethod,
	)
	return es.SendEmail(toEmail, subject, htmlContent)
}

// SendOrderCancellationEmail notifies the user that their order was
// cancelled and stock has been released.
func (es *EmailService) SendOrderCancellationEmail(toEmail string, order *models.Order) error {
	subject := fmt.Sprintf("Order Cancelled - %s", order.OrderNumber)
	htmlContent := fmt.Sprintf(
		"<strong>Dear Customer,</strong><br><br>Your order <strong>%s</strong> has been cancelled. If a payment was taken it will be refunded to your original payment method.<br><br>Thank you for shopping with us!",
		order.OrderNumber,
	)
	return es.SendEmail(toEmail, subject, htmlContent)
}
