package email

import (
	"fmt"
	"time"
)

// OTPMessage builds the registration verification mail.
func OTPMessage(to, otp string, validFor time.Duration) Message {
	minutes := int(validFor.Minutes())
	return Message{
		To:      to,
		Subject: "Riskinn - Verify Your Email Address",
		Text: fmt.Sprintf(
			"Welcome to Riskinn! Your One-Time Password (OTP) for registration is: %s\n\n"+
				"This OTP is valid for %d minutes.\n\n"+
				"If you did not request this, please ignore this email.",
			otp, minutes),
	}
}

// ResetMessage builds the password-reset mail. The plaintext token is
// embedded in the link; only its hash is stored server-side.
func ResetMessage(to, resetURL string, validFor time.Duration) Message {
	minutes := int(validFor.Minutes())
	return Message{
		To:      to,
		Subject: "Riskinn - Reset Your Password",
		Text: fmt.Sprintf(
			"You requested a password reset. Use the link below to choose a new password:\n\n%s\n\n"+
				"This link is valid for %d minutes. If you did not request a reset, you can ignore this email.",
			resetURL, minutes),
	}
}

// BrochureMessage builds the course-inquiry follow-up with a brochure link.
func BrochureMessage(to, userName, courseName, brochureURL string) Message {
	if userName == "" {
		userName = "Valued Inquirer"
	}
	html := fmt.Sprintf(`<html><body>
<h2>Hello %s,</h2>
<p>Thank you for reaching out to Risk Inn and showing interest in our course: <strong>%s</strong>.</p>
<p>You can download the course brochure here: <a href="%s">Download Brochure</a></p>
<p>Our team will be in touch soon to discuss your learning goals.</p>
<p>Best regards,<br>The Risk Inn Team</p>
</body></html>`, userName, courseName, brochureURL)

	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your Course Brochure - %s", courseName),
		Text: fmt.Sprintf(
			"Hello %s,\n\nThank you for your interest in %s. Download the brochure here: %s\n\nThe Risk Inn Team",
			userName, courseName, brochureURL),
		HTML: html,
	}
}
