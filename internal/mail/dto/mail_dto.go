package dto

// AttachmentPayload carries one attachment's bytes, base64-encoded.
type AttachmentPayload struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// SendEmailRequest is the body for send and reply endpoints.
type SendEmailRequest struct {
	To          []string            `json:"to" binding:"required"`
	Subject     string              `json:"subject"`
	HTMLBody    string              `json:"html_body"`
	Attachments []AttachmentPayload `json:"attachments"`
}

// RegisterFCMTokenRequest registers one device token.
type RegisterFCMTokenRequest struct {
	Token string `json:"token" binding:"required"`
}
