package n8n

import "fmt"

// TriggerPayload starts the workflow of one platform for a search.
type TriggerPayload struct {
	SearchID   string `json:"searchId"`
	ProductURL string `json:"productUrl"`
	UserID     string `json:"userId"`
	Platform   string `json:"platform"`
}

// StatusError is returned when the workflow engine answers with a non-2xx status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Webhook failed with status: %d", e.StatusCode)
}
