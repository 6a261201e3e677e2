//go:build integration

package n8n

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestIntegration_TriggerWorkflow(t *testing.T) {
	webhookURL := os.Getenv("N8N_TEST_WEBHOOK_URL")
	secret := os.Getenv("N8N_WEBHOOK_SECRET")

	if webhookURL == "" {
		t.Skip("N8N_TEST_WEBHOOK_URL required for integration tests")
	}

	client := NewClient(secret, 30*time.Second, DefaultRetryConfig(), logrus.New())

	err := client.TriggerWorkflow(context.Background(), webhookURL, TriggerPayload{
		SearchID:   "integration-test",
		ProductURL: "https://example.com",
		UserID:     "integration-test",
		Platform:   "reddit",
	})
	require.NoError(t, err)
}
