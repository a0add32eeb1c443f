package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

var webhookURL string

// configureWebhook sets the delivery target. Empty means log-only.
func configureWebhook(url string) {
	webhookURL = url
}

func webhookConfigured() bool {
	return webhookURL != ""
}

// postWebhook performs the HTTP request to the alert channel
func postWebhook(ev Event) error {
	b, _ := json.Marshal(ev)
	req, err := http.NewRequest("POST", webhookURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Try to read response body for more context
		var errMsg string
		if resp.Body != nil {
			if body, readErr := io.ReadAll(resp.Body); readErr == nil && len(body) > 0 {
				errMsg = string(body)
			}
		}
		if errMsg != "" {
			return fmt.Errorf("webhook post failed: status=%d body=%s", resp.StatusCode, errMsg)
		}
		return fmt.Errorf("webhook post failed: status=%d", resp.StatusCode)
	}
	return nil
}
