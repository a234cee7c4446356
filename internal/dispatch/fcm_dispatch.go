package dispatch

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// FCMDispatcher posts notifications to an FCM HTTPv1-style endpoint. Devices
// are addressed by username; token resolution is the push backend's problem.
type FCMDispatcher struct {
	Endpoint string
	Key      string
	Client   *http.Client
	Logger   *slog.Logger
}

func NewFCMDispatcher(endpoint, key string, logger *slog.Logger) *FCMDispatcher {
	return &FCMDispatcher{
		Endpoint: endpoint,
		Key:      key,
		Client:   &http.Client{Timeout: 3 * time.Second},
		Logger:   logger,
	}
}

func (f *FCMDispatcher) Notify(username, event string, payload map[string]any) {
	body := map[string]any{
		"message": map[string]any{
			"topic": "user-" + username,
			"data":  map[string]any{"event": event, "payload": payload},
		},
	}
	b, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, f.Endpoint, bytes.NewReader(b))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if f.Key != "" {
		req.Header.Set("Authorization", "Bearer "+f.Key)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		f.Logger.Warn("fcm push failed", "user", username, "event", event, "error", err)
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		f.Logger.Warn("fcm push rejected", "user", username, "event", event, "status", resp.StatusCode)
	}
}
