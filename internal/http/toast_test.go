package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
)

type toastJSON struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Kind        string `json:"kind"`
	Paused      bool   `json:"paused"`
	RemainingMs int64  `json:"remainingMs"`
}

func TestToastAPI(t *testing.T) {
	env := newEnv(t)
	env.post("/cart", url.Values{"productId": {"6"}})

	list := func() []toastJSON {
		_, body := env.get("/api/v1/toasts")
		var out []toastJSON
		if err := json.Unmarshal([]byte(body), &out); err != nil {
			t.Fatalf("decode toasts: %v body=%s", err, body)
		}
		return out
	}

	toasts := list()
	if len(toasts) != 1 || toasts[0].Kind != "success" {
		t.Fatalf("expected one success toast, got %+v", toasts)
	}
	id := toasts[0].ID
	if toasts[0].RemainingMs <= 0 {
		t.Fatalf("remaining time should be positive")
	}

	resp, _ := env.post("/api/v1/toasts/"+id+"/pause", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("pause: expected 204, got %d", resp.StatusCode)
	}
	if !list()[0].Paused {
		t.Fatalf("toast should be paused")
	}
	resp, _ = env.post("/api/v1/toasts/"+id+"/resume", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("resume: expected 204, got %d", resp.StatusCode)
	}

	resp, _ = env.post("/api/v1/toasts/"+id+"/dismiss", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("dismiss: expected 204, got %d", resp.StatusCode)
	}
	if len(list()) != 0 {
		t.Fatalf("toast should be gone")
	}
	resp, _ = env.post("/api/v1/toasts/"+id+"/dismiss", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second dismiss: expected 404, got %d", resp.StatusCode)
	}
}
