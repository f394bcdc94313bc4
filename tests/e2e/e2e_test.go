//go:build e2e

// Package e2e smoke-tests a running server end to end: register, fetch,
// update, and the health probe, over a real HTTP listener and database.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

type accountResponse struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	AccountCreated string `json:"account_created"`
	AccountUpdated string `json:"account_updated"`
}

func TestE2ESmoke(t *testing.T) {
	baseURL := envOrDefault("ACCOUNTD_BASE_URL", "http://localhost:8080")

	assertHealthy(t, baseURL)

	email := fmt.Sprintf("e2e-%d@example.com", time.Now().UnixNano())
	password := "e2e-password"

	created := registerAccount(t, baseURL, email, password)
	if created.Email != email {
		t.Fatalf("expected email %s, got %s", email, created.Email)
	}
	if created.AccountCreated != created.AccountUpdated {
		t.Fatalf("expected identical timestamps at creation, got %s and %s",
			created.AccountCreated, created.AccountUpdated)
	}

	fetched := fetchSelf(t, baseURL, email, password)
	if fetched.ID != created.ID {
		t.Fatalf("expected id %s, got %s", created.ID, fetched.ID)
	}

	updateSelf(t, baseURL, email, password, map[string]any{"firstName": "Updated"})

	after := fetchSelf(t, baseURL, email, password)
	if after.FirstName != "Updated" {
		t.Fatalf("expected first_name Updated, got %s", after.FirstName)
	}
	if after.LastName != created.LastName {
		t.Fatalf("last name changed unexpectedly: %s -> %s", created.LastName, after.LastName)
	}
	if after.AccountUpdated == created.AccountUpdated {
		t.Fatalf("expected account_updated to advance")
	}

	// Password rotation: the old credential must stop working.
	updateSelf(t, baseURL, email, password, map[string]any{"password": "rotated"})
	if status := fetchSelfStatus(t, baseURL, email, password); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 with the old password, got %d", status)
	}
	if status := fetchSelfStatus(t, baseURL, email, "rotated"); status != http.StatusOK {
		t.Fatalf("expected 200 with the new password, got %d", status)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func assertHealthy(t *testing.T, baseURL string) {
	t.Helper()

	deadline := time.Now().Add(30 * time.Second)
	for {
		resp, err := http.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become healthy at %s", baseURL)
		}
		time.Sleep(time.Second)
	}
}

func registerAccount(t *testing.T, baseURL, email, password string) accountResponse {
	t.Helper()

	payload := map[string]any{
		"emailAddress": email,
		"password":     password,
		"firstName":    "E2E",
		"lastName":     "Smoke",
	}

	var resp accountResponse
	status := doJSON(t, http.MethodPost, baseURL+"/v1/user", "", "", payload, &resp)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 from register, got %d", status)
	}
	if resp.ID == "" {
		t.Fatalf("register response missing id")
	}
	return resp
}

func fetchSelf(t *testing.T, baseURL, email, password string) accountResponse {
	t.Helper()

	var resp accountResponse
	status := doJSON(t, http.MethodGet, baseURL+"/v1/user/self", email, password, nil, &resp)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from self fetch, got %d", status)
	}
	return resp
}

func fetchSelfStatus(t *testing.T, baseURL, email, password string) int {
	t.Helper()
	return doJSON(t, http.MethodGet, baseURL+"/v1/user/self", email, password, nil, nil)
}

func updateSelf(t *testing.T, baseURL, email, password string, payload map[string]any) {
	t.Helper()

	status := doJSON(t, http.MethodPut, baseURL+"/v1/user/self", email, password, payload, nil)
	if status != http.StatusNoContent {
		t.Fatalf("expected 204 from self update, got %d", status)
	}
}

func doJSON(t *testing.T, method, url, basicUser, basicPass string, payload any, out any) int {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if basicUser != "" {
		req.SetBasicAuth(basicUser, basicPass)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	return resp.StatusCode
}
