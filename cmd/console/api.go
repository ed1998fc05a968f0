package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwebster45206/archetype-engine/internal/engine"
	"github.com/jwebster45206/archetype-engine/internal/handlers"
	"github.com/jwebster45206/archetype-engine/pkg/scenario"
	"github.com/jwebster45206/archetype-engine/pkg/turn"
)

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// doJSON sends a request and decodes a JSON response into out when the status
// matches want. Other statuses become errors carrying the API's message.
func doJSON(client *http.Client, method, url string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func listScenarios(client *http.Client, baseURL string) ([]scenario.Summary, error) {
	var list []scenario.Summary
	if err := doJSON(client, http.MethodGet, baseURL+"/v1/scenarios", nil, http.StatusOK, &list); err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	return list, nil
}

func createSession(client *http.Client, baseURL, scenarioID string) (*handlers.SessionResponse, error) {
	var resp handlers.SessionResponse
	req := handlers.CreateSessionRequest{ScenarioID: scenarioID}
	if err := doJSON(client, http.MethodPost, baseURL+"/v1/sessions", req, http.StatusCreated, &resp); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &resp, nil
}

func getSession(client *http.Client, baseURL string, id uuid.UUID) (*handlers.SessionResponse, error) {
	var resp handlers.SessionResponse
	if err := doJSON(client, http.MethodGet, fmt.Sprintf("%s/v1/sessions/%s", baseURL, id), nil, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &resp, nil
}

func submitTurn(client *http.Client, baseURL string, id uuid.UUID, message string) (*turn.Result, error) {
	var res turn.Result
	url := fmt.Sprintf("%s/v1/sessions/%s/turns", baseURL, id)
	if err := doJSON(client, http.MethodPost, url, turn.Request{Message: message}, http.StatusOK, &res); err != nil {
		return nil, fmt.Errorf("turn failed: %w", err)
	}
	return &res, nil
}

func getResults(client *http.Client, baseURL string, id uuid.UUID) (*engine.Results, error) {
	var res engine.Results
	url := fmt.Sprintf("%s/v1/sessions/%s/results", baseURL, id)
	if err := doJSON(client, http.MethodGet, url, nil, http.StatusOK, &res); err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}
	return &res, nil
}

func downloadPDF(client *http.Client, baseURL string, id uuid.UUID, w io.Writer) error {
	resp, err := client.Get(fmt.Sprintf("%s/v1/sessions/%s/export.pdf", baseURL, id))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("export failed with status %d: %s", resp.StatusCode, string(body))
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to save PDF: %w", err)
	}
	return nil
}
