package agents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateAgent_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST method, got %s", r.Method)
		}
		if r.URL.Path != "/assistants" {
			t.Errorf("expected path '/assistants', got %s", r.URL.Path)
		}
		if r.URL.Query().Get("api-version") != "v1" {
			t.Errorf("expected api-version=v1, got %s", r.URL.Query().Get("api-version"))
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("expected bearer auth header, got %s", auth)
		}
		spec := AgentSpec{}
		if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if spec.Model != "gpt-4o" {
			t.Errorf("expected model gpt-4o, got %s", spec.Model)
		}
		if len(spec.Tools) != 1 || spec.Tools[0].Type != "deep_research" {
			t.Errorf("expected one deep_research tool, got %+v", spec.Tools)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Agent{ID: "asst_1", Model: spec.Model, Name: spec.Name})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{Endpoint: server.URL, APIKey: "test-key"})
	agent, err := client.CreateAgent(context.Background(), AgentSpec{
		Model:        "gpt-4o",
		Name:         "restaurant-researcher",
		Instructions: "You are a helpful agent.",
		Tools:        []Tool{NewDeepResearchTool("conn-1", "deep-research-model")},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if agent.ID != "asst_1" {
		t.Errorf("expected agent id asst_1, got %s", agent.ID)
	}
}

func TestDeleteAgent_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{Endpoint: server.URL, APIKey: "test-key"})
	err := client.DeleteAgent(context.Background(), "asst_missing")
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", apiErr.StatusCode)
	}
}

func TestGetRun_DecodesStatusAndError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/threads/thread_1/runs/run_1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"run_1","thread_id":"thread_1","status":"failed","last_error":{"code":"server_error","message":"boom"}}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{Endpoint: server.URL, APIKey: "test-key"})
	run, err := client.GetRun(context.Background(), "thread_1", "run_1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if run.Status != RunStatusFailed {
		t.Errorf("expected failed status, got %s", run.Status)
	}
	if run.LastError == nil || run.LastError.Message != "boom" {
		t.Errorf("expected last error 'boom', got %+v", run.LastError)
	}
}

func TestGetLastMessageByRole_FiltersAndOrders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("order") != "desc" {
			t.Errorf("expected order=desc, got %s", r.URL.Query().Get("order"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"id":"msg_3","role":"user","content":[{"type":"text","text":{"value":"follow-up"}}]},
			{"id":"msg_2","role":"assistant","content":[{"type":"text","text":{"value":"latest agent text"}}]},
			{"id":"msg_1","role":"assistant","content":[{"type":"text","text":{"value":"older agent text"}}]}
		]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{Endpoint: server.URL, APIKey: "test-key"})
	message, err := client.GetLastMessageByRole(context.Background(), "thread_1", RoleAgent)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if message == nil {
		t.Fatal("expected a message, got nil")
	}
	if message.ID != "msg_2" {
		t.Errorf("expected newest assistant message msg_2, got %s", message.ID)
	}
	fragments := message.TextFragments()
	if len(fragments) != 1 || fragments[0] != "latest agent text" {
		t.Errorf("unexpected fragments: %v", fragments)
	}
}

func TestGetLastMessageByRole_NoneIsNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"msg_1","role":"user","content":[]}]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{Endpoint: server.URL, APIKey: "test-key"})
	message, err := client.GetLastMessageByRole(context.Background(), "thread_1", RoleAgent)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if message != nil {
		t.Errorf("expected nil message, got %+v", message)
	}
}

func TestDo_MissingAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called when API key is missing")
	}))
	defer server.Close()

	client := NewClient(ClientConfig{Endpoint: server.URL})
	_, err := client.CreateThread(context.Background())
	if err == nil {
		t.Fatal("expected error for missing API key, got nil")
	}
	if err.Error() != "missing API key for agent runtime" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
}

func TestMessage_URLCitationAnnotations(t *testing.T) {
	message := Message{
		ID:   "msg_1",
		Role: RoleAgent,
		Content: []MessageContent{
			{Type: "text", Text: &MessageText{
				Value: "body",
				Annotations: []Annotation{
					{Type: "url_citation", Text: "【42:3†source】", URLCitation: &URLCitation{URL: "https://a.example", Title: "A"}},
					{Type: "file_citation", Text: "ignored"},
				},
			}},
			{Type: "image_file"},
			{Type: "text", Text: &MessageText{
				Value: "more",
				Annotations: []Annotation{
					{Type: "url_citation", Text: "【42:4†source】", URLCitation: &URLCitation{URL: "https://b.example", Title: "B"}},
				},
			}},
		},
	}
	annotations := message.URLCitationAnnotations()
	if len(annotations) != 2 {
		t.Fatalf("expected 2 url citations, got %d", len(annotations))
	}
	if annotations[0].URLCitation.URL != "https://a.example" || annotations[1].URLCitation.URL != "https://b.example" {
		t.Errorf("annotations out of order: %+v", annotations)
	}
}
