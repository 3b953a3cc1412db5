package crm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hr-center/internal/config"
)

const testPipeline = `
entity_type_id: 1054
documents_field: ufCrm6Documents
author_id: 7
`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	pipeline, err := ParsePipeline([]byte(testPipeline))
	if err != nil {
		t.Fatalf("ParsePipeline failed: %v", err)
	}
	return NewClient(&config.BitrixConfig{WebhookURL: server.URL + "/rest/1/abc/", Timeout: 5 * time.Second}, pipeline)
}

func TestAttachDocumentKeepsExistingFiles(t *testing.T) {
	var calls []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		var body struct {
			EntityTypeID int                          `json:"entityTypeId"`
			ID           int64                        `json:"id"`
			Fields       map[string][]json.RawMessage `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if body.EntityTypeID != 1054 || body.ID != 42 {
			t.Errorf("Unexpected body %+v", body)
		}

		switch r.URL.Path {
		case "/rest/1/abc/crm.item.get.json":
			io.WriteString(w, `{"result":{"item":{"id":42,"ufCrm6Documents":[{"id":10,"url":"/a"},{"id":11,"url":"/b"}]}}}`)
		case "/rest/1/abc/crm.item.update.json":
			files := body.Fields["ufCrm6Documents"]
			if len(files) != 3 {
				t.Fatalf("Expected 2 kept files and 1 new, got %d", len(files))
			}
			for i, want := range []string{`{"id":"10"}`, `{"id":"11"}`} {
				if string(files[i]) != want {
					t.Errorf("File %d: expected %s, got %s", i, want, files[i])
				}
			}
			var upload []string
			if err := json.Unmarshal(files[2], &upload); err != nil || upload[0] != "contract.pdf" || upload[1] != "JVBERg==" {
				t.Errorf("Unexpected upload %s", files[2])
			}
			io.WriteString(w, `{"result":{"item":{"id":42,"ufCrm6Documents":[{"id":10},{"id":12},{"id":11}]}}}`)
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
	})

	id, err := client.AttachDocument(context.Background(), 42, "contract.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("AttachDocument failed: %v", err)
	}
	if id != "12" {
		t.Errorf("Expected new file id 12, got %s", id)
	}
	if len(calls) != 2 {
		t.Errorf("Expected read then update, got %v", calls)
	}
}

func TestAttachDocumentEmptyField(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/1/abc/crm.item.get.json":
			io.WriteString(w, `{"result":{"item":{"id":42,"ufCrm6Documents":""}}}`)
		case "/rest/1/abc/crm.item.update.json":
			var body struct {
				Fields map[string][]json.RawMessage `json:"fields"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			if files := body.Fields["ufCrm6Documents"]; len(files) != 1 {
				t.Errorf("Expected only the new file, got %d", len(files))
			}
			io.WriteString(w, `{"result":{"item":{"id":42,"ufCrm6Documents":{"id":5}}}}`)
		}
	})

	id, err := client.AttachDocument(context.Background(), 42, "contract.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("AttachDocument failed: %v", err)
	}
	if id != "5" {
		t.Errorf("Expected file id 5, got %s", id)
	}
}

func TestAddTimelineComment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Fields map[string]any `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if body.Fields["ENTITY_TYPE"] != "dynamic_1054" {
			t.Errorf("Expected derived entity type, got %v", body.Fields["ENTITY_TYPE"])
		}
		if body.Fields["AUTHOR_ID"] != float64(7) {
			t.Errorf("Expected author 7, got %v", body.Fields["AUTHOR_ID"])
		}
		io.WriteString(w, `{"result":99}`)
	})

	if err := client.AddTimelineComment(context.Background(), 42, "Document signed"); err != nil {
		t.Fatalf("AddTimelineComment failed: %v", err)
	}
}

func TestCallErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "api error", status: http.StatusBadRequest, body: `{"error":"NOT_FOUND","error_description":"Item not found"}`},
		{name: "server error", status: http.StatusInternalServerError, body: `{}`},
		{name: "not json", status: http.StatusOK, body: `<html>`},
		{name: "no file id", status: http.StatusOK, body: `{"result":{"item":{"ufCrm6Documents":[]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			if _, err := client.AttachDocument(context.Background(), 1, "a.pdf", nil); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestParsePipeline(t *testing.T) {
	p, err := ParsePipeline([]byte(testPipeline))
	if err != nil {
		t.Fatalf("ParsePipeline failed: %v", err)
	}
	if p.DocumentsField() != "ufCrm6Documents" || p.AuthorID() != 7 {
		t.Errorf("Unexpected pipeline %+v", p)
	}
	if p.EntityType() != "dynamic_1054" {
		t.Errorf("Expected derived entity type, got %s", p.EntityType())
	}

	if _, err := ParsePipeline([]byte("documents_field: x")); err == nil {
		t.Error("Expected error without entity type id")
	}
	if _, err := ParsePipeline([]byte("entity_type_id: [")); err == nil {
		t.Error("Expected parse error")
	}
}

func TestLoadPipelineExampleFile(t *testing.T) {
	p, err := LoadPipeline("../../config/pipeline.yaml")
	if err != nil {
		t.Fatalf("LoadPipeline failed: %v", err)
	}
	if p.EntityTypeID() != 1054 {
		t.Errorf("Expected entity type 1054, got %d", p.EntityTypeID())
	}
}
