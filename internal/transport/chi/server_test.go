package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mkraev/mathnotes/internal/domain"
)

type mockAssistant struct {
	answer      domain.Answer
	queryErr    error
	reindexErr  error
	pageCount   int
	gotQuestion string
}

func (m *mockAssistant) Query(_ context.Context, question string) (domain.Answer, error) {
	m.gotQuestion = question
	return m.answer, m.queryErr
}

func (m *mockAssistant) Reindex(_ context.Context) error {
	return m.reindexErr
}

func (m *mockAssistant) PageCount(_ context.Context) (int, error) {
	return m.pageCount, nil
}

type mockHealth struct {
	err error
}

func (m *mockHealth) Ping(_ context.Context) error { return m.err }

func newTestRouter(a Assistant, h HealthChecker) http.Handler {
	r := chi.NewRouter()
	NewServer(a, h, zap.NewNop()).Routes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleQuery_Success(t *testing.T) {
	assistant := &mockAssistant{answer: domain.Answer{
		Text:     "The derivative of $x^2$ is $2x$.",
		Images:   []string{"imgA", "imgB"},
		Captions: []string{"From calc.pdf, Page 3", "From calc.pdf, Page 4"},
	}}
	router := newTestRouter(assistant, &mockHealth{})

	rec := doJSON(t, router, http.MethodPost, "/api/query", `{"question":"what is the derivative of x^2?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if assistant.gotQuestion != "what is the derivative of x^2?" {
		t.Errorf("question passed through as %q", assistant.gotQuestion)
	}

	var resp struct {
		Answer   string   `json:"answer"`
		Images   []string `json:"images"`
		Captions []string `json:"captions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != assistant.answer.Text {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Images) != 2 || len(resp.Captions) != 2 {
		t.Errorf("images/captions = %d/%d, want 2/2", len(resp.Images), len(resp.Captions))
	}
}

func TestHandleQuery_InvalidBody(t *testing.T) {
	router := newTestRouter(&mockAssistant{}, &mockHealth{})

	rec := doJSON(t, router, http.MethodPost, "/api/query", `{"question": `)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleQuery_EmptyQuestion(t *testing.T) {
	router := newTestRouter(&mockAssistant{}, &mockHealth{})

	rec := doJSON(t, router, http.MethodPost, "/api/query", `{"question":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleQuery_PipelineFailure(t *testing.T) {
	assistant := &mockAssistant{queryErr: errors.New("redis down")}
	router := newTestRouter(assistant, &mockHealth{})

	rec := doJSON(t, router, http.MethodPost, "/api/query", `{"question":"q"}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "redis down") {
		t.Error("internal error details leaked to the client")
	}
}

func TestHandleReindex(t *testing.T) {
	router := newTestRouter(&mockAssistant{pageCount: 42}, &mockHealth{})

	rec := doJSON(t, router, http.MethodPost, "/api/reindex", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Status string `json:"status"`
		Pages  int    `json:"pages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Pages != 42 {
		t.Errorf("response = %+v, want ok/42", resp)
	}
}

func TestHandleReindex_Failure(t *testing.T) {
	router := newTestRouter(&mockAssistant{reindexErr: errors.New("notes dir unreadable")}, &mockHealth{})

	rec := doJSON(t, router, http.MethodPost, "/api/reindex", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	router := newTestRouter(&mockAssistant{}, &mockHealth{})

	rec := doJSON(t, router, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestHandleHealth_StoreDown(t *testing.T) {
	router := newTestRouter(&mockAssistant{}, &mockHealth{err: errors.New("no route to host")})

	rec := doJSON(t, router, http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
