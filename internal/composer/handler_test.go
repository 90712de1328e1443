package composer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notecards/internal/speech"
	"notecards/internal/toast"
	"notecards/views/models"
)

type testServer struct {
	mux *http.ServeMux
	reg *Registry
	rec *recorder
}

func newTestServer(t *testing.T, recognizer RecognizerFunc, opts ...Option) *testServer {
	t.Helper()
	rec := &recorder{}
	reg := NewRegistry(rec.create, discardLogger(), opts...)
	t.Cleanup(reg.CloseAll)
	h := NewHandler(reg, recognizer, models.SpeechView{Provider: "browser", Language: "pt-BR"}, discardLogger())
	mux := http.NewServeMux()
	h.Register(mux)
	return &testServer{mux: mux, reg: reg, rec: rec}
}

func (s *testServer) do(t *testing.T, method, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

var formHeader = map[string]string{"Content-Type": "application/x-www-form-urlencoded"}

func (s *testServer) open(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/composer", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, s.reg.Len())
	for id := range s.reg.composers {
		return id
	}
	return ""
}

func toastsOf(t *testing.T, rec *httptest.ResponseRecorder) (map[string]json.RawMessage, []toast.Toast) {
	t.Helper()
	hdr := rec.Header().Get("HX-Trigger")
	if hdr == "" {
		return nil, nil
	}
	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(hdr), &payload))
	var toasts []toast.Toast
	if raw, ok := payload[toast.TriggerEvent]; ok {
		require.NoError(t, json.Unmarshal(raw, &toasts))
	}
	return payload, toasts
}

func TestHandlerOpenRendersOnboarding(t *testing.T) {
	s := newTestServer(t, BrowserRecognizer)
	rec := s.do(t, http.MethodPost, "/composer", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "gravando uma nota em áudio")
	assert.Contains(t, body, "utilize apenas texto")
	assert.Contains(t, body, "Salvar nota")
	assert.NotContains(t, body, "<textarea")
	assert.NotContains(t, body, "Gravando (clique p/ interromper)")
}

func TestHandlerTypeAndSave(t *testing.T) {
	s := newTestServer(t, BrowserRecognizer)
	id := s.open(t)

	rec := s.do(t, http.MethodPost, "/composer/"+id+"/editor", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<textarea")

	rec = s.do(t, http.MethodPost, "/composer/"+id+"/content", "content=Hello", formHeader)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodPost, "/composer/"+id+"/save", "content=Hello", formHeader)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Hello"}, s.rec.created)

	payload, toasts := toastsOf(t, rec)
	assert.Contains(t, payload, NotesChangedEvent)
	assert.Equal(t, []toast.Toast{{Level: toast.LevelSuccess, Message: MsgNoteCreated}}, toasts)
	assert.Contains(t, rec.Body.String(), "utilize apenas texto")
}

func TestHandlerClearingContentRestoresOnboarding(t *testing.T) {
	s := newTestServer(t, BrowserRecognizer)
	id := s.open(t)
	s.do(t, http.MethodPost, "/composer/"+id+"/content", "content=x", formHeader)

	rec := s.do(t, http.MethodPost, "/composer/"+id+"/content", "content=", formHeader)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "#composer", rec.Header().Get("HX-Retarget"))
	assert.Contains(t, rec.Body.String(), "utilize apenas texto")
}

func TestHandlerSaveEmpty(t *testing.T) {
	s := newTestServer(t, BrowserRecognizer)
	id := s.open(t)

	rec := s.do(t, http.MethodPost, "/composer/"+id+"/save", "", formHeader)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, s.rec.created)
	payload, toasts := toastsOf(t, rec)
	assert.NotContains(t, payload, NotesChangedEvent)
	assert.Equal(t, []toast.Toast{{Level: toast.LevelError, Message: MsgEmptyContent}}, toasts)
}

func TestHandlerRecordUnsupportedBrowser(t *testing.T) {
	s := newTestServer(t, BrowserRecognizer)
	id := s.open(t)

	rec := s.do(t, http.MethodPost, "/composer/"+id+"/record", "", map[string]string{SpeechSupportedHeader: "false"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	_, toasts := toastsOf(t, rec)
	assert.Equal(t, []toast.Toast{{Level: toast.LevelWarning, Message: MsgNoSpeechAPI}}, toasts)

	c, err := s.reg.Get(id)
	require.NoError(t, err)
	assert.Equal(t, Onboarding, c.Snapshot().Mode)
}

func TestHandlerRecordScenario(t *testing.T) {
	s := newTestServer(t, BrowserRecognizer)
	id := s.open(t)
	supported := map[string]string{SpeechSupportedHeader: "true"}

	rec := s.do(t, http.MethodPost, "/composer/"+id+"/record", "", supported)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Gravando (clique p/ interromper)")
	assert.NotContains(t, body, "Salvar nota")
	assert.Contains(t, body, `data-recording="true"`)

	for _, tt := range []struct{ body, want string }{
		{`{"results":[["Hello "]]}`, "Hello "},
		{`{"results":[["Hello world"]]}`, "Hello world"},
	} {
		rec = s.do(t, http.MethodPost, "/composer/"+id+"/results", tt.body, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var st stateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
		assert.Equal(t, stateResponse{Content: tt.want, Mode: "recording"}, st)
	}

	rec = s.do(t, http.MethodPost, "/composer/"+id+"/stop", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello world</textarea>")
	assert.Contains(t, rec.Body.String(), "Salvar nota")

	rec = s.do(t, http.MethodPost, "/composer/"+id+"/results", `{"results":[["late"]]}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerResultsAppliedInClientOrder(t *testing.T) {
	s := newTestServer(t, BrowserRecognizer)
	id := s.open(t)
	s.do(t, http.MethodPost, "/composer/"+id+"/record", "", map[string]string{SpeechSupportedHeader: "true"})

	// The second event's request overtook the first one.
	rec := s.do(t, http.MethodPost, "/composer/"+id+"/results", `{"seq":2,"results":[["Hello world"]]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/composer/"+id+"/results", `{"seq":1,"results":[["Hello "]]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var st stateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, stateResponse{Content: "Hello world", Mode: "recording"}, st)

	rec = s.do(t, http.MethodPost, "/composer/"+id+"/results", `{"seq":3,"results":[["Hello world!"]]}`, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "Hello world!", st.Content)
}

func TestHandlerDictationKeepsDialogAlive(t *testing.T) {
	s := newTestServer(t, BrowserRecognizer)
	id := s.open(t)
	s.do(t, http.MethodPost, "/composer/"+id+"/record", "", map[string]string{SpeechSupportedHeader: "true"})

	c, err := s.reg.Get(id)
	require.NoError(t, err)
	c.mu.Lock()
	c.lastSeen = time.Now().Add(-20 * time.Minute)
	c.mu.Unlock()

	rec := s.do(t, http.MethodPost, "/composer/"+id+"/results", `{"seq":1,"results":[["still talking"]]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, s.reg.Sweep(10*time.Minute))

	rec = s.do(t, http.MethodPost, "/composer/"+id+"/results", `{"seq":2,"results":[["still talking, more"]]}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerSpeechErrorStopPolicy(t *testing.T) {
	s := newTestServer(t, BrowserRecognizer, WithSpeechErrorPolicy(SpeechErrorStop))
	id := s.open(t)
	s.do(t, http.MethodPost, "/composer/"+id+"/record", "", map[string]string{SpeechSupportedHeader: "true"})

	rec := s.do(t, http.MethodPost, "/composer/"+id+"/speech-error", `{"error":"network"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st stateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "editing", st.Mode)
	_, toasts := toastsOf(t, rec)
	assert.Equal(t, []toast.Toast{{Level: toast.LevelWarning, Message: MsgSpeechStopped}}, toasts)
}

func TestHandlerStaticRecognizer(t *testing.T) {
	s := newTestServer(t, StaticRecognizer(speech.Unavailable{}))
	id := s.open(t)
	rec := s.do(t, http.MethodPost, "/composer/"+id+"/record", "", map[string]string{SpeechSupportedHeader: "true"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlerCloseAndUnknown(t *testing.T) {
	s := newTestServer(t, BrowserRecognizer)
	id := s.open(t)

	rec := s.do(t, http.MethodDelete, "/composer/"+id, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, s.reg.Len())

	rec = s.do(t, http.MethodPost, "/composer/"+id+"/save", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodGet, "/composer/"+id+"/state", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerEscapesContent(t *testing.T) {
	s := newTestServer(t, BrowserRecognizer)
	id := s.open(t)
	s.do(t, http.MethodPost, "/composer/"+id+"/content", "content="+url.QueryEscape("<script>x</script>"), formHeader)

	rec := s.do(t, http.MethodGet, "/composer/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>x</script>")
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
}
