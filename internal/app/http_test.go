package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/api/internal/auth"
	"folio/api/internal/config"
	"folio/api/internal/pagetree"
	"folio/api/internal/search"
	"folio/api/internal/store"
	"folio/api/internal/store/storetest"
)

const testSecret = "test-secret"

type testAPI struct {
	server  *httptest.Server
	service *Service
	token   string
}

type fakeUploads struct {
	puts []string
}

func (f *fakeUploads) Put(_ context.Context, workspaceID, pageID, name string, r io.Reader, _ int64, _ string) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	key := workspaceID + "/" + pageID + "/" + name
	f.puts = append(f.puts, key)
	return key, nil
}

func (f *fakeUploads) URL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://objects.example/" + key, nil
}

func newTestAPI(t *testing.T, opts ...HTTPOption) *testAPI {
	t.Helper()
	st := storetest.New(t)
	svc := New(config.Config{DeleteChunkSize: 450}, st)
	tokens := auth.NewTokens(testSecret)
	token, err := tokens.Issue(auth.NewClaims("alice", "Alice", time.Hour, time.Now()))
	require.NoError(t, err)

	opts = append([]HTTPOption{
		WithSearchService(search.NewService(nil, search.NewStoreScan(st), zerolog.Nop())),
	}, opts...)
	server := httptest.NewServer(NewHTTPServer(svc, tokens, "*", opts...).Handler())
	t.Cleanup(server.Close)
	return &testAPI{server: server, service: svc, token: token}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return resp.StatusCode, payload
}

func (a *testAPI) bootstrap(t *testing.T) (workspaceID, homeID string) {
	t.Helper()
	status, payload := a.do(t, http.MethodPost, "/api/bootstrap", nil)
	require.Equal(t, http.StatusOK, status, payload)
	ws := payload["workspace"].(map[string]any)
	page := payload["page"].(map[string]any)
	return ws["id"].(string), page["id"].(string)
}

func rootTitlesFromJSON(payload map[string]any) []string {
	out := []string{}
	roots, _ := payload["roots"].([]any)
	for _, r := range roots {
		out = append(out, r.(map[string]any)["title"].(string))
	}
	return out
}

func TestHealthAndReady(t *testing.T) {
	api := newTestAPI(t)
	api.token = ""

	status, payload := api.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, payload["ok"])

	status, payload = api.do(t, http.MethodGet, "/api/ready", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", payload["status"])
}

func TestRequestsWithoutValidTokenAreRejected(t *testing.T) {
	api := newTestAPI(t)

	api.token = ""
	status, payload := api.do(t, http.MethodGet, "/api/workspaces", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "NOT_AUTHENTICATED", payload["code"])

	api.token = "garbage.token"
	status, payload = api.do(t, http.MethodGet, "/api/workspaces", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "NOT_AUTHENTICATED", payload["code"])

	expired, err := auth.NewTokens(testSecret).Issue(auth.NewClaims("alice", "", -time.Minute, time.Now()))
	require.NoError(t, err)
	api.token = expired
	status, _ = api.do(t, http.MethodGet, "/api/workspaces", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestPageRoutes(t *testing.T) {
	api := newTestAPI(t)
	wsID, homeID := api.bootstrap(t)

	status, payload := api.do(t, http.MethodPost, "/api/workspaces/"+wsID+"/pages", map[string]any{"title": "Draft"})
	require.Equal(t, http.StatusCreated, status, payload)
	draftID := payload["id"].(string)

	status, payload = api.do(t, http.MethodPost, "/api/workspaces/"+wsID+"/pages", map[string]any{"title": "Notes", "parentId": draftID})
	require.Equal(t, http.StatusCreated, status, payload)
	notesID := payload["id"].(string)

	status, payload = api.do(t, http.MethodGet, "/api/workspaces/"+wsID+"/tree", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"Home", "Draft"}, rootTitlesFromJSON(payload))

	status, payload = api.do(t, http.MethodPost, "/api/workspaces/"+wsID+"/pages/"+draftID+"/move", map[string]any{
		"parentId":     notesID,
		"siblingOrder": []string{draftID},
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ILLEGAL_MOVE", payload["code"])

	status, _ = api.do(t, http.MethodPost, "/api/workspaces/"+wsID+"/pages/"+notesID+"/move", map[string]any{"parentId": nil})
	require.Equal(t, http.StatusOK, status)

	status, _ = api.do(t, http.MethodPost, "/api/workspaces/"+wsID+"/pages/"+notesID+"/drop", map[string]any{
		"targetId": homeID,
		"position": "before",
	})
	require.Equal(t, http.StatusOK, status)

	status, payload = api.do(t, http.MethodGet, "/api/workspaces/"+wsID+"/tree", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"Notes", "Home", "Draft"}, rootTitlesFromJSON(payload))

	status, _ = api.do(t, http.MethodPatch, "/api/workspaces/"+wsID+"/pages/"+draftID, map[string]any{"title": "Final"})
	require.Equal(t, http.StatusOK, status)
	status, _ = api.do(t, http.MethodDelete, "/api/workspaces/"+wsID+"/pages/"+draftID, nil)
	require.Equal(t, http.StatusOK, status)

	status, payload = api.do(t, http.MethodGet, "/api/workspaces/"+wsID+"/trash", nil)
	require.Equal(t, http.StatusOK, status)
	items := payload["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Final", items[0].(map[string]any)["title"])

	status, _ = api.do(t, http.MethodPost, "/api/workspaces/"+wsID+"/pages/"+draftID+"/restore", nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = api.do(t, http.MethodDelete, "/api/workspaces/"+wsID+"/pages/"+draftID+"?hard=true", nil)
	require.Equal(t, http.StatusOK, status)

	status, payload = api.do(t, http.MethodPatch, "/api/workspaces/"+wsID+"/pages/"+draftID, map[string]any{"title": "Ghost"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", payload["code"])

	status, payload = api.do(t, http.MethodGet, "/api/workspaces/"+wsID+"/search?q=not", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), payload["total"])
}

func TestBlockRoutes(t *testing.T) {
	uploads := &fakeUploads{}
	api := newTestAPI(t, WithUploads(uploads))
	wsID, homeID := api.bootstrap(t)
	base := "/api/workspaces/" + wsID + "/pages/" + homeID

	status, payload := api.do(t, http.MethodPost, base+"/blocks", map[string]any{"type": "text", "data": map[string]any{"text": "hi"}})
	require.Equal(t, http.StatusCreated, status, payload)
	blockID := payload["id"].(string)

	status, payload = api.do(t, http.MethodPost, base+"/blocks", map[string]any{"type": "hologram"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_ARGUMENT", payload["code"])

	status, _ = api.do(t, http.MethodPatch, base+"/blocks/"+blockID, map[string]any{"data": map[string]any{"text": "bye"}})
	require.Equal(t, http.StatusOK, status)

	req, err := http.NewRequest(http.MethodPost, api.server.URL+base+"/assets?name=cat.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+api.token)
	req.Header.Set("Content-Type", "image/png")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, []string{wsID + "/" + homeID + "/cat.png"}, uploads.puts)

	status, payload = api.do(t, http.MethodGet, base+"/blocks", nil)
	require.Equal(t, http.StatusOK, status)
	items := payload["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "bye", first["data"].(map[string]any)["text"])
	assert.Equal(t, "image", items[1].(map[string]any)["type"])

	status, _ = api.do(t, http.MethodDelete, base+"/blocks/"+blockID, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestWorkspaceRoutes(t *testing.T) {
	api := newTestAPI(t)
	firstID, _ := api.bootstrap(t)

	status, payload := api.do(t, http.MethodDelete, "/api/workspaces/"+firstID, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "LAST_WORKSPACE", payload["code"])

	status, payload = api.do(t, http.MethodPost, "/api/workspaces", map[string]any{"name": "Second"})
	require.Equal(t, http.StatusCreated, status, payload)
	secondID := payload["workspace"].(map[string]any)["id"].(string)

	status, _ = api.do(t, http.MethodPut, "/api/workspaces/order", map[string]any{"ids": []string{secondID, firstID}})
	require.Equal(t, http.StatusOK, status)

	status, payload = api.do(t, http.MethodGet, "/api/workspaces", nil)
	require.Equal(t, http.StatusOK, status)
	items := payload["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, secondID, items[0].(map[string]any)["id"])

	status, payload = api.do(t, http.MethodPost, "/api/workspaces/"+firstID+"/leave", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "OWNER_CANNOT_LEAVE", payload["code"])

	status, _ = api.do(t, http.MethodDelete, "/api/workspaces/"+firstID, nil)
	require.Equal(t, http.StatusOK, status)
	status, payload = api.do(t, http.MethodGet, "/api/workspaces/trash", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, payload["items"], 1)

	status, _ = api.do(t, http.MethodDelete, "/api/workspaces/"+firstID+"?hard=true", nil)
	require.Equal(t, http.StatusOK, status)
	status, payload = api.do(t, http.MethodGet, "/api/workspaces/trash", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, payload["items"], 0)
}

func TestUnknownRoutesAndMethods(t *testing.T) {
	api := newTestAPI(t)
	wsID, _ := api.bootstrap(t)

	status, payload := api.do(t, http.MethodGet, "/api/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", payload["code"])

	status, payload = api.do(t, http.MethodPut, "/api/workspaces", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, "METHOD_NOT_ALLOWED", payload["code"])

	req, err := http.NewRequest(http.MethodPost, api.server.URL+"/api/workspaces/"+wsID+"/pages", strings.NewReader("{"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+api.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLiveTreeStreamsUpdates(t *testing.T) {
	api := newTestAPI(t)
	wsID, _ := api.bootstrap(t)

	url := "ws" + strings.TrimPrefix(api.server.URL, "http") + "/api/workspaces/" + wsID + "/tree/live?access_token=" + api.token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()

	readTree := func() pagetree.Tree {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var tree pagetree.Tree
		require.NoError(t, conn.ReadJSON(&tree))
		return tree
	}

	assert.Equal(t, []string{"Home"}, titles(readTree().Roots))

	_, err = api.service.CreatePage(context.Background(), Actor{UserID: "alice"}, wsID, nil, "Draft")
	require.NoError(t, err)

	var roots []store.Page
	for attempt := 0; attempt < 5; attempt++ {
		roots = readTree().Roots
		if len(roots) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"Home", "Draft"}, titles(roots))
}
