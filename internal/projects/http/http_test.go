package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roshanmishra15/site-builder/internal/auth"
	"github.com/roshanmishra15/site-builder/internal/events"
	"github.com/roshanmishra15/site-builder/internal/llm"
	"github.com/roshanmishra15/site-builder/internal/lock"
	"github.com/roshanmishra15/site-builder/internal/projects/domain"
	"github.com/roshanmishra15/site-builder/internal/projects/memory"
	"github.com/roshanmishra15/site-builder/internal/projects/service"
)

type stubLLM struct {
	generated string
}

func (s *stubLLM) Complete(_ context.Context, p llm.Prompt) (string, error) {
	if strings.Contains(p.System, "HTML") {
		return s.generated, nil
	}
	return "enhanced " + p.User, nil
}

type testEnv struct {
	router  *gin.Engine
	store   *memory.Store
	broker  *events.Local
	llm     *stubLLM
	handler *Handler
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())

	store := memory.NewStore(10)
	stores := service.Stores{
		Projects:     store.Projects(),
		Versions:     store.Versions(),
		Conversation: store.Conversations(),
		Credits:      store.Credits(),
	}
	locker := lock.NewLocal()
	broker := events.NewLocal()
	fake := &stubLLM{generated: "```html\n<div>ok</div>\n```"}

	h := New(Deps{
		Projects:  service.NewProjectService(stores, locker),
		Revisions: service.NewRevisionService(stores, fake, locker, broker, 5, nil),
		Ledger:    service.NewLedgerService(stores, locker, broker, nil),
		Timeline:  service.NewTimelineProjector(stores),
		Events:    broker,
	})

	r := gin.New()
	api := r.Group("/api")
	api.Use(auth.HeaderIdentity())
	private := api.Group("", auth.WithUser(store.Users(), nil))
	h.Register(api.Group("/project"), private.Group("/project"), nil)
	h.RegisterUser(private.Group("/user"))

	return &testEnv{router: r, store: store, broker: broker, llm: fake, handler: h}
}

func (e *testEnv) do(method, path, user, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createProject(t *testing.T, user string) string {
	t.Helper()
	w := e.do(http.MethodPost, "/api/project", user, `{"name":"bakery","initial_prompt":"a bakery site"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Project domain.Project `json:"project"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Project.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestUnauthenticated(t *testing.T) {
	e := setup(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/project/revision/p1"},
		{http.MethodPost, "/api/project/rollback/p1/v1"},
		{http.MethodGet, "/api/project/preview/p1"},
		{http.MethodGet, "/api/project/version/p1/v1"},
		{http.MethodGet, "/api/project/p1"},
		{http.MethodPost, "/api/project/save/p1"},
		{http.MethodDelete, "/api/project/p1"},
		{http.MethodGet, "/api/user/credits"},
	} {
		w := e.do(tc.method, tc.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
		assert.JSONEq(t, `{"message":"Unauthorized"}`, w.Body.String())
	}
}

func TestRevisionFlow(t *testing.T) {
	e := setup(t)
	id := e.createProject(t, "fb-ada")

	w := e.do(http.MethodPost, "/api/project/revision/"+id, "fb-ada", `{"message":"make it pop"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"message":"Changes made successfully"}`, w.Body.String())

	w = e.do(http.MethodGet, "/api/project/preview/"+id, "fb-ada", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":"<div>ok</div>"}`, w.Body.String())

	w = e.do(http.MethodGet, "/api/user/credits", "fb-ada", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"credits":5}`, w.Body.String())

	// Second revision drains the balance to zero; a third is refused.
	w = e.do(http.MethodPost, "/api/project/revision/"+id, "fb-ada", `{"message":"again"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(http.MethodPost, "/api/project/revision/"+id, "fb-ada", `{"message":"once more"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"message":"Add more credits to make changes"}`, w.Body.String())
}

func TestRevisionErrors(t *testing.T) {
	e := setup(t)
	id := e.createProject(t, "fb-ada")

	w := e.do(http.MethodPost, "/api/project/revision/"+id, "fb-ada", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"Please enter a valid prompt"}`, w.Body.String())

	w = e.do(http.MethodPost, "/api/project/revision/"+id, "fb-ada", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/api/project/revision/"+id, "fb-eve", `{"message":"steal"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	e.llm.generated = "   "
	w = e.do(http.MethodPost, "/api/project/revision/"+id, "fb-ada", `{"message":"make it pop"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Code generation failed"}`, w.Body.String())

	w = e.do(http.MethodGet, "/api/user/credits", "fb-ada", "")
	assert.JSONEq(t, `{"credits":10}`, w.Body.String())
}

func TestSaveRollbackAndVersions(t *testing.T) {
	e := setup(t)
	id := e.createProject(t, "fb-ada")

	w := e.do(http.MethodGet, "/api/project/preview/"+id, "fb-ada", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodPost, "/api/project/save/"+id, "fb-ada", `{"code":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"Code is required"}`, w.Body.String())

	w = e.do(http.MethodPost, "/api/project/save/"+id, "fb-ada", `{"code":"<h1>one</h1>"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Project saved successfully"}`, w.Body.String())
	w = e.do(http.MethodPost, "/api/project/save/"+id, "fb-ada", `{"code":"<h1>two</h1>"}`)
	require.Equal(t, http.StatusOK, w.Code)

	versions, err := e.store.Versions().List(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	first := versions[0].ID

	w = e.do(http.MethodGet, "/api/project/version/"+id+"/"+first, "fb-ada", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":"<h1>one</h1>"}`, w.Body.String())

	w = e.do(http.MethodPost, "/api/project/rollback/"+id+"/"+first, "fb-ada", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Rollback successful"}`, w.Body.String())

	w = e.do(http.MethodGet, "/api/project/preview/"+id, "fb-ada", "")
	assert.JSONEq(t, `{"code":"<h1>one</h1>"}`, w.Body.String())

	w = e.do(http.MethodPost, "/api/project/rollback/"+id+"/not-a-version", "fb-ada", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"Version not found"}`, w.Body.String())

	w = e.do(http.MethodPost, "/api/project/rollback/"+id+"/"+first, "fb-eve", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublishing(t *testing.T) {
	e := setup(t)
	id := e.createProject(t, "fb-ada")
	e.do(http.MethodPost, "/api/project/save/"+id, "fb-ada", `{"code":"<p>live</p>"}`)

	w := e.do(http.MethodGet, "/api/project/"+id, "fb-eve", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodGet, "/api/project/published", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"projects":[]}`, w.Body.String())

	w = e.do(http.MethodPatch, "/api/project/publish/"+id, "fb-ada", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPatch, "/api/project/publish/"+id, "fb-ada", `{"is_published":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodGet, "/api/project/"+id, "fb-eve", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":"<p>live</p>"}`, w.Body.String())

	w = e.do(http.MethodGet, "/api/project/published", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	projects := decode(t, w)["projects"].([]any)
	require.Len(t, projects, 1)
	assert.Equal(t, id, projects[0].(map[string]any)["id"])
}

func TestListAndDelete(t *testing.T) {
	e := setup(t)
	id := e.createProject(t, "fb-ada")

	w := e.do(http.MethodPost, "/api/project", "fb-ada", `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, "/api/project", "fb-ada", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["projects"].([]any), 1)

	w = e.do(http.MethodDelete, "/api/project/"+id, "fb-eve", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodDelete, "/api/project/"+id, "fb-ada", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Project deleted successfully"}`, w.Body.String())

	w = e.do(http.MethodGet, "/api/project/preview/"+id, "fb-ada", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimelineView(t *testing.T) {
	e := setup(t)
	id := e.createProject(t, "fb-ada")
	e.do(http.MethodPost, "/api/project/revision/"+id, "fb-ada", `{"message":"make it pop"}`)

	w := e.do(http.MethodGet, "/api/project/timeline/"+id, "fb-ada", "")
	require.Equal(t, http.StatusOK, w.Code)

	var view service.TimelineView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Len(t, view.Items, 5)
	assert.Equal(t, domain.KindConversation, view.Items[0].Kind)
	assert.Equal(t, domain.KindVersion, view.Items[3].Kind)
	assert.True(t, view.Items[3].IsCurrent)
	assert.Contains(t, view.Items[0].HTML, "make it pop")

	w = e.do(http.MethodGet, "/api/project/timeline/"+id, "fb-eve", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamTimeline(t *testing.T) {
	e := setup(t)
	id := e.createProject(t, "fb-ada")

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/project/timeline/"+id+"/stream", nil)
	require.NoError(t, err)
	req.Header.Set("X-User-Id", "fb-ada")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	nextEvent := func() (string, string) {
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && event != "":
				return event, data
			}
		}
	}

	event, _ := nextEvent()
	require.Equal(t, "initial", event)

	w := e.do(http.MethodPost, "/api/project/save/"+id, "fb-ada", `{"code":"<p>streamed</p>"}`)
	require.Equal(t, http.StatusOK, w.Code)

	event, data := nextEvent()
	require.Equal(t, "item", event)
	var entry service.TimelineEntry
	require.NoError(t, json.Unmarshal([]byte(data), &entry))
	assert.Equal(t, domain.KindVersion, entry.Kind)
	assert.True(t, entry.IsCurrent)
	require.NotNil(t, entry.Version)
	assert.Equal(t, "<p>streamed</p>", entry.Version.Code)
}
