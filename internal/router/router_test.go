package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/student-registry/internal/config"
	"github.com/stemsi/student-registry/internal/handler"
	"github.com/stemsi/student-registry/internal/model"
	"github.com/stemsi/student-registry/internal/repository"
	"github.com/stemsi/student-registry/internal/service"
	"github.com/stemsi/student-registry/internal/session"
	"github.com/stemsi/student-registry/internal/validator"
	ws "github.com/stemsi/student-registry/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	engine *gin.Engine
	store  *repository.MemoryStore
	hub    *ws.Hub
}

// serverOptions swaps pieces of the default test wiring.
type serverOptions struct {
	students repository.StudentStore
	sessions session.Store
	config   func(*config.Config)
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWith(t, serverOptions{})
}

func newTestServerWith(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	validator.Setup()

	cfg := &config.Config{
		GinMode:             gin.TestMode,
		SessionSecret:       "router-test-secret",
		SessionTTL:          time.Hour,
		BcryptCost:          bcrypt.MinCost,
		SeedAdminUsername:   "hukri",
		SeedAdminPassword:   "hukri0354",
		LoginRateLimit:      1000,
		RegisterRateLimit:   1000,
		CompressionMinBytes: 1024,
	}
	if opts.config != nil {
		opts.config(cfg)
	}
	log := zerolog.Nop()

	store := repository.NewMemoryStore()
	var students repository.StudentStore = store
	if opts.students != nil {
		students = opts.students
	}
	var sessions session.Store = session.NewMemoryStore()
	if opts.sessions != nil {
		sessions = opts.sessions
	}

	authService, err := service.NewAuthService(cfg, store, sessions)
	require.NoError(t, err)
	_, err = authService.EnsureSeedAdmin(context.Background())
	require.NoError(t, err)

	hub := ws.NewHub(8, log)
	studentService := service.NewStudentService(students, hub, cfg.StrictClassLabels)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	engine := SetupRouter(ctx, authService, &Handlers{
		Auth:    handler.NewAuthHandler(authService, cfg, log),
		Student: handler.NewStudentHandler(studentService, log),
		WS:      handler.NewWSHandler(hub, authService, cfg.WSSessionCheckInterval, log, nil),
		System:  handler.NewSystemHandler(nil, log),
	}, cfg, log)

	return &testServer{engine: engine, store: store, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/login", `{"username":"`+username+`","password":"`+password+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var body map[string]any
	decodeBody(t, w, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestAdminScenario(t *testing.T) {
	s := newTestServer(t)

	// Anonymous listing is refused before the store is read.
	w := s.do(t, http.MethodGet, "/api/students", "", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"message":"Unauthorized access","code":"FORBIDDEN"}`, w.Body.String())

	// Wrong password gets the generic failure.
	w = s.do(t, http.MethodPost, "/api/login", `{"username":"hukri","password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	unknown := s.do(t, http.MethodPost, "/api/login", `{"username":"ghost","password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, w.Body.String(), unknown.Body.String())

	token := s.login(t, "hukri", "hukri0354")

	w = s.do(t, http.MethodGet, "/api/students", "", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	for _, body := range []string{
		`{"name":"Maya","age":14,"gender":"Female","class":"Class 3"}`,
		`{"name":"Adam","age":"10","gender":"Male","class":"Class 1"}`,
	} {
		w = s.do(t, http.MethodPost, "/api/students", body, "")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/students", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.Student
	decodeBody(t, w, &list)
	require.Len(t, list, 2)
	assert.Equal(t, "Maya", list[0].Name)
	assert.Equal(t, "Adam", list[1].Name)
	assert.Less(t, list[0].ID, list[1].ID)

	w = s.do(t, http.MethodGet, "/api/user", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	var me model.AccountView
	decodeBody(t, w, &me)
	assert.Equal(t, model.RoleAdmin, me.Role)

	// Logout ends the session; the token now behaves as anonymous.
	w = s.do(t, http.MethodPost, "/api/logout", "", token)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/students", "", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodPost, "/api/logout", "", token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin_SetsCookie(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/login", `{"username":"hukri","password":"hukri0354"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	req.AddCookie(cookies[0])
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserRoleIsForbidden(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/register", `{"username":"margo","password":"password123","role":"admin"}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view model.AccountView
	decodeBody(t, w, &view)
	assert.Equal(t, model.RoleUser, view.Role)

	w = s.do(t, http.MethodPost, "/api/register", `{"username":"margo","password":"password123"}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	token := s.login(t, "margo", "password123")
	for _, path := range []string{"/api/students", "/api/students/query", "/api/students/1"} {
		w = s.do(t, http.MethodGet, path, "", token)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}
	w = s.do(t, http.MethodPost, "/api/accounts", `{"username":"eve","password":"password123","role":"admin"}`, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCurrentUser_Anonymous(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/user", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateAccount_Admin(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "hukri", "hukri0354")

	w := s.do(t, http.MethodPost, "/api/accounts", `{"username":"second","password":"password123","role":"admin"}`, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/accounts", `{"username":"third","password":"password123","role":"root"}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.login(t, "second", "password123")
}

func TestCreateStudent_Validation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/students", `{"name":"Ann","age":3,"gender":"Female","class":"Class 1"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Message string            `json:"message"`
		Code    string            `json:"code"`
		Errors  map[string]string `json:"errors"`
	}
	decodeBody(t, w, &body)
	assert.Equal(t, "Validation failed", body.Message)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, map[string]string{"age": "Age must be at least 5"}, body.Errors)

	list, err := s.store.ListStudents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	for _, bad := range []string{`[1,2]`, `"x"`, `null`, `{"name":"a"} {}`, `{`} {
		w = s.do(t, http.MethodPost, "/api/students", bad, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
		assert.Contains(t, w.Body.String(), "INVALID_PAYLOAD", bad)
	}
}

func TestQueryEndpoint(t *testing.T) {
	s := newTestServer(t)
	for _, body := range []string{
		`{"name":"Maya","age":30,"gender":"Female","class":"Class 3"}`,
		`{"name":"Adam","age":10,"gender":"Male","class":"Class 1"}`,
		`{"name":"Jordan","age":20,"gender":"Other","class":"Class 3"}`,
	} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/students", body, "").Code)
	}
	token := s.login(t, "hukri", "hukri0354")

	w := s.do(t, http.MethodGet, "/api/students/query?class=Class+3&sort=age&dir=desc", "", token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got []model.Student
	decodeBody(t, w, &got)
	require.Len(t, got, 2)
	assert.Equal(t, "Maya", got[0].Name)
	assert.Equal(t, "Jordan", got[1].Name)

	w = s.do(t, http.MethodGet, "/api/students/query?search=AD", "", token)
	decodeBody(t, w, &got)
	require.Len(t, got, 1)
	assert.Equal(t, "Adam", got[0].Name)

	// No sort parameter means name ascending.
	w = s.do(t, http.MethodGet, "/api/students/query", "", token)
	decodeBody(t, w, &got)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Adam", "Jordan", "Maya"}, []string{got[0].Name, got[1].Name, got[2].Name})

	w = s.do(t, http.MethodGet, "/api/students/query?sort=id", "", token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/students/2", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	var one model.Student
	decodeBody(t, w, &one)
	assert.Equal(t, "Adam", one.Name)

	w = s.do(t, http.MethodGet, "/api/students/99", "", token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStudentFeed(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	token := s.login(t, "hukri", "hukri0354")
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/students?token=" + token

	_, resp, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/students", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(ws.RequestEnvelope{Action: ws.ActionPing}))
	var pong ws.PongResponse
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, ws.EventPong, pong.Event)

	require.NoError(t, conn.WriteJSON(ws.RequestEnvelope{Action: "subscribe"}))
	var wsErr ws.ErrorResponse
	require.NoError(t, conn.ReadJSON(&wsErr))
	assert.Equal(t, ws.EventError, wsErr.Event)
	assert.Contains(t, wsErr.Error, "subscribe")

	w := s.do(t, http.MethodPost, "/api/students", `{"name":"Live","age":12,"gender":"Other","class":"Class 7"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	var ev ws.StudentCreatedEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, ws.EventStudentCreated, ev.Event)
	assert.Equal(t, "Live", ev.Student.Name)
}

// internalDetail must never reach a response body.
const internalDetail = "dial tcp 10.0.0.7:5432: password authentication failed for registry"

type brokenStudents struct {
	*repository.MemoryStore
}

func (brokenStudents) CreateStudent(context.Context, *model.Student) error {
	return errors.New(internalDetail)
}

type brokenSessions struct {
	*session.MemoryStore
}

func (brokenSessions) Get(context.Context, string) (*model.Session, error) {
	return nil, errors.New(internalDetail)
}

func TestCreateStudent_StoreFailure(t *testing.T) {
	s := newTestServerWith(t, serverOptions{students: brokenStudents{repository.NewMemoryStore()}})

	w := s.do(t, http.MethodPost, "/api/students", `{"name":"Ann","age":12,"gender":"Female","class":"Class 1"}`, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Internal server error","code":"INTERNAL_ERROR"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password authentication")
}

func TestLoadSession_StoreFailure(t *testing.T) {
	s := newTestServerWith(t, serverOptions{sessions: brokenSessions{session.NewMemoryStore()}})
	token := s.login(t, "hukri", "hukri0354")

	w := s.do(t, http.MethodGet, "/api/user", "", token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Internal server error","code":"INTERNAL_ERROR"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password authentication")
}

func TestRegisterHasItsOwnRateLimit(t *testing.T) {
	s := newTestServerWith(t, serverOptions{config: func(cfg *config.Config) {
		cfg.LoginRateLimit = 2
		cfg.RegisterRateLimit = 1
	}})

	w := s.do(t, http.MethodPost, "/api/register", `{"username":"first","password":"password123"}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/register", `{"username":"second","password":"password123"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Registrations do not spend the login budget.
	s.login(t, "first", "password123")
	s.login(t, "hukri", "hukri0354")
	w = s.do(t, http.MethodPost, "/api/login", `{"username":"hukri","password":"hukri0354"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestStudentFeed_ClosesAfterLogout(t *testing.T) {
	s := newTestServerWith(t, serverOptions{config: func(cfg *config.Config) {
		cfg.WSSessionCheckInterval = 20 * time.Millisecond
	}})
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	token := s.login(t, "hukri", "hukri0354")
	conn, _, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/students?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	w := s.do(t, http.MethodPost, "/api/logout", "", token)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, gorillaws.IsCloseError(err, gorillaws.ClosePolicyViolation), err.Error())
	require.Eventually(t, func() bool { return s.hub.Subscribers() == 0 }, time.Second, 10*time.Millisecond)

	// Nothing registered after the logout reaches the closed feed.
	w = s.do(t, http.MethodPost, "/api/students", `{"name":"Late","age":12,"gender":"Other","class":"Class 7"}`, "")
	assert.Equal(t, http.StatusCreated, w.Code)
}
