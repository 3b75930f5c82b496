package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"booknook/internal/config"
	"booknook/internal/domain"
	"booknook/internal/http/handlers"
	applog "booknook/internal/log"
	"booknook/internal/mailer"
	"booknook/internal/media"
	"booknook/internal/repos"
	"booknook/internal/services"
)

const templatesDir = "../../web/templates"

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{BaseURL: "http://books.test"},
		Security: config.SecurityConfig{
			TokenSecret: "token-secret-token-secret-token-secret",
			FlashKey:    "flash-key-flash-key-flash-key-flash-key",
		},
		Store: config.StoreConfig{
			DiscountTieBreak:  "first",
			CancelWindow:      24 * time.Hour,
			PageSize:          12,
			LowStockThreshold: 5,
		},
	}
}

// env is a full web app over a fresh in-memory store.
type env struct {
	t     *testing.T
	ctx   context.Context
	app   *fiber.App
	store *repos.Store
	mail  *mailer.LogMailer
}

func newEnv(t *testing.T, ac handlers.AppConfig) *env {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store := repos.NewStore(db)
	mail := &mailer.LogMailer{Log: zerolog.Nop()}

	deps, err := handlers.NewDeps(store, testConfig(), services.NopPublisher{}, mail, media.NewStore(t.TempDir()))
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	if ac.TemplatesDir == "" {
		ac.TemplatesDir = templatesDir
	}
	return &env{t: t, ctx: context.Background(), app: handlers.NewApp(deps, ac), store: store, mail: mail}
}

func (e *env) user(email string) *domain.User {
	e.t.Helper()
	u, err := e.store.Users.ByEmail(e.ctx, email)
	if err != nil {
		e.t.Fatalf("load %s: %v", email, err)
	}
	return u
}

// session signs the given seeded account in and returns its sid.
func (e *env) session(email string) string {
	e.t.Helper()
	sid := "sid-" + strings.SplitN(email, "@", 2)[0]
	if err := e.store.Users.BindSession(e.ctx, sid, e.user(email).ID); err != nil {
		e.t.Fatalf("bind session: %v", err)
	}
	return sid
}

func (e *env) addBook(title, price string, qty int) int64 {
	e.t.Helper()
	id, err := e.store.Books.Create(e.ctx, domain.Book{
		Title:           title,
		Author:          "Test Author",
		Genre:           "Testing",
		Price:           decimal.RequireFromString(price),
		Quantity:        qty,
		Language:        "English",
		Format:          "Paperback",
		PublicationDate: time.Now().AddDate(-1, 0, 0),
		AddedDate:       time.Now().AddDate(0, 0, -1),
	})
	if err != nil {
		e.t.Fatalf("create book: %v", err)
	}
	return id
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// csrf fetches a page to obtain a token cookie.
func (e *env) csrf() string {
	e.t.Helper()
	resp, err := e.app.Test(httptest.NewRequest(http.MethodGet, "/login", nil))
	if err != nil {
		e.t.Fatal(err)
	}
	tok := cookieValue(resp, "csrf_")
	if tok == "" {
		e.t.Fatal("csrf token missing")
	}
	return tok
}

func (e *env) do(req *http.Request) *http.Response {
	e.t.Helper()
	resp, err := e.app.Test(req, -1)
	if err != nil {
		e.t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	return resp
}

func (e *env) get(path, sid string) *http.Response {
	e.t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	return e.do(req)
}

// post submits a urlencoded form with a valid csrf token attached.
func (e *env) post(path, sid string, form url.Values) *http.Response {
	e.t.Helper()
	tok := e.csrf()
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf", tok)
	return e.postRaw(path, sid, tok, form)
}

// postRaw sends form as is, with cookieTok as the csrf cookie.
func (e *env) postRaw(path, sid, cookieTok string, form url.Values) *http.Response {
	e.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: cookieTok})
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	return e.do(req)
}

// postJSON posts a form the way the page script does, asking for a JSON answer.
func (e *env) postJSON(path, sid string, form url.Values, out any) *http.Response {
	e.t.Helper()
	tok := e.csrf()
	form.Set("csrf", tok)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: tok})
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	resp := e.do(req)
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			e.t.Fatalf("decode json from %s: %v", path, err)
		}
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func document(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

// captureLogs collects the structured lines written while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	buf := &lockedBuf{}
	old := applog.L()
	applog.SetOutput(buf)
	defer applog.Set(old)

	fn()

	buf.mu.Lock()
	defer buf.mu.Unlock()
	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.b.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findAction(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
