package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"team-shortlink/internal/cache"
	"team-shortlink/internal/database"
	"team-shortlink/internal/middleware"
	"team-shortlink/internal/models"
	"team-shortlink/internal/pipeline"
	"team-shortlink/internal/services"
	"team-shortlink/internal/sink"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	router *gin.Engine
	db     *gorm.DB
	queue  *pipeline.Queue
}

func newTestApp(t *testing.T) *testApp {
	db, err := database.Open(sqlite.Open("file:" + t.Name() + "?mode=memory&cache=shared"))
	require.NoError(t, err)

	cacheMgr := cache.New("")
	queue := pipeline.NewQueue(2, 64, 2)
	queue.Start()
	t.Cleanup(queue.Stop)
	pipe := pipeline.New(db, sink.NewGormSink(db), queue, cacheMgr)

	identityService := services.NewIdentityService()
	accessService := services.NewAccessService(db, cacheMgr, time.Minute)
	linkService := services.NewLinkService(db, nil)
	analyticsService := services.NewAnalyticsService(db)

	teamHandler := NewTeamHandler(db, identityService)
	linkHandler := NewLinkHandler(linkService)
	redirectHandler := NewRedirectHandler(linkService, pipe)
	analyticsHandler := NewAnalyticsHandler(analyticsService)

	router := gin.New()
	router.Use(middleware.ValidationMiddleware())

	router.POST("/session", teamHandler.CreateSession)
	router.POST("/register", teamHandler.Register)

	protected := router.Group("/")
	protected.Use(middleware.TeamSession(identityService, accessService))
	protected.POST("/links", linkHandler.Create)
	protected.GET("/links", linkHandler.List)
	protected.PATCH("/links/:domain/:path", linkHandler.Update)
	protected.DELETE("/links/:domain/:path", linkHandler.Delete)
	protected.DELETE("/links/:domain/:path/tags/:tag", linkHandler.RemoveTag)
	protected.GET("/analytics/:domain/:path", analyticsHandler.LinkClicks)

	router.GET("/:path", redirectHandler.Redirect)

	return &testApp{router: router, db: db, queue: queue}
}

func (a *testApp) do(t *testing.T, method, target, host string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if host != "" {
		req.Host = host
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// login registers a fresh team and returns the team and session cookies every
// protected route needs.
func (a *testApp) login(t *testing.T, identity, teamDomain string) []*http.Cookie {
	w := a.do(t, http.MethodPost, "/session", "", gin.H{"identity": identity, "display_name": "Alice"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = a.do(t, http.MethodPost, "/register", "", gin.H{
		"user_name":   "Alice",
		"team_name":   "Testers",
		"team_domain": teamDomain,
	}, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	cookies = append(cookies, w.Result().Cookies()...)
	return cookies
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestProtectedRoutesRequireTeamCookie(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/links", "", gin.H{"url": "http://example.com"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"errors":["bad request, should have team session data"]}`, w.Body.String())
}

func TestProtectedRoutesRejectBadSession(t *testing.T) {
	app := newTestApp(t)

	cookies := []*http.Cookie{
		{Name: middleware.TeamCookie, Value: "testers"},
		{Name: middleware.SessionCookie, Value: "not-a-jwt"},
	}
	w := app.do(t, http.MethodGet, "/links", "", nil, cookies)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"errors":["member identity could not be resolved"]}`, w.Body.String())
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/session", "", gin.H{"identity": "alice@example.com"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()

	w = app.do(t, http.MethodPost, "/register", "", gin.H{
		"user_name":   "Alice",
		"team_name":   "Testers",
		"team_domain": "Bad-Domain",
	}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"errors":["Team Domain is invalid"]}`, w.Body.String())

	w = app.do(t, http.MethodPost, "/register", "", gin.H{
		"user_name":   "Alice",
		"team_name":   "Testers",
		"team_domain": "testers",
	}, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPost, "/register", "", gin.H{
		"user_name":   "Bob",
		"team_name":   "Copycats",
		"team_domain": "testers",
	}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"errors":["Team Domain already used"]}`, w.Body.String())
}

func TestRegisterRequiresSession(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/register", "", gin.H{
		"user_name":   "Alice",
		"team_name":   "Testers",
		"team_domain": "testers",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestShortenAndList(t *testing.T) {
	app := newTestApp(t)
	cookies := app.login(t, "alice@example.com", "testers")

	w := app.do(t, http.MethodPost, "/links", "", gin.H{
		"url":         "http://example.com",
		"domain":      "sho.rt",
		"custom_path": "abc",
	}, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "sho.rt/abc", body["short_url"])
	assert.Equal(t, "http://example.com", body["long_url"])

	w = app.do(t, http.MethodGet, "/links", "", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	list := decodeBody(t, w)
	results := list["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, false, list["more"])
	assert.Nil(t, list["next_cursor"])
}

func TestShortenValidationErrors(t *testing.T) {
	app := newTestApp(t)
	cookies := app.login(t, "alice@example.com", "testers")

	w := app.do(t, http.MethodPost, "/links", "", gin.H{
		"url":    "hoge",
		"domain": "sho.rt",
	}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"errors":["String posted was not valid URL"]}`, w.Body.String())
}

func TestShortenDuplicateCustomPath(t *testing.T) {
	app := newTestApp(t)
	cookies := app.login(t, "alice@example.com", "testers")

	req := gin.H{"url": "http://example.com", "domain": "sho.rt", "custom_path": "abc"}
	w := app.do(t, http.MethodPost, "/links", "", req, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPost, "/links", "", req, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"errors":["The short URL path exists already"]}`, w.Body.String())
}

func TestRedirectSchedulesCapture(t *testing.T) {
	app := newTestApp(t)
	cookies := app.login(t, "alice@example.com", "testers")

	w := app.do(t, http.MethodPost, "/links", "", gin.H{
		"url":         "http://example.com",
		"domain":      "sho.rt",
		"custom_path": "abc",
	}, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/abc?c=promo1", nil)
	req.Host = "sho.rt"
	req.Header.Set("Referer", "https://www.google.com/")
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 11_2_1 like Mac OS X) AppleWebKit/604.4.7 (KHTML, like Gecko) Version/11.0 Mobile/15C153 Safari/604.1")
	req.Header.Set(GeoCountryHeader, "JP")

	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://example.com", rec.Header().Get("Location"))
	assert.Equal(t, int64(1), app.queue.Scheduled())

	// Capture and fan-out both complete in the background.
	require.Eventually(t, func() bool {
		return app.queue.Processed() == 2
	}, 5*time.Second, 10*time.Millisecond)

	var ev models.ClickEvent
	require.NoError(t, app.db.First(&ev).Error)
	assert.Equal(t, "sho.rt_abc", ev.ShortLinkID)
	assert.Equal(t, "testers", ev.TeamID)
	assert.Equal(t, "google", ev.ReferrerName)
	assert.Equal(t, "promo1", ev.CustomCode)
	assert.Equal(t, "JP", ev.LocationCountry)
	assert.Equal(t, "iOS", ev.UserAgentOS)
}

func TestRedirectUnknownPath(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	req.Host = "sho.rt"
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "404 page not found", rec.Body.String())
	assert.Equal(t, int64(0), app.queue.Scheduled())
}

func TestPatchRequiresTagOrMemo(t *testing.T) {
	app := newTestApp(t)
	cookies := app.login(t, "alice@example.com", "testers")

	w := app.do(t, http.MethodPost, "/links", "", gin.H{
		"url":         "http://example.com",
		"domain":      "sho.rt",
		"custom_path": "abc",
	}, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPatch, "/links/sho.rt/abc", "", gin.H{"tag": "", "memo": ""}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"errors":["At least one of Tag and Memo must be set"]}`, w.Body.String())
}

func TestPatchAddsTagAndMemo(t *testing.T) {
	app := newTestApp(t)
	cookies := app.login(t, "alice@example.com", "testers")

	w := app.do(t, http.MethodPost, "/links", "", gin.H{
		"url":         "http://example.com",
		"domain":      "sho.rt",
		"custom_path": "abc",
	}, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPatch, "/links/sho.rt/abc", "", gin.H{"tag": "testtag"}, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, []interface{}{"testtag"}, body["tags"])

	w = app.do(t, http.MethodPatch, "/links/sho.rt/abc", "", gin.H{"memo": "remember this"}, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, "remember this", body["memo"])
	assert.Equal(t, []interface{}{"testtag"}, body["tags"])
}

func TestPatchUnknownLinkIsBadRequest(t *testing.T) {
	app := newTestApp(t)
	cookies := app.login(t, "alice@example.com", "testers")

	w := app.do(t, http.MethodPatch, "/links/sho.rt/nope", "", gin.H{"tag": "testtag"}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"errors":["short URL not found"]}`, w.Body.String())
}

func TestRemoveTag(t *testing.T) {
	app := newTestApp(t)
	cookies := app.login(t, "alice@example.com", "testers")

	w := app.do(t, http.MethodPost, "/links", "", gin.H{
		"url":         "http://example.com",
		"domain":      "sho.rt",
		"custom_path": "abc",
	}, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPatch, "/links/sho.rt/abc", "", gin.H{"tag": "testtag"}, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodDelete, "/links/sho.rt/abc/tags/testtag", "", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, []interface{}{}, body["tags"])

	w = app.do(t, http.MethodDelete, "/links/sho.rt/nope/tags/testtag", "", nil, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteLink(t *testing.T) {
	app := newTestApp(t)
	cookies := app.login(t, "alice@example.com", "testers")

	w := app.do(t, http.MethodPost, "/links", "", gin.H{
		"url":         "http://example.com",
		"domain":      "sho.rt",
		"custom_path": "abc",
	}, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodDelete, "/links/sho.rt/abc", "", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":"the url was deleted"}`, w.Body.String())

	w = app.do(t, http.MethodDelete, "/links/sho.rt/abc", "", nil, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteForeignLink(t *testing.T) {
	app := newTestApp(t)
	owner := app.login(t, "alice@example.com", "testers")
	other := app.login(t, "bob@example.com", "others")

	w := app.do(t, http.MethodPost, "/links", "", gin.H{
		"url":         "http://example.com",
		"domain":      "sho.rt",
		"custom_path": "abc",
	}, owner)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodDelete, "/links/sho.rt/abc", "", nil, other)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"errors":["the short URL belongs to another team"]}`, w.Body.String())
}

func TestAnalyticsGroupsByDay(t *testing.T) {
	app := newTestApp(t)
	cookies := app.login(t, "alice@example.com", "testers")

	w := app.do(t, http.MethodPost, "/links", "", gin.H{
		"url":         "http://example.com",
		"domain":      "sho.rt",
		"custom_path": "abc",
	}, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	day1 := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	events := []models.ClickEvent{
		{ID: "ev-1", ShortLinkID: "sho.rt_abc", TeamID: "testers", CreatedAt: day1},
		{ID: "ev-2", ShortLinkID: "sho.rt_abc", TeamID: "testers", CreatedAt: day2},
		{ID: "ev-3", ShortLinkID: "sho.rt_abc", TeamID: "testers", CreatedAt: day2.Add(time.Hour)},
	}
	for i := range events {
		require.NoError(t, app.db.Create(&events[i]).Error)
	}

	w = app.do(t, http.MethodGet, "/analytics/sho.rt/abc", "", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	results := body["results"].([]interface{})
	require.Len(t, results, 2)

	first := results[0].(map[string]interface{})
	second := results[1].(map[string]interface{})
	assert.Equal(t, "2026-08-29", first["date"])
	assert.Equal(t, float64(1), first["count"])
	assert.Equal(t, "2026-08-30", second["date"])
	assert.Equal(t, float64(2), second["count"])
}

func TestAnalyticsUnknownLink(t *testing.T) {
	app := newTestApp(t)
	cookies := app.login(t, "alice@example.com", "testers")

	w := app.do(t, http.MethodGet, "/analytics/sho.rt/nope", "", nil, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNonJSONContentTypeRejected(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/session", bytes.NewBufferString("identity=alice"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
