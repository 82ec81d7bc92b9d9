package access

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"warden/internal/auth"
	"warden/internal/models"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T, db *gorm.DB, e *Engine) (*mux.Router, *auth.Manager) {
	t.Helper()
	sessions := auth.NewManager(db, time.Hour)
	r := mux.NewRouter()
	NewHTTP(e, sessions).RegisterRoutes(r)
	return r, sessions
}

func loginAs(t *testing.T, sessions *auth.Manager, u *models.User) *http.Cookie {
	t.Helper()
	s, err := sessions.Create(u, "10.0.0.9", "test-agent")
	require.NoError(t, err)
	return &http.Cookie{Name: auth.CookieName, Value: s.Token}
}

func doConnect(r *mux.Router, cookie *http.Cookie, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestConnectHandlerStatuses(t *testing.T) {
	db := newTestDB(t)
	e := newTestEngine(t, db)
	r, sessions := newTestServer(t, db, e)

	user := seedUser(t, db, "bob", models.RoleUser)
	cookie := loginAs(t, sessions, user)

	secured := seedDevice(t, db, "lock-1", models.DeviceStatusOnline, "1.0")
	unsecured := seedDevice(t, db, "bulb-1", models.DeviceStatusOnline, "")
	offline := seedDevice(t, db, "cam-1", models.DeviceStatusOffline, "1.0")

	t.Run("unauthenticated", func(t *testing.T) {
		w := doConnect(r, nil, "/device-access/connect/1")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := doConnect(r, cookie, "/device-access/connect/abc")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid device ID", decodeBody(t, w)["message"])
		// кривой id аудита не оставляет
		assert.EqualValues(t, 0, countAttempts(t, db))
	})

	t.Run("not found", func(t *testing.T) {
		w := doConnect(r, cookie, "/device-access/connect/999")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Device not found", decodeBody(t, w)["message"])
	})

	t.Run("offline", func(t *testing.T) {
		w := doConnect(r, cookie, "/device-access/connect/3")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Device is currently offline", decodeBody(t, w)["message"])
		_ = offline
	})

	t.Run("forbidden on secured device", func(t *testing.T) {
		w := doConnect(r, cookie, "/device-access/connect/1")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, false, decodeBody(t, w)["success"])
		_ = secured
	})

	t.Run("allowed on unsecured device", func(t *testing.T) {
		w := doConnect(r, cookie, "/device-access/connect/2")
		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["success"])
		dev, ok := body["device"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, unsecured.Name, dev["name"])
	})
}

func TestDisconnectHandler(t *testing.T) {
	db := newTestDB(t)
	e := newTestEngine(t, db)
	r, sessions := newTestServer(t, db, e)

	user := seedUser(t, db, "bob", models.RoleUser)
	cookie := loginAs(t, sessions, user)
	d := seedDevice(t, db, "bulb-1", models.DeviceStatusOnline, "")

	w := doConnect(r, cookie, "/device-access/disconnect/1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You are not connected to this device", decodeBody(t, w)["message"])

	w = doConnect(r, cookie, "/device-access/connect/1")
	require.Equal(t, http.StatusOK, w.Code)

	w = doConnect(r, cookie, "/device-access/disconnect/1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["success"])
	_ = d
}
