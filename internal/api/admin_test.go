package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"social_network/internal/db"
	"social_network/internal/domain"
	"social_network/internal/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminLogin(t *testing.T) {
	e := newEnv(t)
	e.user("root", domain.RoleAdmin)
	e.user("alice", domain.RoleUser)

	tests := []struct {
		name     string
		username string
		password string
		status   int
	}{
		{"admin", "root", "password123", http.StatusOK},
		{"member", "alice", "password123", http.StatusForbidden},
		{"bad password", "root", "nope-nope", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := e.do(http.MethodPost, "/admin/login", map[string]any{"username": tc.username, "password": tc.password}, "")
			assert.Equal(t, tc.status, status)
			if tc.status == http.StatusOK {
				assert.NotEmpty(t, body["token"])
			}
		})
	}
}

func TestAdminLogin_SeededAccountWithCapitals(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, db.SeedAdmin(e.db, "Admin", "password123"))

	for _, username := range []string{"Admin", "admin"} {
		status, body := e.do(http.MethodPost, "/admin/login", map[string]any{"username": username, "password": "password123"}, "")
		assert.Equal(t, http.StatusOK, status, username)
		assert.NotEmpty(t, body["token"])
	}
}

func TestAdmin_RequiresAdminSession(t *testing.T) {
	e := newEnv(t)
	_, adminTok := e.user("root", domain.RoleAdmin)
	_, userTok := e.user("alice", domain.RoleUser)

	status, body := e.do(http.MethodGet, "/admin/users", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assertFailure(t, body)

	status, _ = e.do(http.MethodGet, "/admin/users", nil, userTok)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = e.do(http.MethodGet, "/admin/users", nil, adminTok)
	assert.Equal(t, http.StatusOK, status)

	// The session cookie works as well as the header
	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AdminCookie, Value: adminTok})
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdmin_UsersListIsCachedAndInvalidated(t *testing.T) {
	e := newEnv(t, withCache(t))
	root, adminTok := e.user("root", domain.RoleAdmin)
	a := e.wallet("alice", "10")

	status, body := e.do(http.MethodGet, "/admin/users", nil, adminTok)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["cached"])
	users := list(t, body, "users")
	require.Len(t, users, 2)
	assert.Nil(t, users[0].(map[string]any)["wallet"], "admin has no wallet")
	assertDecimal(t, "10", obj(t, users[1].(map[string]any), "wallet")["balance"])

	_, body = e.do(http.MethodGet, "/admin/users", nil, adminTok)
	assert.Equal(t, true, body["cached"])

	// A top-up changes embedded balances
	status, _ = e.do(http.MethodPost, "/api/wallets/add-balance", map[string]any{"walletId": a, "amount": 5}, "")
	require.Equal(t, http.StatusOK, status)
	_, body = e.do(http.MethodGet, "/admin/users", nil, adminTok)
	assert.Equal(t, false, body["cached"])
	assertDecimal(t, "15", obj(t, list(t, body, "users")[1].(map[string]any), "wallet")["balance"])

	status, _ = e.do(http.MethodDelete, "/admin/users/"+itoa(root.ID), nil, adminTok)
	assert.Equal(t, http.StatusBadRequest, status, "admins cannot delete themselves")
}

func TestAdmin_DeleteUserAndPost(t *testing.T) {
	e := newEnv(t)
	_, adminTok := e.user("root", domain.RoleAdmin)
	_, aliceTok := e.user("alice", domain.RoleUser)
	bob, _ := e.user("bob", domain.RoleUser)

	_, body := e.do(http.MethodPost, "/api/posts", map[string]any{"content": "spam"}, aliceTok)
	postID := idOf(t, obj(t, body, "post"))

	status, body := e.do(http.MethodGet, "/admin/posts", nil, adminTok)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, list(t, body, "posts"), 1)

	status, _ = e.do(http.MethodDelete, "/admin/posts/"+itoa(postID), nil, adminTok)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, e.count(&domain.Post{}))

	status, _ = e.do(http.MethodDelete, "/admin/users/"+itoa(bob.ID), nil, adminTok)
	require.Equal(t, http.StatusOK, status)
	status, _ = e.do(http.MethodDelete, "/admin/users/"+itoa(bob.ID), nil, adminTok)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAdmin_TransactionsAndStats(t *testing.T) {
	e := newEnv(t, withCache(t))
	_, adminTok := e.user("root", domain.RoleAdmin)
	a := e.wallet("alice", "10")
	b := e.wallet("bob", "0")
	c := e.wallet("carol", "0")

	_, err := e.ledger.AddBalance(t.Context(), a, dec("20"))
	require.NoError(t, err)
	_, err = e.ledger.Transfer(t.Context(), a, b, dec("4"))
	require.NoError(t, err)
	_, err = e.ledger.Transfer(t.Context(), a, c, dec("1.5"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		query url.Values
		total int
	}{
		{"all", url.Values{}, 3},
		{"by wallet", url.Values{"wallet_id": {b}}, 1},
		{"top-ups", url.Values{"type": {"topup"}}, 1},
		{"transfers", url.Values{"type": {"transfer"}}, 2},
		{"completed", url.Values{"status": {domain.TransactionCompleted}}, 3},
		{"future window", url.Values{"from": {time.Now().UTC().Add(time.Hour).Format(time.RFC3339)}}, 0},
		{"past window", url.Values{"from": {time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)}}, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := e.do(http.MethodGet, "/admin/transactions?"+tc.query.Encode(), nil, adminTok)
			require.Equal(t, http.StatusOK, status)
			assert.EqualValues(t, tc.total, body["total"])
			assert.Len(t, list(t, body, "transactions"), tc.total)
		})
	}

	status, _ := e.do(http.MethodGet, "/admin/transactions?type=refund", nil, adminTok)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = e.do(http.MethodGet, "/admin/transactions?from=yesterday", nil, adminTok)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := e.do(http.MethodGet, "/admin/stats", nil, adminTok)
	require.Equal(t, http.StatusOK, status)
	stats := obj(t, body, "stats")
	assert.EqualValues(t, 4, stats["users"])
	assert.EqualValues(t, 3, stats["wallets"])
	assert.EqualValues(t, 3, stats["transactions"])
	assertDecimal(t, "5.5", stats["volume"])
	assertDecimal(t, "20", stats["topUpVolume"])
	assertDecimal(t, "30", stats["circulating"])
}

func TestAdmin_WalletCreationRefreshesUsersList(t *testing.T) {
	e := newEnv(t, withCache(t))
	_, adminTok := e.user("root", domain.RoleAdmin)
	alice, _ := e.user("alice", domain.RoleUser)

	_, body := e.do(http.MethodGet, "/admin/users", nil, adminTok)
	assert.Nil(t, list(t, body, "users")[1].(map[string]any)["wallet"])
	_, body = e.do(http.MethodGet, "/admin/users", nil, adminTok)
	require.Equal(t, true, body["cached"])

	status, _ := e.do(http.MethodPost, "/api/wallets", map[string]any{"userId": alice.ID}, "")
	require.Equal(t, http.StatusCreated, status)

	_, body = e.do(http.MethodGet, "/admin/users", nil, adminTok)
	assert.Equal(t, false, body["cached"])
	assertDecimal(t, "100", obj(t, list(t, body, "users")[1].(map[string]any), "wallet")["balance"])
}
