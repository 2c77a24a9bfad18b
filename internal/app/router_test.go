package app

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wishlist/internal/model"
	"wishlist/internal/repository/repotest"
	"wishlist/internal/service"
	"wishlist/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testServer struct {
	engine *gin.Engine
	store  *repotest.Store
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repotest.NewStore()
	invalidator := service.NewViewInvalidator(nil, nil)
	notifications := service.NewNotificationService(store.Notifications(), nil, nil, invalidator)
	friendships := service.NewFriendshipService(store.Friendships(), store.Users(), store, notifications, invalidator)

	r := gin.New()
	r.Use(corsMiddleware("http://client.test"))
	RegisterRoutes(r, Services{
		Auth:         service.NewAuthService(store.Users(), testSecret, time.Hour),
		Profile:      service.NewProfileService(store.Users(), store.Friendships(), nil, invalidator),
		Friendship:   friendships,
		Notification: notifications,
		List:         service.NewListService(store.Lists(), store.Users(), friendships, invalidator),
		Wish:         service.NewWishService(store.Wishes(), store.Lists(), nil, invalidator),
	}, testSecret)

	return &testServer{engine: r, store: store}
}

func tokenFor(t *testing.T, user *model.User) string {
	t.Helper()
	token, err := util.GenerateToken(user.ID, user.Email, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func TestRegisterLoginAndMe(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name":     "Alice",
		"email":    "Alice@Example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)

	var auth service.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &auth))
	assert.NotEmpty(t, auth.Token)
	assert.Equal(t, "alice@example.com", auth.User.Email)

	w, env = s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name":     "Alice Again",
		"email":    "alice@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "User with this email already exists.", env.Error)

	w, env = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Invalid email or password", env.Error)

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/auth/me", auth.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me model.UserSummary
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, auth.User.ID, me.ID)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/friendships/friends", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authorization header required", env.Error)

	w, _ = s.do(t, http.MethodGet, "/api/v1/notifications", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", env.Error)
}

func TestFriendRequestLifecycle(t *testing.T) {
	s := newTestServer(t)
	alice := s.store.AddUser("Alice", "alice@example.com")
	bob := s.store.AddUser("Bob", "bob@example.com")
	aliceToken, bobToken := tokenFor(t, alice), tokenFor(t, bob)

	w, env := s.do(t, http.MethodPost, "/api/v1/friendships/request", aliceToken, gin.H{"receiver_id": bob.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sent struct {
		Friendship model.Friendship `json:"friendship"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sent))
	assert.Equal(t, model.FriendshipStatusPending, sent.Friendship.Status)

	w, env = s.do(t, http.MethodPost, "/api/v1/friendships/request", aliceToken, gin.H{"receiver_id": bob.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "You already sent a friend request to this user", env.Error)

	w, env = s.do(t, http.MethodPost, "/api/v1/friendships/request", bobToken, gin.H{"receiver_id": alice.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "This user already sent you a friend request", env.Error)

	w, env = s.do(t, http.MethodGet, "/api/v1/friendships/status/"+bob.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status service.FriendshipStatusResult
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, model.RelationPending, status.Status)

	w, env = s.do(t, http.MethodPost, "/api/v1/friendships/"+sent.Friendship.ID+"/accept", aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You can only respond to requests sent to you", env.Error)

	w, env = s.do(t, http.MethodGet, "/api/v1/notifications/unread/count", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":1}`, string(env.Data))

	w, _ = s.do(t, http.MethodPost, "/api/v1/friendships/"+sent.Friendship.ID+"/accept", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/friendships/"+sent.Friendship.ID+"/decline", bobToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "This friend request is no longer pending", env.Error)

	w, env = s.do(t, http.MethodGet, "/api/v1/friendships/friends", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var friends struct {
		Friends []model.UserSummary `json:"friends"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &friends))
	require.Len(t, friends.Friends, 1)
	assert.Equal(t, bob.ID, friends.Friends[0].ID)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/friendships/friends/"+bob.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/friends/"+bob.ID, aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Friend not found", env.Error)
}

func TestSendFriendRequestToSelf(t *testing.T) {
	s := newTestServer(t)
	alice := s.store.AddUser("Alice", "alice@example.com")

	w, env := s.do(t, http.MethodPost, "/api/v1/friendships/request", tokenFor(t, alice), gin.H{"receiver_id": alice.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You cannot send a friend request to yourself", env.Error)
}

func TestSearchUsers(t *testing.T) {
	s := newTestServer(t)
	alice := s.store.AddUser("Alice", "alice@example.com")
	bob := s.store.AddUser("Bob", "bob@example.com")
	s.store.AddFriendship(bob.ID, alice.ID, model.FriendshipStatusPending)
	token := tokenFor(t, alice)

	w, env := s.do(t, http.MethodGet, "/api/v1/users/search?q=b", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Search query must be at least 2 characters", env.Error)

	w, env = s.do(t, http.MethodGet, "/api/v1/users/search?q=bob", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var found struct {
		Users []service.UserSearchResult `json:"users"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &found))
	require.Len(t, found.Users, 1)
	assert.Equal(t, bob.ID, found.Users[0].ID)
	assert.Equal(t, model.RelationReceivedPending, found.Users[0].Status)
}

func TestInternalErrorsHideCause(t *testing.T) {
	s := newTestServer(t)
	alice := s.store.AddUser("Alice", "alice@example.com")
	s.store.Fail["users.Search"] = repotest.ErrInjected

	w, env := s.do(t, http.MethodGet, "/api/v1/users/search?q=bob", tokenFor(t, alice), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to search users", env.Error)
	assert.NotContains(t, w.Body.String(), "injected")
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	s := newTestServer(t)
	alice := s.store.AddUser("Alice", "alice@example.com")
	token := tokenFor(t, alice)

	w, env := s.do(t, http.MethodPost, "/api/v1/friendships/request", token, gin.H{"receiver_id": "bob"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", env.Error)

	w, env = s.do(t, http.MethodPost, "/api/v1/friendships/missing/accept", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Friend request not found", env.Error)

	w, _ = s.do(t, http.MethodPut, "/api/v1/notifications/missing/read", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/public/lists/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotificationEndpoints(t *testing.T) {
	s := newTestServer(t)
	alice := s.store.AddUser("Alice", "alice@example.com")
	bob := s.store.AddUser("Bob", "bob@example.com")
	carol := s.store.AddUser("Carol", "carol@example.com")
	bobToken := tokenFor(t, bob)

	s.do(t, http.MethodPost, "/api/v1/friendships/request", tokenFor(t, alice), gin.H{"receiver_id": bob.ID})
	s.do(t, http.MethodPost, "/api/v1/friendships/request", tokenFor(t, carol), gin.H{"receiver_id": bob.ID})

	w, env := s.do(t, http.MethodGet, "/api/v1/notifications?limit=1", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Notifications []model.Notification `json:"notifications"`
		Limit         int                  `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, carol.ID, page.Notifications[0].NotifierID)

	w, _ = s.do(t, http.MethodPut, "/api/v1/notifications/"+page.Notifications[0].ID+"/read", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, env = s.do(t, http.MethodGet, "/api/v1/notifications/unread/count", bobToken, nil)
	assert.JSONEq(t, `{"count":1}`, string(env.Data))

	w, _ = s.do(t, http.MethodPut, "/api/v1/notifications/read-all", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, env = s.do(t, http.MethodGet, "/api/v1/notifications/unread/count", bobToken, nil)
	assert.JSONEq(t, `{"count":0}`, string(env.Data))

	w, _ = s.do(t, http.MethodDelete, "/api/v1/notifications", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, env = s.do(t, http.MethodGet, "/api/v1/notifications", bobToken, nil)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Empty(t, page.Notifications)
}

func TestNotificationPagingReportsEffectiveValues(t *testing.T) {
	s := newTestServer(t)
	bobToken := tokenFor(t, s.store.AddUser("Bob", "bob@example.com"))

	var page struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	}
	w, env := s.do(t, http.MethodGet, "/api/v1/notifications?limit=1000&offset=-5", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 100, page.Limit)
	assert.Zero(t, page.Offset)

	w, env = s.do(t, http.MethodGet, "/api/v1/notifications?limit=abc", bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "limit must be an integer", env.Error)

	w, env = s.do(t, http.MethodGet, "/api/v1/notifications?offset=1.5", bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "offset must be an integer", env.Error)
}

func TestListsAndWishes(t *testing.T) {
	s := newTestServer(t)
	alice := s.store.AddUser("Alice", "alice@example.com")
	bob := s.store.AddUser("Bob", "bob@example.com")
	aliceToken, bobToken := tokenFor(t, alice), tokenFor(t, bob)

	w, env := s.do(t, http.MethodPost, "/api/v1/lists", aliceToken, gin.H{"name": "Birthday", "visibility": "private"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var list model.List
	require.NoError(t, json.Unmarshal(env.Data, &list))

	w, env = s.do(t, http.MethodPost, "/api/v1/lists/"+list.ID+"/wishes", aliceToken, gin.H{
		"title":      "Headphones",
		"desire_lvl": 4,
		"price":      120,
		"currency":   "usd",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var wish model.Wish
	require.NoError(t, json.Unmarshal(env.Data, &wish))
	assert.Equal(t, "USD", wish.Currency)

	w, env = s.do(t, http.MethodPost, "/api/v1/lists/"+list.ID+"/wishes", aliceToken, gin.H{
		"title":      "X",
		"desire_lvl": 4,
		"currency":   "usd",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "title must be at least 2 characters", env.Error)

	w, env = s.do(t, http.MethodPut, "/api/v1/wishes/"+wish.ID, bobToken, gin.H{
		"title":      "Stolen",
		"desire_lvl": 1,
		"currency":   "EUR",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You do not have access to this wish", env.Error)

	w, env = s.do(t, http.MethodPost, "/api/v1/wishes/"+wish.ID+"/fulfilled", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &wish))
	assert.True(t, wish.Fulfilled)

	// private lists read as missing through the public link
	w, env = s.do(t, http.MethodGet, "/api/v1/public/lists/"+list.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "List not found", env.Error)

	w, _ = s.do(t, http.MethodPut, "/api/v1/lists/"+list.ID, aliceToken, gin.H{"name": "Birthday", "visibility": "public"})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/public/lists/"+list.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view service.ListView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.NotNil(t, view.Owner)
	assert.Equal(t, alice.ID, view.Owner.ID)
	assert.Len(t, view.Wishes, 1)

	w, _ = s.do(t, http.MethodGet, "/api/v1/friends/"+alice.ID+"/lists", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.store.AddFriendship(alice.ID, bob.ID, model.FriendshipStatusAccepted)
	w, env = s.do(t, http.MethodGet, "/api/v1/friends/"+alice.ID+"/lists", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var friendLists struct {
		Lists []model.List `json:"lists"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &friendLists))
	require.Len(t, friendLists.Lists, 1)

	w, _ = s.do(t, http.MethodGet, "/api/v1/friends/"+alice.ID+"/lists/"+list.ID, bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/lists/"+list.ID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/lists/"+list.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/v1/lists/"+list.ID, aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadAvatarRequiresFile(t *testing.T) {
	s := newTestServer(t)
	alice := s.store.AddUser("Alice", "alice@example.com")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no image here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/profile/avatar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, alice))
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Image file is required")
}

func TestUploadAvatarWithoutStorage(t *testing.T) {
	s := newTestServer(t)
	alice := s.store.AddUser("Alice", "alice@example.com")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("not really a png"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/profile/avatar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, alice))
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Image storage is not configured")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/lists", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/lists", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, "http://client.test", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusForKinds(t *testing.T) {
	cases := map[service.ErrorKind]int{
		service.KindUnauthenticated: http.StatusUnauthorized,
		service.KindForbidden:       http.StatusForbidden,
		service.KindNotFound:        http.StatusNotFound,
		service.KindInvalidState:    http.StatusConflict,
		service.KindValidation:      http.StatusBadRequest,
		service.KindInternal:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, statusFor(kind), kind.String())
	}
}
