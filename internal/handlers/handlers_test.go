package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/challenge-lobby/internal/auth"
	"github.com/mossy-p/challenge-lobby/internal/models"
	"github.com/mossy-p/challenge-lobby/internal/service"
	"github.com/mossy-p/challenge-lobby/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	users  *service.UserService
	tokens *auth.Tokens
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	tokens := auth.NewTokens("test-secret", time.Hour)
	users := service.NewUserService(store.NewMemoryUserStore(), tokens, quiet)
	rooms := service.NewRoomService(store.NewMemoryRoomStore(),
		service.WithLogger(quiet),
		service.WithPublicURL("https://lobby.example"),
	)

	return &testServer{
		router: NewRouter(New(rooms, users, quiet), tokens, []string{"*"}, quiet),
		users:  users,
		tokens: tokens,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) createRoom(t *testing.T, name, creator string, maxPlayers int) string {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/rooms", gin.H{"name": name, "creator": creator, "maxPlayers": maxPlayers}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.CreateRoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()

	require.NoError(t, s.users.EnsureAdmin(context.Background(), service.AdminSeed{
		Username: "root",
		Email:    "root@example.com",
		Password: "hunter22",
	}))
	token, err := s.tokens.Issue("root")
	require.NoError(t, err)
	return token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type roomEnvelope struct {
	Message     string       `json:"message"`
	GameStarted bool         `json:"gameStarted"`
	RoomFull    bool         `json:"roomFull"`
	Room        *models.Room `json:"room"`
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateRoom(t *testing.T) {
	s := newTestServer(t)

	testCases := []struct {
		name    string
		body    gin.H
		status  int
		message string
	}{
		{
			name:   "valid",
			body:   gin.H{"name": "friday", "creator": "alice", "maxPlayers": 4, "startTimer": 30},
			status: http.StatusCreated,
		},
		{
			name:    "missing creator",
			body:    gin.H{"name": "friday", "maxPlayers": 4},
			status:  http.StatusBadRequest,
			message: "Missing required fields",
		},
		{
			name:    "too many players",
			body:    gin.H{"name": "friday", "creator": "alice", "maxPlayers": 40},
			status:  http.StatusBadRequest,
			message: "maxPlayers must be between 2 and 16",
		},
		{
			name:    "damage range inverted",
			body:    gin.H{"name": "friday", "creator": "alice", "maxPlayers": 4, "minDamage": 25, "maxDamage": 15},
			status:  http.StatusBadRequest,
			message: "minDamage must not exceed maxDamage",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/rooms", tc.body, "")
			require.Equal(t, tc.status, w.Code, w.Body.String())

			if tc.message != "" {
				assert.Equal(t, tc.message, decode[roomEnvelope](t, w).Message)
				return
			}
			resp := decode[models.CreateRoomResponse](t, w)
			assert.Len(t, resp.Code, 6)
			require.NotNil(t, resp.Room)
			assert.Equal(t, resp.Code, resp.Room.Code)
			require.Len(t, resp.Room.Players, 1)
			assert.Equal(t, "alice", resp.Room.Players[0].Username)
			assert.Equal(t, 30, resp.Room.AutoStartTime)
		})
	}
}

func TestListAndGetRooms(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/rooms", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	code := s.createRoom(t, "friday", "alice", 4)

	rooms := decode[[]models.Room](t, s.do(t, http.MethodGet, "/api/rooms", nil, ""))
	require.Len(t, rooms, 1)
	assert.Equal(t, code, rooms[0].Code)

	w = s.do(t, http.MethodGet, "/api/rooms/"+code, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "friday", decode[models.Room](t, w).Name)

	w = s.do(t, http.MethodGet, "/api/rooms/NOPE99", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Room not found", decode[roomEnvelope](t, w).Message)
}

func TestJoinRoom(t *testing.T) {
	s := newTestServer(t)
	code := s.createRoom(t, "duel", "alice", 2)

	w := s.do(t, http.MethodPost, "/api/rooms/"+code+"/join", gin.H{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/rooms/"+code+"/join", gin.H{"username": "bob"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	joined := decode[roomEnvelope](t, w)
	assert.True(t, joined.GameStarted, "filling the room starts it")
	assert.True(t, joined.Room.IsStarted)
	_, ok := joined.Room.Challenger()
	assert.True(t, ok)

	w = s.do(t, http.MethodPost, "/api/rooms/"+code+"/join", gin.H{"username": "carol"}, "")
	require.Equal(t, http.StatusForbidden, w.Code)
	rejected := decode[roomEnvelope](t, w)
	assert.True(t, rejected.GameStarted)
	assert.Equal(t, "Game has already started", rejected.Message)

	w = s.do(t, http.MethodPost, "/api/rooms/ZZZZZZ/join", gin.H{"username": "carol"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJoinFullStoppedRoom(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	code := s.createRoom(t, "duel", "alice", 2)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/rooms/"+code+"/join", gin.H{"username": "bob"}, "").Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/admin/rooms/"+code+"/stop", nil, admin).Code)

	w := s.do(t, http.MethodPost, "/api/rooms/"+code+"/join", gin.H{"username": "carol"}, "")
	require.Equal(t, http.StatusForbidden, w.Code)
	resp := decode[roomEnvelope](t, w)
	assert.True(t, resp.RoomFull)
	assert.Equal(t, "Room is full", resp.Message)
}

func TestJoinUsesTokenIdentity(t *testing.T) {
	s := newTestServer(t)
	code := s.createRoom(t, "trio", "alice", 3)

	token, err := s.tokens.Issue("dave")
	require.NoError(t, err)

	w := s.do(t, http.MethodPost, "/api/rooms/"+code+"/join", gin.H{"username": "mallory"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	room := decode[roomEnvelope](t, w).Room
	assert.True(t, room.HasPlayer("dave"))
	assert.False(t, room.HasPlayer("mallory"))

	w = s.do(t, http.MethodPost, "/api/rooms/"+code+"/join", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStartRoom(t *testing.T) {
	s := newTestServer(t)
	code := s.createRoom(t, "quad", "alice", 4)

	w := s.do(t, http.MethodPost, "/api/rooms/"+code+"/start", gin.H{"username": "alice"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code, "one player is not enough")

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/rooms/"+code+"/join", gin.H{"username": "bob"}, "").Code)

	w = s.do(t, http.MethodPost, "/api/rooms/"+code+"/start", gin.H{"username": "eve"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code, "outsiders cannot start")

	w = s.do(t, http.MethodPost, "/api/rooms/"+code+"/start", gin.H{"username": "bob"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[roomEnvelope](t, w)
	assert.Equal(t, "Game started", resp.Message)
	assert.True(t, resp.Room.IsStarted)
	assert.Equal(t, models.PhaseChallenge, resp.Room.Phase)

	w = s.do(t, http.MethodPost, "/api/rooms/"+code+"/start", gin.H{"username": "bob"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.True(t, decode[roomEnvelope](t, w).GameStarted)
}

func TestDeleteRoom(t *testing.T) {
	s := newTestServer(t)
	code := s.createRoom(t, "mine", "alice", 4)

	w := s.do(t, http.MethodDelete, "/api/rooms/"+code, gin.H{"username": "bob"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Only the room creator can delete the room", decode[roomEnvelope](t, w).Message)

	w = s.do(t, http.MethodDelete, "/api/rooms/"+code, gin.H{"username": "alice"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Room deleted successfully", decode[roomEnvelope](t, w).Message)

	w = s.do(t, http.MethodDelete, "/api/rooms/"+code, gin.H{"username": "alice"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReadyChallengeVote(t *testing.T) {
	s := newTestServer(t)
	code := s.createRoom(t, "duel", "alice", 2)

	w := s.do(t, http.MethodPost, "/api/rooms/"+code+"/ready", gin.H{"username": "alice"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/rooms/"+code+"/ready", gin.H{"username": "alice", "ready": true}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[roomEnvelope](t, w).Room.Players[0].Ready)

	w = s.do(t, http.MethodPost, "/api/rooms/"+code+"/join", gin.H{"username": "bob"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	room := decode[roomEnvelope](t, w).Room

	challenger, ok := room.Challenger()
	require.True(t, ok)
	target := "alice"
	if challenger.Username == "alice" {
		target = "bob"
	}

	w = s.do(t, http.MethodPost, "/api/rooms/"+code+"/ready", gin.H{"username": "alice", "ready": false}, "")
	assert.Equal(t, http.StatusConflict, w.Code, "ready is frozen once started")

	w = s.do(t, http.MethodPost, "/api/rooms/"+code+"/challenge", gin.H{"from": target, "to": challenger.Username, "text": "sing", "points": 20}, "")
	assert.Equal(t, http.StatusConflict, w.Code, "only the challenger may challenge")

	w = s.do(t, http.MethodPost, "/api/rooms/"+code+"/challenge", gin.H{"from": challenger.Username, "target": target, "text": "sing a song", "points": 20}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	room = decode[roomEnvelope](t, w).Room
	assert.Equal(t, models.PhaseVoting, room.Phase)

	idx := room.FindPlayer(target)
	require.GreaterOrEqual(t, idx, 0)
	require.Len(t, room.Players[idx].Challenges, 1)
	challengeID := room.Players[idx].Challenges[0].ID

	w = s.do(t, http.MethodPost, "/api/rooms/"+code+"/vote", gin.H{"username": target, "challengeId": challengeID}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/rooms/"+code+"/vote", gin.H{"username": target, "challengeId": challengeID, "vote": true}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	room = decode[roomEnvelope](t, w).Room
	got := room.Players[room.FindPlayer(target)]
	assert.Equal(t, models.ChallengeAccepted, got.Challenges[0].Status)
	assert.Equal(t, 80, got.Health)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	code := s.createRoom(t, "duel", "alice", 2)

	t.Run("body username cannot claim admin", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/admin/rooms/"+code+"/start", gin.H{"username": "alice"}, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Admin access required", decode[roomEnvelope](t, w).Message)
	})

	t.Run("force start", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/admin/rooms/"+code+"/start", nil, admin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.True(t, decode[roomEnvelope](t, w).Room.IsStarted)
	})

	t.Run("join bypasses started game", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/admin/rooms/"+code+"/join", nil, admin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		room := decode[roomEnvelope](t, w).Room
		assert.True(t, room.HasPlayer("root"))
		assert.Len(t, room.Players, 2)
	})

	t.Run("stop", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/admin/rooms/"+code+"/stop", nil, admin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		room := decode[roomEnvelope](t, w).Room
		assert.False(t, room.IsStarted)
		assert.Equal(t, models.PhaseJoining, room.Phase)
	})

	t.Run("delete", func(t *testing.T) {
		w := s.do(t, http.MethodDelete, "/api/admin/rooms/"+code, nil, admin)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/rooms/"+code, nil, "").Code)
	})

	t.Run("missing room", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/admin/rooms/NOPE99/stop", nil, admin)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAccountFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/register", gin.H{"username": "al", "email": "al@example.com", "password": "secret1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "username too short")

	w = s.do(t, http.MethodPost, "/api/register", gin.H{"username": "alice", "email": "alice@example.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "secret1")

	w = s.do(t, http.MethodPost, "/api/register", gin.H{"username": "alice", "email": "other@example.com", "password": "secret1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username or email already exists", decode[roomEnvelope](t, w).Message)

	w = s.do(t, http.MethodPost, "/api/login", gin.H{"username": "alice", "password": "wrong"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/login", gin.H{"username": "alice", "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode[models.LoginResponse](t, w)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, "alice", login.User.Username)
	assert.Empty(t, login.User.Password)

	w = s.do(t, http.MethodPut, "/api/users/settings", gin.H{"newPassword": "another1"}, login.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code, "new password needs the current one")

	w = s.do(t, http.MethodPut, "/api/users/settings", gin.H{"email": "alice@new.example"}, login.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "alice@new.example")

	w = s.do(t, http.MethodPut, "/api/users/settings", gin.H{"username": "ghost", "email": "g@example.com"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListUsers(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)

	w := s.do(t, http.MethodGet, "/api/admin/users", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	plain, err := s.tokens.Issue("alice")
	require.NoError(t, err)
	w = s.do(t, http.MethodGet, "/api/admin/users", nil, plain)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin/users", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := decode[models.UserListResponse](t, w)
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Users, 1)
	assert.True(t, list.Users[0].IsAdmin)
	assert.Empty(t, list.Users[0].Password)
}

func TestRoomQR(t *testing.T) {
	s := newTestServer(t)
	code := s.createRoom(t, "share", "alice", 4)

	w := s.do(t, http.MethodGet, "/api/rooms/"+code+"/qr", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = s.do(t, http.MethodGet, "/api/rooms/NOPE99/qr", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
