package models

import "time"

// Phase is the room's position in the game flow
type Phase int

const (
	PhaseJoining   Phase = 1
	PhaseChallenge Phase = 2
	PhaseVoting    Phase = 3
)

// RoomStatus mirrors IsStarted for clients that filter on status
type RoomStatus string

const (
	StatusWaiting RoomStatus = "waiting"
	StatusActive  RoomStatus = "active"
)

// Role of a player once the game starts
type Role string

const (
	RolePlayer     Role = "player"
	RoleChallenger Role = "challenger"
)

// ChallengeStatus tracks a challenge through the voting phase
type ChallengeStatus string

const (
	ChallengePending  ChallengeStatus = "pending"
	ChallengeAccepted ChallengeStatus = "accepted"
	ChallengeRejected ChallengeStatus = "rejected"
)

const (
	DefaultHealth        = 100
	DefaultAutoStartTime = 60
	DefaultMinDamage     = 10
	DefaultMaxDamage     = 30

	MinPlayers       = 2
	MaxPlayers       = 16
	MinAutoStartTime = 30
	MaxAutoStartTime = 300
	MinHealthSetting = 50
	MaxHealthSetting = 200
	MinDamageFloor   = 5
	MinDamageCeil    = 50
	MaxDamageFloor   = 10
	MaxDamageCeil    = 100

	// BotPrefix marks usernames created by the browser's bot helper
	BotPrefix = "Bot_"
)

// Settings are the per-room game tunables
type Settings struct {
	MaxHealth int `json:"maxHealth"`
	MinDamage int `json:"minDamage"`
	MaxDamage int `json:"maxDamage"`
}

// Vote is one player's verdict on a challenge
type Vote struct {
	Username string `json:"username"`
	Accept   bool   `json:"accept"`
}

// Challenge is issued by the challenger against another player
type Challenge struct {
	ID     string          `json:"id"`
	From   string          `json:"from"`
	Text   string          `json:"text"`
	Points int             `json:"points"`
	Status ChallengeStatus `json:"status"`
	Votes  []Vote          `json:"votes"`
}

// Player is a member of a room, in join order
type Player struct {
	Username   string      `json:"username"`
	Ready      bool        `json:"ready"`
	Health     int         `json:"health"`
	Role       Role        `json:"role"`
	IsBot      bool        `json:"isBot"`
	Challenges []Challenge `json:"challenges"`
	JoinedAt   time.Time   `json:"joinedAt"`
}

// Room is the document stored per room code
type Room struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"` // Short, shareable room code (e.g., "AB12CD")
	Name          string     `json:"name"`
	MaxPlayers    int        `json:"maxPlayers"`
	Creator       string     `json:"creator"`
	Players       []Player   `json:"players"`
	Phase         Phase      `json:"phase"`
	Status        RoomStatus `json:"status"`
	IsStarted     bool       `json:"isStarted"`
	StartTimer    *time.Time `json:"startTimer"`
	AutoStartTime int        `json:"autoStartTime"`
	Settings      Settings   `json:"settings"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastActivity  time.Time  `json:"lastActivity"`
	Version       int64      `json:"version"`
}

// NewPlayer builds a fresh member entry
func NewPlayer(username string, now time.Time) Player {
	return Player{
		Username:   username,
		Health:     DefaultHealth,
		Role:       RolePlayer,
		IsBot:      len(username) > len(BotPrefix) && username[:len(BotPrefix)] == BotPrefix,
		Challenges: []Challenge{},
		JoinedAt:   now,
	}
}

// FindPlayer returns the index of username in the room, or -1
func (r *Room) FindPlayer(username string) int {
	for i := range r.Players {
		if r.Players[i].Username == username {
			return i
		}
	}
	return -1
}

// HasPlayer reports whether username is a member
func (r *Room) HasPlayer(username string) bool {
	return r.FindPlayer(username) >= 0
}

// Challenger returns the current challenger, if any
func (r *Room) Challenger() (*Player, bool) {
	for i := range r.Players {
		if r.Players[i].Role == RoleChallenger {
			return &r.Players[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy so callers can mutate without aliasing stored state
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	out := *r
	if r.StartTimer != nil {
		t := *r.StartTimer
		out.StartTimer = &t
	}
	out.Players = make([]Player, len(r.Players))
	for i, p := range r.Players {
		cp := p
		cp.Challenges = make([]Challenge, len(p.Challenges))
		for j, c := range p.Challenges {
			cc := c
			cc.Votes = append([]Vote(nil), c.Votes...)
			cp.Challenges[j] = cc
		}
		out.Players[i] = cp
	}
	return &out
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	Name       string `json:"name" binding:"required"`
	MaxPlayers int    `json:"maxPlayers" binding:"required"`
	Creator    string `json:"creator" binding:"required"`
	StartTimer int    `json:"startTimer"`
	MaxHealth  int    `json:"maxHealth"`
	MinDamage  int    `json:"minDamage"`
	MaxDamage  int    `json:"maxDamage"`
}

// CreateRoomResponse is the response for creating a room
type CreateRoomResponse struct {
	Code string `json:"code"`
	Room *Room  `json:"room"`
}

// JoinRoomResponse is the response for a successful join
type JoinRoomResponse struct {
	Message     string `json:"message"`
	GameStarted bool   `json:"gameStarted"`
	Room        *Room  `json:"room"`
}

// UsernameRequest carries the caller for routes that only need identity
type UsernameRequest struct {
	Username string `json:"username"`
}

// ReadyRequest toggles a player's ready flag
type ReadyRequest struct {
	Username string `json:"username"`
	Ready    *bool  `json:"ready"`
}

// ChallengeRequest is sent by the challenger. Bots send "target", the UI sends "to".
type ChallengeRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Target string `json:"target"`
	Text   string `json:"text" binding:"required"`
	Points int    `json:"points" binding:"required"`
}

// VoteRequest is one vote on a challenge
type VoteRequest struct {
	Username    string `json:"username"`
	ChallengeID string `json:"challengeId" binding:"required"`
	Vote        *bool  `json:"vote" binding:"required"`
}
