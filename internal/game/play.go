package game

import (
	"strings"
	"time"

	"github.com/mossy-p/challenge-lobby/internal/models"
)

const maxChallengeText = 200

// ChallengePoints are the stakes the UI offers
var ChallengePoints = []int{10, 20, 30}

// ChallengeInput describes a new challenge
type ChallengeInput struct {
	ID     string
	From   string
	To     string
	Text   string
	Points int
}

// SetReady flips a member's ready flag while the room is still joining
func SetReady(room *models.Room, username string, ready bool, now time.Time) error {
	if room.IsStarted || room.Phase != models.PhaseJoining {
		return ruleErr("ready can only change before the game starts")
	}
	idx := room.FindPlayer(username)
	if idx < 0 {
		return ruleErr("player is not in this room")
	}
	room.Players[idx].Ready = ready
	room.LastActivity = now
	return nil
}

// IssueChallenge lets the challenger target another player. The room moves
// to voting once every other player has been challenged.
func IssueChallenge(room *models.Room, in ChallengeInput, now time.Time) (*models.Challenge, error) {
	if !room.IsStarted || room.Phase != models.PhaseChallenge {
		return nil, ruleErr("challenges are only accepted during the challenge phase")
	}
	from := room.FindPlayer(in.From)
	if from < 0 || room.Players[from].Role != models.RoleChallenger {
		return nil, ruleErr("only the challenger can issue challenges")
	}
	to := room.FindPlayer(in.To)
	if to < 0 {
		return nil, ruleErr("target is not in this room")
	}
	if to == from {
		return nil, ruleErr("the challenger cannot challenge themselves")
	}
	text := strings.TrimSpace(in.Text)
	if text == "" || len(text) > maxChallengeText {
		return nil, ruleErr("challenge text must be between 1 and 200 characters")
	}
	if !validPoints(in.Points) {
		return nil, ruleErr("points must be one of 10, 20 or 30")
	}

	target := &room.Players[to]
	target.Challenges = append(target.Challenges, models.Challenge{
		ID:     in.ID,
		From:   in.From,
		Text:   text,
		Points: in.Points,
		Status: models.ChallengePending,
		Votes:  []models.Vote{},
	})
	room.LastActivity = now

	if everyoneChallenged(room) {
		room.Phase = models.PhaseVoting
	}
	c := target.Challenges[len(target.Challenges)-1]
	return &c, nil
}

// Vote records one verdict. The challenge resolves once every member except
// its author has voted; accepted challenges damage the target.
func Vote(room *models.Room, voter, challengeID string, accept bool, now time.Time) error {
	if !room.IsStarted || room.Phase != models.PhaseVoting {
		return ruleErr("votes are only accepted during the voting phase")
	}
	if !room.HasPlayer(voter) {
		return ruleErr("player is not in this room")
	}
	target, c := findChallenge(room, challengeID)
	if c == nil {
		return ruleErr("challenge not found")
	}
	if c.Status != models.ChallengePending {
		return ruleErr("challenge already resolved")
	}
	if c.From == voter {
		return ruleErr("authors cannot vote on their own challenge")
	}
	for _, v := range c.Votes {
		if v.Username == voter {
			return ruleErr("already voted on this challenge")
		}
	}

	c.Votes = append(c.Votes, models.Vote{Username: voter, Accept: accept})
	room.LastActivity = now

	eligible := len(room.Players)
	if room.HasPlayer(c.From) {
		eligible--
	}
	if len(c.Votes) < eligible {
		return nil
	}

	accepts := 0
	for _, v := range c.Votes {
		if v.Accept {
			accepts++
		}
	}
	if accepts*2 > len(c.Votes) {
		c.Status = models.ChallengeAccepted
		target.Health -= Damage(room.Settings, c.Points)
		if target.Health < 0 {
			target.Health = 0
		}
	} else {
		c.Status = models.ChallengeRejected
	}
	return nil
}

// Damage clamps challenge points to the room's damage range
func Damage(s models.Settings, points int) int {
	if points < s.MinDamage {
		return s.MinDamage
	}
	if points > s.MaxDamage {
		return s.MaxDamage
	}
	return points
}

func validPoints(p int) bool {
	for _, v := range ChallengePoints {
		if v == p {
			return true
		}
	}
	return false
}

func everyoneChallenged(room *models.Room) bool {
	for _, p := range room.Players {
		if p.Role == models.RoleChallenger {
			continue
		}
		if len(p.Challenges) == 0 {
			return false
		}
	}
	return true
}

func findChallenge(room *models.Room, id string) (*models.Player, *models.Challenge) {
	for i := range room.Players {
		for j := range room.Players[i].Challenges {
			if room.Players[i].Challenges[j].ID == id {
				return &room.Players[i], &room.Players[i].Challenges[j]
			}
		}
	}
	return nil, nil
}
