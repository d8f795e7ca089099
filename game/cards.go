package game

import (
	"fmt"
	"strings"
)

type Card string

const (
	Rock     Card = "Rock"
	Paper    Card = "Paper"
	Scissors Card = "Scissors"
)

var Cards = []Card{Rock, Paper, Scissors}

type Outcome int

const (
	Draw Outcome = iota
	PlayerOneWins
	PlayerTwoWins
)

func (o Outcome) String() string {
	switch o {
	case PlayerOneWins:
		return "one"
	case PlayerTwoWins:
		return "two"
	default:
		return "draw"
	}
}

// beats maps each card to the one it defeats and the verb used in round summaries.
var beats = map[Card]struct {
	loser Card
	verb  string
}{
	Rock:     {Scissors, "crushes"},
	Scissors: {Paper, "cuts"},
	Paper:    {Rock, "covers"},
}

func (c Card) Valid() bool {
	_, ok := beats[c]
	return ok
}

// ParseCard accepts card names in any case.
func ParseCard(s string) (Card, error) {
	for _, c := range Cards {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", Invalid(fmt.Sprintf("unknown card %q", s))
}

// Resolve decides a single round.
func Resolve(one, two Card) Outcome {
	switch {
	case one == two:
		return Draw
	case beats[one].loser == two:
		return PlayerOneWins
	default:
		return PlayerTwoWins
	}
}

// Summary renders a round as "Rock crushes Scissors", or "Rock ties Rock" on a draw.
func Summary(one, two Card) string {
	switch Resolve(one, two) {
	case PlayerOneWins:
		return fmt.Sprintf("%s %s %s", one, beats[one].verb, two)
	case PlayerTwoWins:
		return fmt.Sprintf("%s %s %s", two, beats[two].verb, one)
	default:
		return fmt.Sprintf("%s ties %s", one, two)
	}
}
