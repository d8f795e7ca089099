package game

import (
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		one, two Card
		want     Outcome
	}{
		{Rock, Scissors, PlayerOneWins},
		{Scissors, Paper, PlayerOneWins},
		{Paper, Rock, PlayerOneWins},
		{Scissors, Rock, PlayerTwoWins},
		{Paper, Scissors, PlayerTwoWins},
		{Rock, Paper, PlayerTwoWins},
		{Rock, Rock, Draw},
		{Paper, Paper, Draw},
		{Scissors, Scissors, Draw},
	}
	for _, tt := range tests {
		if got := Resolve(tt.one, tt.two); got != tt.want {
			t.Errorf("Resolve(%s, %s) = %v, want %v", tt.one, tt.two, got, tt.want)
		}
	}
}

func TestResolveAntisymmetric(t *testing.T) {
	for _, a := range Cards {
		for _, b := range Cards {
			ab, ba := Resolve(a, b), Resolve(b, a)
			switch ab {
			case Draw:
				if ba != Draw {
					t.Errorf("Resolve(%s, %s) = draw but reverse = %v", a, b, ba)
				}
			case PlayerOneWins:
				if ba != PlayerTwoWins {
					t.Errorf("Resolve(%s, %s) = one but reverse = %v", a, b, ba)
				}
			case PlayerTwoWins:
				if ba != PlayerOneWins {
					t.Errorf("Resolve(%s, %s) = two but reverse = %v", a, b, ba)
				}
			}
		}
	}
}

func TestSummary(t *testing.T) {
	if s := Summary(Scissors, Paper); !strings.Contains(s, "cuts") {
		t.Errorf("Summary(Scissors, Paper) = %q, want it to cut", s)
	}
	if s := Summary(Scissors, Rock); s != "Rock crushes Scissors" {
		t.Errorf("Summary(Scissors, Rock) = %q", s)
	}
	if s := Summary(Paper, Paper); !strings.Contains(s, "ties") {
		t.Errorf("Summary(Paper, Paper) = %q, want a tie", s)
	}
}

func TestParseCard(t *testing.T) {
	c, err := ParseCard(" rock ")
	if err != nil || c != Rock {
		t.Fatalf("ParseCard(rock) = %v, %v", c, err)
	}
	if _, err := ParseCard("lizard"); KindOf(err) != KindValidation {
		t.Fatalf("ParseCard(lizard) error kind = %v, want validation", KindOf(err))
	}
}
