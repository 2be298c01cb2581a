package memory

import "github.com/riskibarqy/matchday/internal/domain/team"

// SeedTeams returns a starter set of popular clubs keyed by their
// football-data.org IDs so a fresh memory deployment has something to pair
// against before the first registration.
func SeedTeams() []team.Team {
	return []team.Team{
		{ID: 57, Name: "Arsenal FC", Short: "Arsenal"},
		{ID: 61, Name: "Chelsea FC", Short: "Chelsea"},
		{ID: 64, Name: "Liverpool FC", Short: "Liverpool"},
		{ID: 65, Name: "Manchester City FC", Short: "Man City"},
		{ID: 66, Name: "Manchester United FC", Short: "Man United"},
		{ID: 81, Name: "FC Barcelona", Short: "Barça"},
		{ID: 86, Name: "Real Madrid CF", Short: "Real Madrid"},
		{ID: 5, Name: "FC Bayern München", Short: "Bayern"},
	}
}
