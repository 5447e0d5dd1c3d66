package filters

import "github.com/vulca/torneos/models"

func Games(items []models.Game, search string) []models.Game {
	return Apply(items, search, func(g models.Game) []string {
		return []string{g.Name, deref(g.Description)}
	})
}

type TournamentFilter struct {
	Search string
	Status string
	GameID string
}

func Tournaments(items []models.Tournament, f TournamentFilter) []models.Tournament {
	return Apply(items, f.Search,
		func(t models.Tournament) []string { return []string{t.Name, t.GameName()} },
		Equal(f.Status, func(t models.Tournament) models.TournamentStatus { return t.Status }),
		EqualID(f.GameID, func(t models.Tournament) int { return t.GameID }),
	)
}

type RegistrationFilter struct {
	Search        string
	Status        string
	PaymentStatus string
	PaymentMethod string
	TournamentID  string
}

func Registrations(items []models.Registration, f RegistrationFilter) []models.Registration {
	return Apply(items, f.Search,
		registrationSearchFields,
		Equal(f.Status, func(r models.Registration) models.RegistrationStatus { return r.Status }),
		Equal(f.PaymentStatus, func(r models.Registration) models.PaymentStatus { return r.PaymentStatus }),
		Equal(f.PaymentMethod, func(r models.Registration) models.PaymentMethod { return r.PaymentMethod }),
		EqualID(f.TournamentID, func(r models.Registration) int { return r.TournamentID }),
	)
}

func registrationSearchFields(r models.Registration) []string {
	fields := []string{deref(r.TeamName)}
	if r.User != nil {
		fields = append(fields, r.User.Name, r.User.Email)
	}
	if r.Tournament != nil {
		fields = append(fields, r.Tournament.Name)
	}
	return fields
}

func Users(items []models.User, search string) []models.User {
	return Apply(items, search, func(u models.User) []string {
		return []string{u.Name, u.Email}
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
