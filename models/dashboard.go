package models

type DashboardStats struct {
	GamesTotal         int `json:"games_total"`
	TournamentsTotal   int `json:"tournaments_total"`
	OpenTournaments    int `json:"open_tournaments"`
	RegistrationsTotal int `json:"registrations_total"`
	PendingPayments    int `json:"pending_payments"`
	UsersTotal         int `json:"users_total"`
}
