package urls

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestPath(t *testing.T) {
	tests := []struct {
		name   string
		route  string
		params Params
		want   string
	}{
		{"collection", GamesIndex, nil, "/api/games"},
		{"item", GamesUpdate, Params{"id": 42}, "/api/games/42"},
		{"nested", RegistrationsPayment, Params{"id": 7}, "/api/registrations/7/payment"},
		{"extra params become query", TournamentsIndex, Params{"status": "ongoing", "game_id": 3}, "/api/tournaments?game_id=3&status=ongoing"},
		{"escaped", TournamentsShow, Params{"id": "a b"}, "/api/tournaments/a%20b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Path(tt.route, tt.params)
			if err != nil {
				t.Fatalf("Path() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Path() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPathErrors(t *testing.T) {
	if _, err := Path("games.nope", nil); !errors.Is(err, ErrUnknownRoute) {
		t.Errorf("unknown route: error = %v", err)
	}
	if _, err := Path(GamesShow, nil); !errors.Is(err, ErrMissingParam) {
		t.Errorf("missing id: error = %v", err)
	}
	if _, err := Path(GamesShow, Params{"id": ""}); !errors.Is(err, ErrMissingParam) {
		t.Errorf("empty id: error = %v", err)
	}
}

func TestTableConsistency(t *testing.T) {
	seen := map[string]string{}
	for _, r := range All() {
		if !strings.HasPrefix(r.Pattern, "/") {
			t.Errorf("%s: pattern %q must be absolute", r.Name, r.Pattern)
		}
		key := r.Method + " " + r.Pattern
		if other, dup := seen[key]; dup {
			t.Errorf("%s and %s share %s", r.Name, other, key)
		}
		seen[key] = r.Name
		if r.Method != http.MethodGet && r.Method != http.MethodPost && r.Method != http.MethodPatch && r.Method != http.MethodDelete {
			t.Errorf("%s: unexpected method %s", r.Name, r.Method)
		}
	}
}
