package handlers

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vulca/torneos/services"
)

// Форматы дат, которые присылают HTML-формы и JSON-клиенты.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// form читает типизированные значения из url.Values, накапливая ошибки по полям.
// Отсутствующий ключ означает "поле не передано", пустая строка означает "очистить".
type form struct {
	values url.Values
	errs   *services.ValidationError
}

func newForm(values url.Values) *form {
	return &form{values: values, errs: services.NewValidationError()}
}

func (f *form) err() error {
	return f.errs.OrNil()
}

func (f *form) has(key string) bool {
	_, ok := f.values[key]
	return ok
}

func (f *form) str(key string) string {
	return f.values.Get(key)
}

func (f *form) optString(key string) *string {
	if !f.has(key) {
		return nil
	}
	v := f.values.Get(key)
	return &v
}

func (f *form) integer(key string) int {
	v := f.optInt(key)
	if v == nil {
		return 0
	}
	return *v
}

func (f *form) optInt(key string) *int {
	raw := strings.TrimSpace(f.values.Get(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		f.errs.Add(key, "Debe ser un número entero.")
		return nil
	}
	return &v
}

func (f *form) optFloat(key string) *float64 {
	raw := strings.TrimSpace(f.values.Get(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		f.errs.Add(key, "Debe ser un número.")
		return nil
	}
	return &v
}

func (f *form) optBool(key string) *bool {
	if !f.has(key) {
		return nil
	}
	var v bool
	switch strings.ToLower(strings.TrimSpace(f.values.Get(key))) {
	case "1", "true", "on", "yes":
		v = true
	case "", "0", "false", "off", "no":
		v = false
	default:
		f.errs.Add(key, "Valor no válido.")
		return nil
	}
	return &v
}

func (f *form) optTime(key string) *time.Time {
	raw := strings.TrimSpace(f.values.Get(key))
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	f.errs.Add(key, "Fecha no válida.")
	return nil
}

func (f *form) timeValue(key string) time.Time {
	if t := f.optTime(key); t != nil {
		return *t
	}
	return time.Time{}
}

// Поля Optional: ключ есть и пустой -> Null, ключ с значением -> Some.

func optionalFloat(f *form, key string) services.Optional[float64] {
	if !f.has(key) {
		return services.Optional[float64]{}
	}
	if v := f.optFloat(key); v != nil {
		return services.Some(*v)
	}
	return services.Null[float64]()
}

func optionalInt(f *form, key string) services.Optional[int] {
	if !f.has(key) {
		return services.Optional[int]{}
	}
	if v := f.optInt(key); v != nil {
		return services.Some(*v)
	}
	return services.Null[int]()
}

func optionalTime(f *form, key string) services.Optional[time.Time] {
	if !f.has(key) {
		return services.Optional[time.Time]{}
	}
	if v := f.optTime(key); v != nil {
		return services.Some(*v)
	}
	return services.Null[time.Time]()
}
