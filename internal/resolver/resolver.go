// Package resolver normalizes loosely-typed station payloads into canonical
// records. The upstream schema mixes Italian and English key names for the
// same concepts; each canonical field is resolved from an ordered alias
// table, first present non-null value wins. Resolution is pure and never
// fails: a missing or mistyped field degrades to an absent field.
package resolver

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/osservaprezzi/fuelwatch/internal/models"
)

var (
	nameAliases    = []string{"name", "description", "nome"}
	companyAliases = []string{"company", "gestore"}
	brandAliases   = []string{"brand", "bandiera", "brandName", "marchio"}
	brandIDAliases = []string{"brandId", "bandieraId", "brand_id"}
	typeAliases    = []string{"stationType", "tipoImpianto", "type"}
	insertAliases  = []string{"insertDate", "insert_date"}
	phoneAliases   = []string{"phone", "telefono"}
	emailAliases   = []string{"email"}
	siteAliases    = []string{"website", "sito"}
	hoursAliases   = []string{"openingHours", "orari", "orario"}

	addressAliases = []string{"address", "indirizzo"}
	streetAliases  = []string{"street", "via"}
	civicAliases   = []string{"civic", "civico"}
	zipAliases     = []string{"zip", "cap"}
	cityAliases    = []string{"city", "municipality", "comune"}
	provAliases    = []string{"prov", "province", "provincia"}

	latAliases = []string{"lat", "latitude", "geoLat", "geolat"}
	lonAliases = []string{"lon", "lng", "longitude", "geoLon", "geolon"}

	serviceListAliases = []string{"services", "servizi"}
	serviceNameAliases = []string{"name", "nome"}
	serviceDescAliases = []string{"description", "descrizione"}

	fuelListAliases = []string{"fuels", "carburanti"}
	fuelNameAliases = []string{"name", "fuel", "description"}
	fuelSelfAliases = []string{"isSelf", "is_self", "self"}
	priceAliases    = []string{"price", "prezzo"}
	validityAliases = []string{"validityDate", "validity_date"}
)

// Resolve maps an arbitrary station payload to a canonical record.
// Deterministic given the same input, no I/O, never panics.
func Resolve(payload map[string]any) models.CanonicalStationRecord {
	rec := models.CanonicalStationRecord{
		Name:            stringField(payload, nameAliases),
		Company:         stringField(payload, companyAliases),
		Brand:           stringField(payload, brandAliases),
		BrandID:         stringField(payload, brandIDAliases),
		StationType:     stringField(payload, typeAliases),
		OpeningHoursRaw: stringField(payload, hoursAliases),
		Contacts: models.Contacts{
			Phone:   stringField(payload, phoneAliases),
			Email:   stringField(payload, emailAliases),
			Website: stringField(payload, siteAliases),
		},
	}

	rec.Address = resolveAddress(payload, rec.Name)
	rec.Coordinates = FindCoordinates(payload)
	rec.InsertDate = timeField(payload, insertAliases)
	rec.Services = resolveServices(payload)
	rec.Fuels = resolveFuels(payload)

	return rec
}

// FindCoordinates resolves latitude and longitude independently from their
// alias lists. If either axis is absent or unparsable the pair is absent.
func FindCoordinates(payload map[string]any) *models.Coordinates {
	lat, latOK := floatField(payload, latAliases)
	lon, lonOK := floatField(payload, lonAliases)
	if !latOK || !lonOK {
		return nil
	}
	return &models.Coordinates{Lat: lat, Lon: lon}
}

// resolveAddress prefers a whole-address alias and otherwise composes one
// from street/civic/zip/city/province parts, e.g. "Via Roma 10, 20100
// Milano (MI)". An empty composition falls back to the display name.
func resolveAddress(payload map[string]any, displayName string) string {
	if addr := stringField(payload, addressAliases); addr != "" {
		return addr
	}

	street := stringField(payload, streetAliases)
	civic := stringField(payload, civicAliases)
	addressPart := street
	if civic != "" {
		if street != "" {
			addressPart = street + " " + civic
		} else {
			addressPart = civic
		}
	}

	var location strings.Builder
	if zip := stringField(payload, zipAliases); zip != "" {
		location.WriteString(zip + " ")
	}
	if city := stringField(payload, cityAliases); city != "" {
		location.WriteString(city)
	}
	if prov := stringField(payload, provAliases); prov != "" {
		location.WriteString(" (" + prov + ")")
	}

	var parts []string
	for _, p := range []string{addressPart, location.String()} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	return displayName
}

// resolveServices normalizes the heterogeneous services list: bare strings
// become name-only services, objects carry an optional description. A
// description-only object still yields a named service.
func resolveServices(payload map[string]any) []models.Service {
	var items []any
	for _, key := range serviceListAliases {
		if v, ok := payload[key].([]any); ok && v != nil {
			items = v
			break
		}
	}

	var services []models.Service
	for _, item := range items {
		switch t := item.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				services = append(services, models.Service{Name: s})
			}
		case map[string]any:
			name := stringField(t, serviceNameAliases)
			desc := stringField(t, serviceDescAliases)
			if name == "" {
				name = desc
				desc = ""
			}
			if name == "" {
				continue
			}
			services = append(services, models.Service{Name: name, Description: desc})
		}
	}
	return services
}

func resolveFuels(payload map[string]any) []models.FuelQuote {
	var items []any
	for _, key := range fuelListAliases {
		if v, ok := payload[key].([]any); ok && v != nil {
			items = v
			break
		}
	}

	quotes := make([]models.FuelQuote, 0, len(items))
	for _, item := range items {
		fuel, ok := item.(map[string]any)
		if !ok {
			continue
		}
		q := models.FuelQuote{
			Name:   stringField(fuel, fuelNameAliases),
			IsSelf: boolField(fuel, fuelSelfAliases),
		}
		if price, ok := floatField(fuel, priceAliases); ok {
			q.Price = &price
		}
		q.ValidityDate = timeField(fuel, validityAliases)
		quotes = append(quotes, q)
	}
	return quotes
}

// StringField resolves a string-like field from an ordered alias list,
// for wire layers that pick individual fields out of loose payloads.
func StringField(payload map[string]any, aliases ...string) string {
	return stringField(payload, aliases)
}

// IntField resolves an integer field from an ordered alias list, tolerant
// of numeric and numeric-string representations.
func IntField(payload map[string]any, aliases ...string) (int, bool) {
	f, ok := floatField(payload, aliases)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// FindQuote returns the first quote matching the (normalized name, isSelf)
// identity key. Upstream data may carry duplicates with the same key; the
// first match wins.
func FindQuote(rec models.CanonicalStationRecord, name string, isSelf bool) *models.FuelQuote {
	for i := range rec.Fuels {
		q := &rec.Fuels[i]
		if strings.EqualFold(q.Name, name) && q.IsSelf == isSelf {
			return q
		}
	}
	return nil
}

// NormalizeName lower-cases a fuel or station name and replaces every
// non-alphanumeric rune with an underscore, for use as an identifier.
func NormalizeName(name string) string {
	if name == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// stringField returns the first alias present with a non-empty value.
// Numeric values are rendered as strings so id-like fields survive the
// upstream's type drift.
func stringField(payload map[string]any, aliases []string) string {
	for _, key := range aliases {
		v, ok := payload[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return formatNumber(t)
		case json.Number:
			return t.String()
		case int:
			return strconv.Itoa(t)
		}
	}
	return ""
}

// floatField returns the first alias holding a numeric or numeric-string
// value. A present but malformed value moves on to the next alias.
func floatField(payload map[string]any, aliases []string) (float64, bool) {
	for _, key := range aliases {
		v, ok := payload[key]
		if !ok || v == nil {
			continue
		}
		if f, ok := toFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// boolField defaults to false when no alias is present.
func boolField(payload map[string]any, aliases []string) bool {
	for _, key := range aliases {
		v, ok := payload[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case bool:
			return t
		case string:
			s := strings.ToLower(strings.TrimSpace(t))
			return s == "true" || s == "1" || s == "yes" || s == "si"
		case float64:
			return t != 0
		case json.Number:
			f, err := t.Float64()
			return err == nil && f != 0
		}
	}
	return false
}

// timeField parses ISO-8601 timestamps and epoch milliseconds.
func timeField(payload map[string]any, aliases []string) *time.Time {
	for _, key := range aliases {
		v, ok := payload[key]
		if !ok || v == nil {
			continue
		}
		if ts := parseTime(v); ts != nil {
			return ts
		}
	}
	return nil
}

func parseTime(v any) *time.Time {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, s); err == nil {
				return &ts
			}
		}
	case float64:
		ts := time.UnixMilli(int64(t))
		return &ts
	case json.Number:
		if ms, err := t.Int64(); err == nil {
			ts := time.UnixMilli(ms)
			return &ts
		}
	}
	return nil
}

// formatNumber renders integral floats without a decimal part so JSON
// numeric ids round-trip as "1234" rather than "1234.000000".
func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
