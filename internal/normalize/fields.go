package normalize

import (
	"strconv"
	"strings"
)

// object is a lenient view over a decoded JSON object. Provider payloads are
// loosely typed, so every accessor tolerates missing keys and wrong types.
type object map[string]any

func (o object) str(key string) string {
	switch v := o[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func (o object) num(key string) int {
	switch v := o[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	default:
		return 0
	}
}

func (o object) obj(key string) object {
	if m, ok := o[key].(map[string]any); ok {
		return object(m)
	}
	return nil
}

func (o object) list(key string) []object {
	items, _ := o[key].([]any)
	out := make([]object, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, object(m))
		}
	}
	return out
}

func (o object) strings(key string) []string {
	items, _ := o[key].([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func (o object) date(key string) *DateParts {
	d := o.obj(key)
	if d == nil {
		return nil
	}
	return &DateParts{Year: d.num("year"), Month: d.num("month"), Day: d.num("day")}
}

func joinNonEmpty(sep string, vals ...string) string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}

// companySlug extracts "acme" from https://www.linkedin.com/company/acme/.
func companySlug(url string) string {
	const marker = "/company/"
	i := strings.Index(url, marker)
	if i < 0 {
		return ""
	}
	slug := url[i+len(marker):]
	if j := strings.IndexAny(slug, "/?#"); j >= 0 {
		slug = slug[:j]
	}
	return slug
}
