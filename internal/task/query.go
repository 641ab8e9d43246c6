package task

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/task/entity"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	defaultSort  = "-" + entity.SortCreatedAt
)

var sortable = map[string]bool{
	entity.SortCreatedAt: true,
	entity.SortUpdatedAt: true,
	entity.SortDueDate:   true,
	entity.SortTitle:     true,
	entity.SortStatus:    true,
	entity.SortPriority:  true,
}

// ListParams are the raw list query parameters after type conversion.
type ListParams struct {
	Search   string `query:"search" validate:"max=100"`
	Status   string `query:"status" validate:"omitempty,oneof=pending in-progress completed"`
	Priority string `query:"priority" validate:"omitempty,oneof=low medium high"`
	Tags     string `query:"tags"`
	Page     int    `query:"page" validate:"min=1"`
	Limit    int    `query:"limit" validate:"min=1,max=100"`
	Sort     string `query:"sort"`
}

var listMessages = apperr.Messages{
	"search":   "Search query too long",
	"status":   "Invalid status",
	"priority": "Invalid priority",
	"page":     "Page must be a positive integer",
	"limit":    "Limit must be between 1 and 100",
}

// ParseListParams reads the list parameters from a query string. Numbers
// that do not parse are kept as 0 so that validation reports them.
func ParseListParams(v url.Values) ListParams {
	return ListParams{
		Search:   strings.TrimSpace(v.Get("search")),
		Status:   v.Get("status"),
		Priority: v.Get("priority"),
		Tags:     v.Get("tags"),
		Page:     intParam(v, "page", defaultPage),
		Limit:    intParam(v, "limit", defaultLimit),
		Sort:     v.Get("sort"),
	}
}

func intParam(v url.Values, key string, def int) int {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

// Query validates p and builds the store query for userID.
func (p ListParams) Query(userID string) (entity.ListQuery, error) {
	var fields []apperr.FieldError
	if err := apperr.ValidateStruct(p, listMessages); err != nil {
		verr, ok := apperr.As(err)
		if !ok {
			return entity.ListQuery{}, err
		}
		fields = append(fields, verr.Fields...)
	}
	keys, ok := parseSort(p.Sort)
	if !ok {
		fields = append(fields, apperr.FieldError{Field: "sort", Message: "Invalid sort field"})
	}
	if len(fields) > 0 {
		return entity.ListQuery{}, apperr.Validation(fields...)
	}
	return entity.ListQuery{
		UserID:   userID,
		Search:   p.Search,
		Status:   entity.Status(p.Status),
		Priority: entity.Priority(p.Priority),
		Tags:     splitTags(p.Tags),
		Sort:     keys,
		Page:     p.Page,
		Limit:    p.Limit,
	}, nil
}

// parseSort reads keys separated by commas or spaces, "-" marking descending.
// Later repeats of a field are ignored.
func parseSort(s string) ([]entity.SortKey, bool) {
	if strings.TrimSpace(s) == "" {
		s = defaultSort
	}
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	keys := make([]entity.SortKey, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		desc := strings.HasPrefix(f, "-")
		f = strings.TrimPrefix(strings.TrimPrefix(f, "-"), "+")
		if !sortable[f] {
			return nil, false
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		keys = append(keys, entity.SortKey{Field: f, Desc: desc})
	}
	return keys, true
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	tags := entity.NormalizeTags(strings.Split(s, ","))
	if len(tags) == 0 {
		return nil
	}
	return tags
}
