package mutation

import (
	"errors"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MrSnakeDoc/linkdesk/internal/domain"
)

// schemaValidator applies the `validate` tags of domain.Entry.
type schemaValidator struct {
	v *validator.Validate
}

func newSchemaValidator() *schemaValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report yaml names ("display_name") instead of Go names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &schemaValidator{v: v}
}

func (s *schemaValidator) entry(pos domain.Position, e domain.Entry) []domain.Violation {
	var out []domain.Violation
	add := func(field, reason string) {
		out = append(out, domain.Violation{
			Category:    pos.Category,
			Index:       pos.Index,
			DisplayName: e.DisplayName,
			Field:       field,
			Reason:      reason,
		})
	}

	// Whitespace-only values pass `required`; trim before checking.
	trimmed := domain.Entry{
		DisplayName: strings.TrimSpace(e.DisplayName),
		Aliases:     make([]string, 0, len(e.Aliases)),
		Link:        strings.TrimSpace(e.Link),
	}
	for _, a := range e.Aliases {
		trimmed.Aliases = append(trimmed.Aliases, strings.TrimSpace(a))
	}

	err := s.v.Struct(trimmed)
	var fieldErrs validator.ValidationErrors
	if err != nil && !errors.As(err, &fieldErrs) {
		add("entry", err.Error())
		return out
	}

	linkReported := false
	for _, fe := range fieldErrs {
		switch {
		case fe.Field() == "display_name":
			add("display_name", "is required")
		case fe.Field() == "aliases":
			add("aliases", "needs at least one alias")
		case strings.HasPrefix(fe.Field(), "aliases["):
			add(fe.Field(), "must not be empty")
		case fe.Field() == "link" && fe.Tag() == "required":
			add("link", "is required")
			linkReported = true
		case fe.Field() == "link":
			add("link", "must be an absolute URL")
			linkReported = true
		default:
			add(fe.Field(), "failed "+fe.Tag())
		}
	}

	if !linkReported && trimmed.Link != "" && !isAbsoluteURL(trimmed.Link) {
		add("link", "must be an absolute URL")
	}
	return out
}

// isAbsoluteURL requires a scheme and a host; the `url` tag alone accepts
// opaque forms such as "mailto:x".
func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}
