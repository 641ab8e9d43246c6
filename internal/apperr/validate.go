package apperr

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Messages maps "<json field>.<tag>" to the message reported for that failure.
// "<json field>" alone is the fallback for any tag on that field.
type Messages map[string]string

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the process-wide validator, reporting fields by their JSON
// (or query) name.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, key := range []string{"json", "query"} {
				name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
		validate = v
	})
	return validate
}

// ValidateStruct runs the struct tags on cmd and converts failures into a
// validation *Error using msgs. Any other error is returned unchanged.
func ValidateStruct(cmd any, msgs Messages) error {
	err := Validator().Struct(cmd)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		name := fieldName(fe)
		fields = append(fields, FieldError{Field: name, Message: msgs.lookup(name, fe.Tag())})
	}
	return Validation(fields...)
}

func (m Messages) lookup(field, tag string) string {
	if msg, ok := m[field+"."+tag]; ok {
		return msg
	}
	if msg, ok := m[field]; ok {
		return msg
	}
	return "Invalid value"
}

// fieldName strips the top-level struct name from the namespace, keeping the
// index for slice elements ("tags[3]" reports as "tags").
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	if i := strings.IndexByte(ns, '['); i >= 0 {
		ns = ns[:i]
	}
	return ns
}
