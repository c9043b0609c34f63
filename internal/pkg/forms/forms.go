// Package forms holds the request payloads of the HTML forms and turns
// validator errors into French per-field messages.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a form field name to its first error message.
type FieldErrors map[string]string

func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}

func (fe FieldErrors) Get(field string) string {
	return fe[field]
}

func (fe FieldErrors) Add(field, msg string) {
	if _, exists := fe[field]; !exists {
		fe[field] = msg
	}
}

func (fe FieldErrors) Any() bool {
	return len(fe) > 0
}

var (
	validate *validator.Validate
	once     sync.Once
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report fields under their form names so templates can look them up.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"form", "json"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return fld.Name
		})
	})
	return validate
}

// Validate checks the struct tags of v. It returns nil when v is valid.
func Validate(v any) FieldErrors {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"_": err.Error()}
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		out.Add(fe.Field(), message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Ce champ est obligatoire."
	case "email":
		return "Saisissez une adresse email valide."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Au moins %s caractères.", fe.Param())
		}
		return fmt.Sprintf("La valeur minimale est %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Au plus %s caractères.", fe.Param())
		}
		return fmt.Sprintf("La valeur maximale est %s.", fe.Param())
	case "eqfield":
		return "Les deux mots de passe ne correspondent pas."
	case "eq":
		return "Vous devez accepter les conditions d'utilisation."
	case "oneof":
		return "Valeur non autorisée."
	case "len":
		return fmt.Sprintf("Doit contenir exactement %s caractères.", fe.Param())
	case "numeric":
		return "Seuls les chiffres sont autorisés."
	default:
		return "Valeur invalide."
	}
}
