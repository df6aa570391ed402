// ABOUTME: Struct validation for client payloads
// ABOUTME: Registers enumeration and score rules with go-playground/validator
package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidClient = errors.New("invalid client")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report json field names rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	enums := map[string][]string{
		"clientstatus":    Statuses,
		"servicetype":     ServiceTypes,
		"servicetier":     ServiceTiers,
		"qastatus":        QAStatuses,
		"paymentstatus":   PaymentStatuses,
		"hosting":         HostingTypes,
		"sslstatus":       SSLStatuses,
		"backupfrequency": BackupFrequencies,
	}
	for tag, allowed := range enums {
		allowed := allowed
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return Contains(allowed, fl.Field().String())
		})
	}

	// Zero means "not scored yet"; anything else must be in range.
	_ = v.RegisterValidation("qascore", scoreRule(10))
	_ = v.RegisterValidation("performancescore", scoreRule(100))

	_ = v.RegisterValidation("formdate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})

	return v
}

func scoreRule(max int64) validator.Func {
	return func(fl validator.FieldLevel) bool {
		n := fl.Field().Int()
		return n == 0 || (n >= 1 && n <= max)
	}
}

// Validate checks a create payload.
func (f ClientFormData) Validate() error {
	return check(f)
}

// Validate checks the fields present in a partial update.
func (u ClientUpdate) Validate() error {
	return check(u)
}

// ValidStatus reports whether s is a known client status.
func ValidStatus(s string) bool {
	return Contains(Statuses, s)
}

// ValidateAnalysis checks the closed fields of an analysis result.
func ValidateAnalysis(a AIAnalysis) error {
	if !Contains(Sentiments, a.Sentiment) {
		return fmt.Errorf("unknown sentiment %q", a.Sentiment)
	}
	if !Contains(Priorities, a.Priority) {
		return fmt.Errorf("unknown priority %q", a.Priority)
	}
	return nil
}

func check(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidClient, err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidClient, strings.Join(problems, "; "))
}
