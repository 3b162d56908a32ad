package service

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

// phonePattern accepts 10 to 15 digits with an optional leading plus.
var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

func registerDomainValidators(v *validator.Validate) *validator.Validate {
	if v == nil {
		v = validator.New()
	}
	_ = v.RegisterValidation("grievance_priority", func(fl validator.FieldLevel) bool {
		return models.Priority(strings.ToUpper(fl.Field().String())).IsValid()
	})
	_ = v.RegisterValidation("grievance_status", func(fl validator.FieldLevel) bool {
		return models.GrievanceStatus(strings.ToUpper(fl.Field().String())).IsValid()
	})
	_ = v.RegisterValidation("project_status", func(fl validator.FieldLevel) bool {
		return models.ProjectStatus(strings.ToUpper(fl.Field().String())).IsValid()
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	return v
}

// validationError converts validator output into a VALIDATION_ERROR listing the failing fields.
func validationError(err error) *appErrors.Error {
	var fieldErrs validator.ValidationErrors
	if ok := asValidationErrors(err, &fieldErrs); !ok {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	fields := make(map[string]interface{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[lowerFirst(fe.Field())] = fe.Tag()
	}
	appErr := appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid payload"), map[string]interface{}{"fields": fields})
	appErr.Err = err
	return appErr
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	v, ok := err.(validator.ValidationErrors)
	if ok {
		*target = v
	}
	return ok
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func requireActor(actor models.Actor) error {
	if !actor.Valid() {
		return appErrors.Clone(appErrors.ErrUnauthorized, "an authenticated actor is required for this operation")
	}
	return nil
}

// isEntityID reports whether id can address a row keyed by a UUID primary key.
func isEntityID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
