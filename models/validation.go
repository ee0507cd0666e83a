package models

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterValidation("strong_password", validateStrongPassword)
	v.RegisterValidation("phone", validatePhone)
	v.RegisterValidation("image_id", validateImageID)
	return v
}

// validateStrongPassword requires at least 8 characters with lower, upper,
// digit and symbol classes present.
func validateStrongPassword(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) < 8 {
		return false
	}
	var lower, upper, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}

func validatePhone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}

func validateImageID(fl validator.FieldLevel) bool {
	_, ok := NamespaceOf(fl.Field().String())
	return ok
}

// Validate runs struct validation and converts failures into a validation
// error naming every offending field by its JSON path.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.Internal("validation failed", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if i := strings.Index(ns, "."); i >= 0 {
			ns = ns[i+1:]
		}
		fields = append(fields, ns)
	}
	return apperror.Validation("Missing or invalid fields", fields...)
}

// Normalize trims the free-text fields of a create payload.
func (in *PropertyInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Address = strings.TrimSpace(in.Address)
	in.Country = strings.TrimSpace(in.Country)
	in.State = strings.TrimSpace(in.State)
	in.City = strings.TrimSpace(in.City)
	in.Details.Type = strings.TrimSpace(in.Details.Type)
	in.Details.Status = strings.TrimSpace(in.Details.Status)
	if in.FeatureImage != nil {
		in.FeatureImage.PublicID = strings.TrimSpace(in.FeatureImage.PublicID)
	}
	for i := range in.GalleryImages {
		in.GalleryImages[i].PublicID = strings.TrimSpace(in.GalleryImages[i].PublicID)
	}
}

// Validate checks the fields an update provides. Required text fields may
// be omitted but not blanked.
func (u *PropertyUpdate) Validate() error {
	var missing []string
	required := []struct {
		name  string
		value *string
	}{
		{"property_name", u.Name},
		{"property_description", u.Description},
		{"country", u.Country},
		{"state", u.State},
	}
	for _, f := range required {
		if f.value == nil {
			continue
		}
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if u.FeatureImage != nil {
		u.FeatureImage.PublicID = strings.TrimSpace(u.FeatureImage.PublicID)
		if _, ok := NamespaceOf(u.FeatureImage.PublicID); !ok {
			missing = append(missing, "feature_image.public_id")
		}
	}
	if u.GalleryImages != nil {
		if len(*u.GalleryImages) > 10 {
			missing = append(missing, "property_images")
		}
		for i := range *u.GalleryImages {
			ref := &(*u.GalleryImages)[i]
			ref.PublicID = strings.TrimSpace(ref.PublicID)
			if _, ok := NamespaceOf(ref.PublicID); !ok {
				missing = append(missing, "property_images.public_id")
				break
			}
		}
	}
	if u.Details != nil {
		if err := Validate(u.Details); err != nil {
			missing = append(missing, apperror.FieldsOf(err)...)
		}
	}
	if len(missing) > 0 {
		return apperror.Validation("Missing or invalid fields", missing...)
	}
	return nil
}

// Validate rejects attempts to change fixed account fields and checks the
// editable ones that are present.
func (in *ProfileInput) Validate() error {
	var fixed []string
	if in.Email != "" {
		fixed = append(fixed, "email")
	}
	if in.Password != "" {
		fixed = append(fixed, "password")
	}
	if in.AccountType != "" {
		fixed = append(fixed, "account_type")
	}
	if len(fixed) > 0 {
		return apperror.Validation("Email, password and account type cannot be changed here", fixed...)
	}

	var invalid []string
	for name, v := range map[string]*string{
		"first_name":   in.FirstName,
		"last_name":    in.LastName,
		"phone_number": in.PhoneNumber,
	} {
		if v == nil {
			continue
		}
		*v = strings.TrimSpace(*v)
		if *v == "" {
			invalid = append(invalid, name)
		}
	}
	if in.PhoneNumber != nil && *in.PhoneNumber != "" && !phonePattern.MatchString(*in.PhoneNumber) {
		invalid = append(invalid, "phone_number")
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return apperror.Validation("Missing or invalid fields", invalid...)
	}
	return nil
}

// Validate checks an admin edit. The email is immutable.
func (u *AdminUpdate) Validate() error {
	if u.Email != "" {
		return apperror.Validation("Email cannot be changed", "email")
	}
	var invalid []string
	if u.FirstName != nil {
		*u.FirstName = strings.TrimSpace(*u.FirstName)
		if *u.FirstName == "" {
			invalid = append(invalid, "first_name")
		}
	}
	if u.LastName != nil {
		*u.LastName = strings.TrimSpace(*u.LastName)
		if *u.LastName == "" {
			invalid = append(invalid, "last_name")
		}
	}
	if u.Role != nil && !u.Role.Valid() {
		invalid = append(invalid, "role")
	}
	if len(invalid) > 0 {
		return apperror.Validation("Missing or invalid fields", invalid...)
	}
	return nil
}
