package pipeline

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
)

// Defaults applied to ad-hoc requests that omit a field, centred on the
// Sousse olive belt.
const (
	defaultLatitude     = 35.8
	defaultLongitude    = 10.6
	defaultSizeHectares = 2.0
	defaultTreeCount    = 400
)

// Request asks for a recommendation, either for a registered farm or for an
// ad-hoc plot. A known FarmID overrides the location, geometry, and NDVI.
// GrowthStage is free text; labels other than initial, mid, or late are
// treated as mid.
type Request struct {
	RequestID    string   `json:"request_id,omitempty" validate:"omitempty,max=128"`
	FarmID       string   `json:"farm_id,omitempty" validate:"omitempty,max=64"`
	Latitude     *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	SizeHectares *float64 `json:"size_hectares,omitempty" validate:"omitempty,gt=0"`
	TreeCount    *int     `json:"tree_count,omitempty" validate:"omitempty,gte=0"`
	NDVIScore    *float64 `json:"ndvi_score,omitempty" validate:"omitempty,gte=-1,lte=1"`
	GrowthStage  string   `json:"growth_stage,omitempty" validate:"omitempty,max=32"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field ranges. Failures wrap domain.ErrInvalidInput.
func (r Request) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = describe(fe)
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be > %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s is too long", field)
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
