// Package query turns a user's preferences into a synthetic dataset row and
// merges it into a copy of the base table.
package query

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/plantrec/plantrec/internal/catalog"
)

// Result count bounds accepted from the preference form.
const (
	MinCount     = 1
	MaxCount     = 50
	DefaultCount = 5
)

// Preferences is the structured record the preference form supplies.
// Empty strings and nil numbers mean "no preference".
type Preferences struct {
	Lifespan          string `json:"lifespan,omitempty" yaml:"lifespan,omitempty" validate:"omitempty,oneof=Short Moderate Long"`
	DroughtTolerance  string `json:"drought_tolerance,omitempty" yaml:"drought_tolerance,omitempty" validate:"omitempty,oneof=Low Medium High"`
	Moisture          string `json:"moisture,omitempty" yaml:"moisture,omitempty" validate:"omitempty,oneof=Low Medium High"`
	HedgeTolerance    string `json:"hedge_tolerance,omitempty" yaml:"hedge_tolerance,omitempty" validate:"omitempty,oneof=Low Medium High"`
	ShadeTolerance    string `json:"shade_tolerance,omitempty" yaml:"shade_tolerance,omitempty" validate:"omitempty,oneof=Intolerant Intermediate Tolerant"`
	SalinityTolerance string `json:"salinity_tolerance,omitempty" yaml:"salinity_tolerance,omitempty" validate:"omitempty,oneof=None Low Medium High"`
	GrowthRate        string `json:"growth_rate,omitempty" yaml:"growth_rate,omitempty" validate:"omitempty,oneof=Slow Moderate Rapid"`

	TemperatureMinimumF *float64 `json:"temperature_minimum_f,omitempty" yaml:"temperature_minimum_f,omitempty" validate:"omitempty,finite"`
	PHMinimum           *float64 `json:"ph_minimum,omitempty" yaml:"ph_minimum,omitempty" validate:"omitempty,finite,gte=0,lte=14"`
	PHMaximum           *float64 `json:"ph_maximum,omitempty" yaml:"ph_maximum,omitempty" validate:"omitempty,finite,gte=0,lte=14"`

	FlowerConspicuous string `json:"flower_conspicuous,omitempty" yaml:"flower_conspicuous,omitempty" validate:"omitempty,oneof=Yes No"`
	FlowerColor       string `json:"flower_color,omitempty" yaml:"flower_color,omitempty" validate:"omitempty,oneof=Yellow Red Purple Brown Blue Green White Orange"`
	FallConspicuous   string `json:"fall_conspicuous,omitempty" yaml:"fall_conspicuous,omitempty" validate:"omitempty,oneof=Yes No"`
	FireResistance    string `json:"fire_resistance,omitempty" yaml:"fire_resistance,omitempty" validate:"omitempty,oneof=Yes No"`
	FruitConspicuous  string `json:"fruit_conspicuous,omitempty" yaml:"fruit_conspicuous,omitempty" validate:"omitempty,oneof=Yes No"`

	// Count is the number of recommendations requested.
	Count int `json:"count" yaml:"count" validate:"min=1,max=50"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("finite", isFinite)
		validate.RegisterStructValidation(phRange, Preferences{})
	})
	return validate
}

// isFinite rejects NaN and infinities.
func isFinite(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// phRange requires ph_minimum <= ph_maximum when both are set.
func phRange(sl validator.StructLevel) {
	p := sl.Current().Interface().(Preferences)
	if p.PHMinimum != nil && p.PHMaximum != nil && *p.PHMinimum > *p.PHMaximum {
		sl.ReportError(*p.PHMinimum, "PHMinimum", "PHMinimum", "ltefield", "PHMaximum")
	}
}

// Validate checks every preference against its form domain. Failures wrap
// catalog.ErrInvalidFieldValue.
func (p *Preferences) Validate() error {
	err := getValidator().Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating preferences: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", catalog.ErrInvalidFieldValue, strings.Join(msgs, "; "))
}

// describe renders one validator failure for a user.
func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fmt.Sprint(fe.Value()))
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "ltefield":
		return fmt.Sprintf("%s must not exceed %s", fe.Field(), fe.Param())
	case "finite":
		return fmt.Sprintf("%s must be a finite number", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// Values returns the preferences keyed by catalog field name, omitting
// unset fields. The form's Moisture answer feeds the Moisture_Use column.
func (p *Preferences) Values() map[string]string {
	out := make(map[string]string)
	set := func(field, v string) {
		if v != "" {
			out[field] = v
		}
	}
	setNum := func(field string, v *float64) {
		if v != nil {
			out[field] = strconv.FormatFloat(*v, 'f', -1, 64)
		}
	}

	set(catalog.FieldLifespan, p.Lifespan)
	set(catalog.FieldDrought, p.DroughtTolerance)
	set(catalog.FieldMoistureUse, p.Moisture)
	set(catalog.FieldHedge, p.HedgeTolerance)
	set(catalog.FieldShade, p.ShadeTolerance)
	set(catalog.FieldSalinity, p.SalinityTolerance)
	set(catalog.FieldGrowthRate, p.GrowthRate)
	setNum(catalog.FieldTempMinimum, p.TemperatureMinimumF)
	setNum(catalog.FieldPHMinimum, p.PHMinimum)
	setNum(catalog.FieldPHMaximum, p.PHMaximum)
	set(catalog.FieldFlowerShowy, p.FlowerConspicuous)
	set(catalog.FieldFlowerColor, p.FlowerColor)
	set(catalog.FieldFallShowy, p.FallConspicuous)
	set(catalog.FieldFireResist, p.FireResistance)
	set(catalog.FieldFruitShowy, p.FruitConspicuous)

	return out
}
