package employment

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// PFDetails is the provident-fund payload carried in a PF record's metadata.
type PFDetails struct {
	EstablishmentID      string  `mapstructure:"establishment_id" json:"establishment_id,omitempty"`
	EmployeeContribution float64 `mapstructure:"employee_contribution" json:"employee_contribution,omitempty"`
	EmployerContribution float64 `mapstructure:"employer_contribution" json:"employer_contribution,omitempty"`
	Pension              float64 `mapstructure:"pension" json:"pension,omitempty"`
	Status               string  `mapstructure:"status" json:"status,omitempty"`
}

// Total is the sum of all contribution components.
func (d PFDetails) Total() float64 {
	return d.EmployeeContribution + d.EmployerContribution + d.Pension
}

// CVDetails is the CV payload carried in a CV record's metadata.
type CVDetails struct {
	Title string `mapstructure:"job_title" json:"job_title,omitempty"`
	// Position is accepted as an alias of Title.
	Position string `mapstructure:"position" json:"-"`
}

// DecodePFDetails reads the PF payload from metadata. Amounts may be numbers
// or comma-grouped strings such as "12,345".
func DecodePFDetails(metadata map[string]any) (PFDetails, error) {
	var details PFDetails
	if err := decodeMetadata(metadata, &details); err != nil {
		return PFDetails{}, fmt.Errorf("decode pf details: %w", err)
	}
	details.Status = strings.TrimSpace(details.Status)
	return details, nil
}

// DecodeCVDetails reads the CV payload from metadata.
func DecodeCVDetails(metadata map[string]any) (CVDetails, error) {
	var details CVDetails
	if err := decodeMetadata(metadata, &details); err != nil {
		return CVDetails{}, fmt.Errorf("decode cv details: %w", err)
	}
	if details.Title == "" {
		details.Title = details.Position
	}
	details.Title = strings.TrimSpace(details.Title)
	return details, nil
}

func decodeMetadata(metadata map[string]any, out any) error {
	if len(metadata) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       amountHook,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(metadata)
}

// amountHook strips grouping commas and currency marks before numbers are parsed.
func amountHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Float64 {
		return data, nil
	}

	raw := strings.TrimSpace(data.(string))
	raw = strings.NewReplacer(",", "", "₹", "", "Rs.", "", "INR", "", " ", "").Replace(raw)
	if raw == "" {
		return 0.0, nil
	}

	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", data, err)
	}

	return amount, nil
}
