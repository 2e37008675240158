package dataprocessing

import (
	"retailetl/internal/config"
	apperrors "retailetl/internal/errors"
	"retailetl/pkg/contracts/domain"
)

// ValidateColumns checks that every required column is in the header. The
// error lists all missing columns in the order they were required.
func ValidateColumns(t *Table, required []string) error {
	var missing []string
	for _, col := range required {
		if _, ok := t.Column(col); !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewSchemaError(t.Name, missing)
	}
	return nil
}

// ValidateInput checks both tables of a run. Sales is required; inventory
// is only checked when supplied.
func ValidateInput(in Input) error {
	if in.Sales == nil {
		return apperrors.NewMissingInputError(config.SalesFileField)
	}
	if err := ValidateColumns(in.Sales, domain.SalesColumns); err != nil {
		return err
	}
	if in.Inventory != nil {
		return ValidateColumns(in.Inventory, domain.InventoryColumns)
	}
	return nil
}
