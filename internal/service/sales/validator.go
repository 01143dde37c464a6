package sales

import (
	"fmt"
	"strings"

	"github.com/mamadbah2/ranch/internal/domain/models"
)

// ValidationResult is the outcome of checking lots against a sale type.
type ValidationResult struct {
	Valid   bool
	Message string
	// EarTags lists the animals that failed, in lot order.
	EarTags []string
}

// Validate checks whether the animals of lots satisfy the documentation
// requirements of saleType. Domestic sales carry no requirement. International
// sales need a tick-treatment certificate and a sanitary validation id on
// every animal.
func Validate(saleType models.SaleType, lots []models.Lot, animals []models.Animal) ValidationResult {
	if saleType != models.SaleInternational {
		return ValidationResult{Valid: true}
	}

	byLot := make(map[string][]models.Animal, len(lots))
	for _, animal := range animals {
		byLot[animal.LotID] = append(byLot[animal.LotID], animal)
	}

	var failing []string
	for _, lot := range lots {
		for _, animal := range byLot[lot.ID] {
			if strings.TrimSpace(animal.TickCertificate) == "" || strings.TrimSpace(animal.SanitaryValidationID) == "" {
				failing = append(failing, animal.EarTag)
			}
		}
	}

	if len(failing) == 0 {
		return ValidationResult{Valid: true}
	}

	return ValidationResult{
		Message: fmt.Sprintf("international sale requires a tick-treatment certificate and a sanitary validation id for every animal; missing for ear tags: %s",
			strings.Join(failing, ", ")),
		EarTags: failing,
	}
}
