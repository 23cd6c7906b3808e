package orders

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// nextOrderNumber allocates the next sequential order number for a company and
// year, formatted ORD-<year>-<4-digit-seq>. It must run inside the same
// transaction that inserts the order: the counter row is incremented with a
// guarded update, so concurrent allocations serialize on the row and duplicate
// numbers cannot be issued.
func nextOrderNumber(tx *gorm.DB, companyCode string, year int) (string, error) {
	result := tx.Model(&OrderCounter{}).
		Where("company_code = ? AND year = ?", companyCode, year).
		Update("last_value", gorm.Expr("last_value + 1"))
	if result.Error != nil {
		return "", fmt.Errorf("failed to increment order counter: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		// First order of this company/year. A concurrent first-order insert
		// loses on the primary key and the whole transaction retries upstream.
		counter := OrderCounter{CompanyCode: companyCode, Year: year, LastValue: 1}
		if err := tx.Create(&counter).Error; err != nil {
			return "", fmt.Errorf("failed to create order counter: %w", err)
		}
		return fmt.Sprintf("ORD-%d-%04d", year, 1), nil
	}

	var counter OrderCounter
	err := tx.First(&counter, "company_code = ? AND year = ?", companyCode, year).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("order counter vanished mid-transaction")
		}
		return "", fmt.Errorf("failed to read order counter: %w", err)
	}

	return fmt.Sprintf("ORD-%d-%04d", year, counter.LastValue), nil
}
