package batches

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// NextBatchCode generates a unique, human-readable batch code: cultivar
// prefix, date stamp, sequence suffix (e.g. BSL-20260302-03). The suffix comes
// from a counter row per prefix and day, incremented with a guarded update so
// concurrent materializations serialize on the row and cannot compute the same
// code; it must run inside the transaction that inserts the batch.
func NextBatchCode(tx *gorm.DB, cultivarPrefix string, date time.Time) (string, error) {
	stamp := date.Format("20060102")

	result := tx.Model(&BatchCodeCounter{}).
		Where("prefix = ? AND date_stamp = ?", cultivarPrefix, stamp).
		Update("last_value", gorm.Expr("last_value + 1"))
	if result.Error != nil {
		return "", fmt.Errorf("failed to increment batch code counter: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		// First batch of this prefix/day. A concurrent first-batch insert
		// loses on the primary key and the whole transaction retries upstream.
		counter := BatchCodeCounter{Prefix: cultivarPrefix, DateStamp: stamp, LastValue: 1}
		if err := tx.Create(&counter).Error; err != nil {
			return "", fmt.Errorf("failed to create batch code counter: %w", err)
		}
		return fmt.Sprintf("%s-%s-%02d", cultivarPrefix, stamp, 1), nil
	}

	var counter BatchCodeCounter
	err := tx.First(&counter, "prefix = ? AND date_stamp = ?", cultivarPrefix, stamp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("batch code counter vanished mid-transaction")
		}
		return "", fmt.Errorf("failed to read batch code counter: %w", err)
	}

	return fmt.Sprintf("%s-%s-%02d", cultivarPrefix, stamp, counter.LastValue), nil
}
