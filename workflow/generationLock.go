package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireGenerationLock serializes generation per filter tuple across
// instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB transaction that will do the duplicate check and the insert.
func AcquireGenerationLock(tx *gorm.DB, tupleKey string) error {
	lockName := fmt.Sprintf("necessity:%s", tupleKey)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire generation lock for tuple=%s", tupleKey)
	}
	return nil
}

func ReleaseGenerationLock(tx *gorm.DB, tupleKey string) {
	lockName := fmt.Sprintf("necessity:%s", tupleKey)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
