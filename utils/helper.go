package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/foodlink/necessity_backend/config"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// ValidateStruct runs validator tags and folds the first failure into a
// ValidationError so handlers surface it as a 400.
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return NewValidationError("field %s is invalid (%s)", verrs[0].Field(), verrs[0].Tag())
		}
		return &ValidationError{Message: err.Error()}
	}
	return nil
}

// RoundQuantity applies the item quantity rounding contract:
// round half away from zero at 3 decimal places (the multiply-by-1000,
// round-to-integer, divide-back idiom). Downstream reporting depends on it.
func RoundQuantity(d decimal.Decimal) decimal.Decimal {
	return d.Shift(3).Round(0).Shift(-3)
}

// ParseDecimal converts a string to a decimal.Decimal value.
func ParseDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}

	dec, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}

	return dec, nil
}

func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// TupleLock gates entry on a distributed lock keyed by the generation filter
// tuple. The lock is released when fn returns; the MySQL advisory lock taken
// inside the transaction plus the unique index remain the hard guarantees.
func TupleLock(ctx context.Context, key string, moduleName string, funcName string, fn func() error) error {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		config.LogError(logger, moduleName, funcName, "Redis lock not initialized", key, errors.New("redis lock is nil"))
		return errors.New("service not ready (redis lock not initialized)")
	}

	lockKey := fmt.Sprintf("necessity:%s", key)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, funcName, "Could not obtain lock for tuple", key, err)
		return errors.New("another generation is already running for these parameters")
	} else if err != nil {
		config.LogError(logger, moduleName, funcName, "Error obtaining lock for tuple", key, err)
		return err
	}
	defer func() {
		_ = lock.Release(ctx)
	}()

	return fn()
}
