package errprocess

import (
	"fmt"

	"exotoura_chat/pkg/logger"

	"go.uber.org/zap"
)

// Wrap log msg with the cause and return a wrapped error
func Wrap(msg string, err error, fields ...zap.Field) error {
	logger.Log.Error(msg, append(fields, zap.Error(err))...)
	return fmt.Errorf("%s: %w", msg, err)
}
