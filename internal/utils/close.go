package utils

import (
	"io"

	"github.com/MrSnakeDoc/relay/internal/logger"
)

// CloseLogged closes c during shutdown and reports a failure at warn level.
// A nil closer is ignored.
func CloseLogged(c io.Closer, what string, log logger.Logger) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn("failed to close", logger.String("component", what), logger.Error(err))
		return
	}
	log.Debug("closed", logger.String("component", what))
}
