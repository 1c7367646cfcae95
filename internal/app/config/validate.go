package config

import (
	"fmt"
	"imaging-demo-service/internal/pkg/exceptions"
	"imaging-demo-service/internal/pkg/utils"
)

// Validate checks the internal configuration before the app starts serving.
func (c *InternalConfig) Validate() error {
	err := utils.ValidateStruct(c)
	if err != nil {
		return fmt.Errorf("invalid internal config: %s", exceptions.FormatFirstValidationError(err))
	}
	return nil
}
