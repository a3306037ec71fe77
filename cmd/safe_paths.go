package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/khanhnv2901/seca-scan/internal/shared/security"
)

// validateRunID ensures run identifiers can't be used for path traversal.
// IDs name directories under the results dir, so reject separators.
func validateRunID(id string) error {
	switch id {
	case "":
		return errors.New("run ID is required")
	case ".", "..":
		return fmt.Errorf("run ID %q is reserved", id)
	}
	if strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("run ID %q must not contain path separators", id)
	}
	if security.SanitizeComponent(id) != id {
		return fmt.Errorf("run ID %q contains invalid characters", id)
	}
	return nil
}
