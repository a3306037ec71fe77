package cmd

import (
	"fmt"
	"strings"
)

// TargetRequiredError indicates a command was invoked without a target.
type TargetRequiredError struct {
	Command string
}

func (e *TargetRequiredError) Error() string {
	return fmt.Sprintf("%s requires a target URL or host", e.Command)
}

// TemplatesNotFoundError signals that no template survived loading and tag filtering.
type TemplatesNotFoundError struct {
	Path string
	Tags []string
}

func (e *TemplatesNotFoundError) Error() string {
	if len(e.Tags) > 0 {
		return fmt.Sprintf("no templates under %s match tags %s", e.Path, strings.Join(e.Tags, ","))
	}
	return fmt.Sprintf("no templates found under %s", e.Path)
}
