package action

import "fmt"

// FieldError reports an action field that is missing, null or empty.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("Unable to find actionFields %s", e.Field)
}

// PortFormatError reports a port value that is not an integer.
type PortFormatError struct {
	Value string
}

func (e *PortFormatError) Error() string {
	return fmt.Sprintf("Unable to parse action field port value '%s' as an integer", e.Value)
}
