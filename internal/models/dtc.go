package models

import "fmt"

// DTCEntry represents a diagnostic trouble code with description.
type DTCEntry struct {
	Code        string
	Description string
}

// String renders the entry as it is filed in a repair request.
func (d DTCEntry) String() string {
	if d.Description == "" {
		return d.Code
	}
	return fmt.Sprintf("%s: %s", d.Code, d.Description)
}
