// Package services holds the marketplace operations the HTTP handlers, the
// CLI and the automation loop share. Services return apperr types; handlers
// map them onto status codes.
package services

import (
	"strconv"
	"time"

	"shophand/apperr"
)

var validate = apperr.NewValidator()

// Clock returns the current time; tests pin it
type Clock func() time.Time

func check(v any) error {
	if err := validate.Struct(v); err != nil {
		return apperr.FromBinding(err)
	}
	return nil
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }
