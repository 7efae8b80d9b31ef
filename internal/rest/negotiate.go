package rest

import (
	"strings"

	"github.com/munnerz/goautoneg"

	"yardb/internal/yarerr"
)

// MetadataMode selects the OData envelope shape (§4.4.3).
type MetadataMode int

const (
	ModeNone MetadataMode = iota
	ModeMinimal
	ModeFull
)

// Negotiate parses the Accept header and returns the metadata mode to use,
// or a NotAcceptable error if no acceptable media range is present.
// Accepted ranges: application/json, application/*, */*, or a missing
// header (§4.4.3).
func Negotiate(acceptHeader string) (MetadataMode, error) {
	if strings.TrimSpace(acceptHeader) == "" {
		return ModeNone, nil
	}

	alternatives := goautoneg.ParseAccept(acceptHeader)
	for _, alt := range alternatives {
		if !acceptable(alt) {
			continue
		}
		switch strings.ToLower(alt.Params["odata"]) {
		case "minimalmetadata":
			return ModeMinimal, nil
		case "fullmetadata":
			return ModeFull, nil
		default:
			return ModeNone, nil
		}
	}

	return ModeNone, yarerr.New(yarerr.NotAcceptable, "Only application/json is supported")
}

func acceptable(a goautoneg.Accept) bool {
	switch {
	case a.Type == "*" && a.SubType == "*":
		return true
	case a.Type == "application" && a.SubType == "*":
		return true
	case a.Type == "application" && a.SubType == "json":
		return true
	default:
		return false
	}
}
