// Package query implements YarDB's OData-style query layer (§4.3): request
// parameter parsing, the filter-expression grammar, and the execution
// pipeline that ties index candidates, match, filter, ordering, paging,
// and projection together.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"yardb/internal/yarerr"
)

// OrderBy is a parsed $orderby clause.
type OrderBy struct {
	Field string
	Desc  bool
}

// Params is the parsed set of OData query parameters recognized by §4.3.
type Params struct {
	Top      *int
	Skip     *int
	OrderBy  *OrderBy
	Filter   *Expr
	Select   []string
	Count    bool
	HasQuery bool // true if the raw query string carried any of these keys
}

// Parse extracts and validates $top/$skip/$orderby/$filter/$select/$count
// from raw URL query values. $expand is accepted and ignored per §4.3.
func Parse(values url.Values) (Params, error) {
	var p Params

	if raw := values.Get("$top"); raw != "" {
		p.HasQuery = true
		n, err := strconv.Atoi(raw)
		if err != nil {
			return p, yarerr.New(yarerr.BadRequest, "invalid $top").With("$top", raw)
		}
		if n < 0 {
			return p, yarerr.New(yarerr.BadRequest, "$top must be >= 0").With("$top", raw)
		}
		p.Top = &n
	}

	if raw := values.Get("$skip"); raw != "" {
		p.HasQuery = true
		n, err := strconv.Atoi(raw)
		if err != nil {
			return p, yarerr.New(yarerr.BadRequest, "invalid $skip").With("$skip", raw)
		}
		if n < 0 {
			return p, yarerr.New(yarerr.BadRequest, "$skip must be >= 0").With("$skip", raw)
		}
		p.Skip = &n
	}

	if raw := values.Get("$orderby"); raw != "" {
		p.HasQuery = true
		fields := strings.Fields(raw)
		ob := OrderBy{Field: fields[0]}
		switch len(fields) {
		case 1:
		case 2:
			switch strings.ToLower(fields[1]) {
			case "asc":
				ob.Desc = false
			case "desc":
				ob.Desc = true
			default:
				return p, yarerr.New(yarerr.BadRequest, "invalid $orderby direction").With("$orderby", raw)
			}
		default:
			return p, yarerr.New(yarerr.BadRequest, "invalid $orderby").With("$orderby", raw)
		}
		p.OrderBy = &ob
	}

	if raw := values.Get("$filter"); raw != "" {
		p.HasQuery = true
		expr, err := ParseFilter(raw)
		if err != nil {
			return p, err
		}
		p.Filter = expr
	}

	if raw := values.Get("$select"); raw != "" {
		p.HasQuery = true
		for _, f := range strings.Split(raw, ",") {
			f = strings.TrimSpace(f)
			if f != "" {
				p.Select = append(p.Select, f)
			}
		}
	}

	if raw := values.Get("$count"); raw != "" {
		p.HasQuery = true
		p.Count = strings.EqualFold(raw, "true")
	}

	if values.Get("$expand") != "" {
		p.HasQuery = true
	}

	return p, nil
}
