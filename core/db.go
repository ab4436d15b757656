package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ParseOrdering parses a comma separated list of fields (`-` prefix for descending order).
// Unknown fields are skipped; `allowed` maps the public field names to the DB columns.
func ParseOrdering(s string, allowed map[string]string) []DBOrdering {
	var ords []DBOrdering
	seen := make(map[string]bool)
	for _, fld := range strings.Split(s, ",") {
		fld = CleanString(fld, true /* lower */)
		asc := true
		if strings.HasPrefix(fld, "-") {
			asc = false
			fld = fld[1:]
		}
		col, ok := allowed[fld]
		if !ok || seen[col] {
			continue
		}
		seen[col] = true
		ords = append(ords, DBOrdering{Field: col, Ascending: asc})
	}
	return ords
}
