package echoapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rudradrivingschool/rudra-driving-school/core"
)

const (
	orderingParam = "ordering"
	dateLayout    = "2006-01-02"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// DateRange binds the `date_from` and `date_to` query params (YYYY-MM-DD, both inclusive).
type DateRange struct {
	From time.Time
	To   time.Time
}

func (dr *DateRange) Bind(ctx echo.Context) error {
	var flds []core.FieldError
	for param, dest := range map[string]*time.Time{"date_from": &dr.From, "date_to": &dr.To} {
		val := strings.TrimSpace(ctx.QueryParam(param))
		if val == "" {
			continue
		}
		t, err := time.Parse(dateLayout, val)
		if err != nil {
			flds = append(flds, core.FieldError{Field: param, Error: param + " must be a date formatted as YYYY-MM-DD"})
			continue
		}
		*dest = t
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func queryBool(ctx echo.Context, name string) bool {
	switch strings.ToLower(strings.TrimSpace(ctx.QueryParam(name))) {
	case "1", "true", "yes":
		return true
	}
	return false
}
