// Package fixtures generates deterministic-shape seed data for exercising a
// harness run end to end against a throwaway schema, adapted from the
// teacher's gofakeit/BCL fake_* function registrations and seed definitions.
package fixtures

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/oarkflow/bcl"
)

func init() {
	f := gofakeit.New(0)
	bcl.RegisterFunction("fake_uuid", func(args ...any) (any, error) {
		return f.UUID(), nil
	})
	bcl.RegisterFunction("fake_name", func(args ...any) (any, error) {
		return f.Name(), nil
	})
	bcl.RegisterFunction("fake_email", func(args ...any) (any, error) {
		return f.Email(), nil
	})
	bcl.RegisterFunction("fake_company", func(args ...any) (any, error) {
		return f.Company(), nil
	})
	bcl.RegisterFunction("fake_currency", func(args ...any) (any, error) {
		return f.CurrencyShort(), nil
	})
	bcl.RegisterFunction("fake_pastdate", func(args ...any) (any, error) {
		return f.DateRange(time.Now().AddDate(-10, 0, 0), time.Now()), nil
	})
	bcl.RegisterFunction("fake_daterange", func(args ...any) (any, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("fake_daterange requires 2 arguments: start and end time (YYYY-MM-DD)")
		}
		startStr, ok1 := args[0].(string)
		endStr, ok2 := args[1].(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("fake_daterange arguments must be strings in format YYYY-MM-DD")
		}
		start, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return nil, err
		}
		end, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return nil, err
		}
		return f.DateRange(start, end), nil
	})
}
