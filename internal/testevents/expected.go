package testevents

import (
	"sort"

	"github.com/shopspring/decimal"
)

type userAttr struct {
	user string
	attr string
}

// expectation is what the accepted events imply for every (user, attr).
type expectation struct {
	best  map[userAttr]float64
	total map[userAttr]decimal.Decimal
}

func expect(events []Event) *expectation {
	e := &expectation{
		best:  make(map[userAttr]float64),
		total: make(map[userAttr]decimal.Decimal),
	}
	for _, ev := range events {
		k := userAttr{user: ev.UserID, attr: ev.AttrName}
		if cur, ok := e.best[k]; !ok || ev.Score > cur {
			e.best[k] = ev.Score
		}
		e.total[k] = e.total[k].Add(decimal.NewFromFloat(ev.Score))
	}
	return e
}

// board returns the expected ranked rows for attr, best first, with ties
// ordered by user id descending.
func (e *expectation) board(attr, scoreType string) []Entry {
	var rows []Entry
	if scoreType == "total" {
		for k, v := range e.total {
			if k.attr == attr {
				rows = append(rows, Entry{UserID: k.user, Score: v.InexactFloat64()})
			}
		}
	} else {
		for k, v := range e.best {
			if k.attr == attr {
				rows = append(rows, Entry{UserID: k.user, Score: v})
			}
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].UserID > rows[j].UserID
	})
	for i := range rows {
		rows[i].Rank = int64(i)
	}
	return rows
}
