package engine

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"example.com/researchdesk/internal/domain"
)

var q1 = Quarter{
	Start: civil.Date{Year: 2026, Month: time.January, Day: 1},
	End:   civil.Date{Year: 2026, Month: time.March, Day: 31},
}

func day(month time.Month, d int) civil.Date {
	return civil.Date{Year: 2026, Month: month, Day: d}
}

func detailsFor(c domain.Category) domain.Details {
	switch c {
	case domain.CategoryRoadshow:
		return domain.Roadshow{Institution: "Fund"}
	case domain.CategoryCall:
		return domain.Call{Topic: "call"}
	case domain.CategoryReport:
		return domain.Report{Topic: "report", Kind: domain.ReportDeep}
	case domain.CategoryService:
		return domain.HighFrequency{Topic: "chart", Kind: domain.ServiceDailyChart}
	default:
		return domain.Internal{Topic: "training"}
	}
}

// recordsFor builds n records of one member and category on date.
func recordsFor(member string, c domain.Category, date civil.Date, n int) []domain.Record {
	out := make([]domain.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Record{
			ID:        fmt.Sprintf("%s-%s-%s-%d", member, c, date, i),
			Member:    member,
			Date:      date,
			Timestamp: date.In(time.UTC).Add(time.Duration(i) * time.Minute),
			Details:   detailsFor(c),
		})
	}
	return out
}
