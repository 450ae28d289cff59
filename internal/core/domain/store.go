package domain

import (
	"fmt"
	"net/url"
	"strconv"
)

type Store struct {
	StoreID   int64  `json:"storeId,omitempty"`
	StoreName string `json:"storeName"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// ProfitPeriod selects the bucket size of a profit report.
type ProfitPeriod string

const (
	ProfitDaily   ProfitPeriod = "daily"
	ProfitMonthly ProfitPeriod = "monthly"
	ProfitYearly  ProfitPeriod = "yearly"
)

func ParseProfitPeriod(s string) (ProfitPeriod, error) {
	switch p := ProfitPeriod(s); p {
	case ProfitDaily, ProfitMonthly, ProfitYearly:
		return p, nil
	}
	return "", NewValidationError(fmt.Sprintf("unknown profit period %q", s))
}

// ProfitQuery filters a profit report. Zero fields are not sent.
type ProfitQuery struct {
	Period    ProfitPeriod
	StoreID   int64
	StartDate string
	EndDate   string
	Year      int
}

func (q ProfitQuery) Values() url.Values {
	v := url.Values{}
	if q.StoreID > 0 {
		v.Set("storeId", strconv.FormatInt(q.StoreID, 10))
	}
	switch q.Period {
	case ProfitDaily:
		if q.StartDate != "" {
			v.Set("startDate", q.StartDate)
		}
		if q.EndDate != "" {
			v.Set("endDate", q.EndDate)
		}
	case ProfitMonthly:
		if q.Year > 0 {
			v.Set("year", strconv.Itoa(q.Year))
		}
	}
	return v
}

// ProfitEntry is one bucket of a profit report.
type ProfitEntry struct {
	Period string  `json:"period"`
	Profit float64 `json:"profit"`
	Count  int     `json:"count,omitempty"`
}

// UsageQuery selects which usage records to list. Own lists the logged-in
// user's records and ignores StoreID.
type UsageQuery struct {
	Own     bool
	StoreID int64
	Year    int
	Month   int
}
