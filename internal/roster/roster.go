// Package roster loads the listed-company workbook that maps company names
// to exchange tickers and industry classifications. The quote endpoints
// refuse companies that are not on the roster.
package roster

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/esg-insight/internal/model"
	"github.com/sells-group/esg-insight/internal/store"
)

// Entry is one listed company.
type Entry struct {
	Company      string
	Ticker       string
	IndustryCode string
	IndustryName string
}

// Roster is an immutable in-memory index of listed companies, keyed by
// normalized company name.
type Roster struct {
	byCompany map[string]Entry
	entries   []Entry
}

// Load reads the workbook at path. Expected columns: company name, ticker,
// industry code, industry name, with a single header row. Sheet selects a
// named sheet; empty means the first one.
func Load(path, sheet string) (*Roster, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "roster: open workbook")
	}

	s, err := pickSheet(f, sheet)
	if err != nil {
		return nil, err
	}

	r := &Roster{byCompany: make(map[string]Entry)}
	for i, row := range s.Rows {
		if i == 0 {
			continue // header
		}
		cells := make([]string, 4)
		for j := 0; j < 4 && j < len(row.Cells); j++ {
			cells[j] = strings.TrimSpace(row.Cells[j].String())
		}
		if cells[0] == "" || cells[1] == "" {
			continue
		}
		e := Entry{
			Company:      store.NormalizeName(cells[0]),
			Ticker:       padTicker(cells[1]),
			IndustryCode: cells[2],
			IndustryName: cells[3],
		}
		if _, dup := r.byCompany[e.Company]; dup {
			continue // first occurrence wins
		}
		r.byCompany[e.Company] = e
		r.entries = append(r.entries, e)
	}

	if len(r.entries) == 0 {
		return nil, eris.Errorf("roster: no usable rows in %s", path)
	}
	return r, nil
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		s, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("roster: sheet %q not found", name)
		}
		return s, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("roster: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

// padTicker left-pads numeric exchange codes to six digits. Spreadsheet
// tools routinely strip the leading zeros.
func padTicker(t string) string {
	if len(t) >= 6 {
		return t
	}
	for _, ch := range t {
		if ch < '0' || ch > '9' {
			return t
		}
	}
	return strings.Repeat("0", 6-len(t)) + t
}

// Ticker returns the exchange code for a company.
func (r *Roster) Ticker(company string) (string, bool) {
	e, ok := r.byCompany[store.NormalizeName(company)]
	if !ok {
		return "", false
	}
	return e.Ticker, true
}

// Len reports how many companies are on the roster.
func (r *Roster) Len() int { return len(r.entries) }

// Entries returns all roster rows in workbook order.
func (r *Roster) Entries() []Entry { return r.entries }

// Classifications converts roster rows to classification records for
// seeding the store.
func (r *Roster) Classifications() []model.Classification {
	out := make([]model.Classification, 0, len(r.entries))
	for _, e := range r.entries {
		if e.IndustryCode == "" {
			continue
		}
		out = append(out, model.Classification{
			Company:      e.Company,
			IndustryCode: e.IndustryCode,
			IndustryName: e.IndustryName,
		})
	}
	return out
}
