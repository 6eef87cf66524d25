package cohort

import (
	"context"
	"sort"

	"github.com/sells-group/esg-insight/internal/apperr"
	"github.com/sells-group/esg-insight/internal/model"
)

// SeriesReader is the record access the trend reports need beyond the
// ranking engine's Reader.
type SeriesReader interface {
	GetClassification(ctx context.Context, company string) (*model.Classification, error)
	ListClassifications(ctx context.Context, industryCode string) ([]model.Classification, error)
	ListESGRatings(ctx context.Context, companies []string) ([]model.ESGRating, error)
	ListBoardStats(ctx context.Context, companies []string) ([]model.BoardStat, error)
	ListEnvironmentStats(ctx context.Context, companies []string) ([]model.EnvironmentStat, error)
}

// Trend builds the per-year ESG and governance reports that chart a company
// against its cohort averages.
type Trend struct {
	store  SeriesReader
	tables Tables
}

// NewTrend builds a Trend service over the given store handle.
func NewTrend(store SeriesReader, tables Tables) *Trend {
	return &Trend{store: store, tables: tables}
}

// gradeFields is the fixed set of rating fields charted per year.
var gradeFields = []string{"overall", "environmental", "social", "governance"}

// EnvRatioPoint is the environmental-investment ratio for one year.
type EnvRatioPoint struct {
	Company     *float64 `json:"company"`
	IndustryAvg *float64 `json:"industry_avg"`
}

// IntensityPoint is the per-revenue emission and energy intensity for one
// year.
type IntensityPoint struct {
	CompanyGHG     *float64 `json:"company_ghg"`
	CompanyEnergy  *float64 `json:"company_energy"`
	IndustryGHG    *float64 `json:"industry_ghg"`
	IndustryEnergy *float64 `json:"industry_energy"`
}

// TrendYear is one year of the ESG trend report. Grade scores use the 1-7
// scale; fields the company was not rated on are absent from the maps.
type TrendYear struct {
	Year        int                `json:"year"`
	Company     map[string]int     `json:"company"`
	IndustryAvg map[string]float64 `json:"industry_avg"`
	EnvRatio    *EnvRatioPoint     `json:"env_ratio,omitempty"`
	Intensity   *IntensityPoint    `json:"intensity,omitempty"`
}

// TrendReport charts a company's ESG grade scores and environmental
// intensity against its cohort, year by year.
type TrendReport struct {
	IndustryName string      `json:"industry_name"`
	Years        []TrendYear `json:"years"`
}

// resolveCohort loads a company's classification and the companies sharing
// its industry code.
func (t *Trend) resolveCohort(ctx context.Context, company string) (*model.Classification, []string, error) {
	cls, err := t.store.GetClassification(ctx, company)
	if err != nil {
		return nil, nil, apperr.Upstream(err, "trend: load classification")
	}
	if cls == nil || cls.IndustryCode == "" || cls.IndustryName == "" {
		return nil, nil, apperr.NotFoundf("classification missing for %q", company)
	}
	peers, err := t.store.ListClassifications(ctx, cls.IndustryCode)
	if err != nil {
		return nil, nil, apperr.Upstream(err, "trend: list peers")
	}
	members := make([]string, 0, len(peers))
	for _, p := range peers {
		members = append(members, p.Company)
	}
	return cls, members, nil
}

// ESGTrend builds the trend report for a company. Years are the union of
// every year any input series covers, ascending.
func (t *Trend) ESGTrend(ctx context.Context, company string) (*TrendReport, error) {
	cls, members, err := t.resolveCohort(ctx, company)
	if err != nil {
		return nil, err
	}
	return t.esgTrend(ctx, company, cls, members)
}

func (t *Trend) esgTrend(ctx context.Context, company string, cls *model.Classification, members []string) (*TrendReport, error) {
	ratings, err := t.store.ListESGRatings(ctx, members)
	if err != nil {
		return nil, apperr.Upstream(err, "trend: list ratings")
	}
	envs, err := t.store.ListEnvironmentStats(ctx, members)
	if err != nil {
		return nil, apperr.Upstream(err, "trend: list environment stats")
	}

	companyScores := make(map[int]map[string]int)
	industryScores := make(map[int]map[string][]int)
	for i := range ratings {
		r := &ratings[i]
		for _, field := range gradeFields {
			score, ok := t.tables.GradeScore(r.Grade(field))
			if !ok {
				continue
			}
			if r.Company == company {
				if companyScores[r.Year] == nil {
					companyScores[r.Year] = make(map[string]int)
				}
				companyScores[r.Year][field] = score
			}
			if industryScores[r.Year] == nil {
				industryScores[r.Year] = make(map[string][]int)
			}
			industryScores[r.Year][field] = append(industryScores[r.Year][field], score)
		}
	}

	envByYear := make(map[int]*EnvRatioPoint)
	intensityByYear := make(map[int]*IntensityPoint)
	envRatios := make(map[int][]*float64)
	ghg := make(map[int][]*float64)
	energy := make(map[int][]*float64)
	for i := range envs {
		e := &envs[i]
		envRatios[e.Year] = append(envRatios[e.Year], e.InvestmentRatio)
		ghg[e.Year] = append(ghg[e.Year], e.GHGPerRevenue)
		energy[e.Year] = append(energy[e.Year], e.EnergyPerRevenue)
		if e.Company != company {
			continue
		}
		envByYear[e.Year] = &EnvRatioPoint{Company: model.CleanFloat(e.InvestmentRatio)}
		intensityByYear[e.Year] = &IntensityPoint{
			CompanyGHG:    model.CleanFloat(e.GHGPerRevenue),
			CompanyEnergy: model.CleanFloat(e.EnergyPerRevenue),
		}
	}
	for year := range envRatios {
		avg := Mean(envRatios[year])
		if envByYear[year] == nil {
			envByYear[year] = &EnvRatioPoint{}
		}
		envByYear[year].IndustryAvg = avg
		if intensityByYear[year] == nil {
			intensityByYear[year] = &IntensityPoint{}
		}
		intensityByYear[year].IndustryGHG = Mean(ghg[year])
		intensityByYear[year].IndustryEnergy = Mean(energy[year])
	}

	years := make(map[int]bool)
	for y := range companyScores {
		years[y] = true
	}
	for y := range industryScores {
		years[y] = true
	}
	for y := range envByYear {
		years[y] = true
	}

	report := &TrendReport{IndustryName: cls.IndustryName}
	for year := range years {
		ty := TrendYear{
			Year:        year,
			Company:     companyScores[year],
			IndustryAvg: make(map[string]float64),
			EnvRatio:    envByYear[year],
			Intensity:   intensityByYear[year],
		}
		if ty.Company == nil {
			ty.Company = map[string]int{}
		}
		for field, scores := range industryScores[year] {
			var sum int
			for _, s := range scores {
				sum += s
			}
			ty.IndustryAvg[field] = round(float64(sum)/float64(len(scores)), 2)
		}
		report.Years = append(report.Years, ty)
	}
	sort.Slice(report.Years, func(i, j int) bool {
		return report.Years[i].Year < report.Years[j].Year
	})
	return report, nil
}

// BoardYear is one year of the governance basic block.
type BoardYear struct {
	Year                 int      `json:"year"`
	ESG                  string   `json:"esg"`
	OutsideDirectorRatio *float64 `json:"outside_director_ratio"`
	FemaleDirectorRatio  *float64 `json:"female_director_ratio"`
	ShareholderStake     *float64 `json:"shareholder_stake"`
}

// ChartPoint pairs a company value with its cohort average for one year.
type ChartPoint struct {
	Year        int      `json:"year"`
	Company     *float64 `json:"company"`
	IndustryAvg *float64 `json:"industry_avg"`
}

// GovernanceReport is the nonfinancials payload: the board/ownership basics
// per year, chart series with cohort averages, and the embedded ESG trend.
type GovernanceReport struct {
	IndustryName         string       `json:"industry_name"`
	Basic                []BoardYear  `json:"basic"`
	Analysis             []TrendYear  `json:"analysis"`
	OutsideDirectorChart []ChartPoint `json:"outside_director_chart"`
	FemaleDirectorChart  []ChartPoint `json:"female_director_chart"`
	ShareholderChart     []ChartPoint `json:"shareholder_chart"`
}

// Governance builds the nonfinancials report for a company.
func (t *Trend) Governance(ctx context.Context, company string) (*GovernanceReport, error) {
	cls, members, err := t.resolveCohort(ctx, company)
	if err != nil {
		return nil, err
	}
	trend, err := t.esgTrend(ctx, company, cls, members)
	if err != nil {
		return nil, err
	}

	boards, err := t.store.ListBoardStats(ctx, members)
	if err != nil {
		return nil, apperr.Upstream(err, "trend: list board stats")
	}
	ratings, err := t.store.ListESGRatings(ctx, []string{company})
	if err != nil {
		return nil, apperr.Upstream(err, "trend: list ratings")
	}

	overallByYear := make(map[int]string)
	for i := range ratings {
		if ratings[i].Overall != "" {
			overallByYear[ratings[i].Year] = ratings[i].Overall
		}
	}

	companyBoard := make(map[int]*model.BoardStat)
	outside := make(map[int][]*float64)
	female := make(map[int][]*float64)
	stake := make(map[int][]*float64)
	for i := range boards {
		b := &boards[i]
		outside[b.Year] = append(outside[b.Year], b.OutsideDirectorRatio)
		female[b.Year] = append(female[b.Year], b.FemaleDirectorRatio)
		stake[b.Year] = append(stake[b.Year], b.LargestShareholderStake)
		if b.Company == company {
			companyBoard[b.Year] = b
		}
	}

	years := make(map[int]bool)
	for y := range companyBoard {
		years[y] = true
	}
	for y := range overallByYear {
		years[y] = true
	}

	report := &GovernanceReport{
		IndustryName: trend.IndustryName,
		Analysis:     trend.Years,
	}
	for year := range years {
		by := BoardYear{Year: year, ESG: overallByYear[year]}
		if by.ESG == "" {
			by.ESG = "N/A"
		}
		if b := companyBoard[year]; b != nil {
			by.OutsideDirectorRatio = model.CleanFloat(b.OutsideDirectorRatio)
			by.FemaleDirectorRatio = model.CleanFloat(b.FemaleDirectorRatio)
			by.ShareholderStake = model.CleanFloat(b.LargestShareholderStake)
		}
		report.Basic = append(report.Basic, by)
	}
	sort.Slice(report.Basic, func(i, j int) bool {
		return report.Basic[i].Year < report.Basic[j].Year
	})

	report.OutsideDirectorChart = chartSeries(outside, companyBoard, func(b *model.BoardStat) *float64 { return b.OutsideDirectorRatio })
	report.FemaleDirectorChart = chartSeries(female, companyBoard, func(b *model.BoardStat) *float64 { return b.FemaleDirectorRatio })
	report.ShareholderChart = chartSeries(stake, companyBoard, func(b *model.BoardStat) *float64 { return b.LargestShareholderStake })
	return report, nil
}

// chartSeries builds one chart: per year, the company's own value and the
// cohort average. Years where both sides are empty are omitted.
func chartSeries(cohortVals map[int][]*float64, companyByYear map[int]*model.BoardStat, pick func(*model.BoardStat) *float64) []ChartPoint {
	var out []ChartPoint
	for year, vs := range cohortVals {
		avg := Mean(vs)
		var own *float64
		if b := companyByYear[year]; b != nil {
			own = model.CleanFloat(pick(b))
		}
		if avg == nil && own == nil {
			continue
		}
		out = append(out, ChartPoint{Year: year, Company: own, IndustryAvg: avg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}
