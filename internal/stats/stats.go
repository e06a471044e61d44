package stats

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hy4k/aurelius/internal/domain"
)

// MaxCategorySlices bounds the category breakdown to the largest spending
// groups; anything past the top 8 is dropped from the chart data.
const MaxCategorySlices = 8

// CategorySlice is one entry of the expense-by-category breakdown.
type CategorySlice struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// TrendPoint is one calendar month's income/expense totals. Month is the
// display label ("Jan 2006"); ordering is computed from the underlying
// year-month key, never by re-parsing the label.
type TrendPoint struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Summary holds every derived figure the dashboard renders for one mode.
type Summary struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	SavingsRatio decimal.Decimal `json:"savings_ratio"`
	BurnRate     decimal.Decimal `json:"burn_rate"`
	CategoryData []CategorySlice `json:"category_data"`
	TrendData    []TrendPoint    `json:"trend_data"`
}

type monthKey struct {
	year  int
	month time.Month
}

var hundred = decimal.NewFromInt(100)

// Compute derives the dashboard summary from a transaction list. The input is
// expected to already be restricted to a single mode; Compute itself is a pure
// function of its argument and never mutates it.
func Compute(txs []*domain.Transaction) Summary {
	income := decimal.Zero
	expense := decimal.Zero

	catTotals := make(map[string]decimal.Decimal)
	var catOrder []string

	type monthTotals struct {
		income  decimal.Decimal
		expense decimal.Decimal
	}
	months := make(map[monthKey]*monthTotals)

	for _, tx := range txs {
		key := monthKey{year: tx.Date.Year(), month: tx.Date.Month()}
		mt, ok := months[key]
		if !ok {
			mt = &monthTotals{income: decimal.Zero, expense: decimal.Zero}
			months[key] = mt
		}

		switch tx.Type {
		case domain.TypeCredit:
			income = income.Add(tx.Amount)
			mt.income = mt.income.Add(tx.Amount)
		case domain.TypeDebit:
			expense = expense.Add(tx.Amount)
			mt.expense = mt.expense.Add(tx.Amount)

			if _, seen := catTotals[tx.Category]; !seen {
				catOrder = append(catOrder, tx.Category)
			}
			catTotals[tx.Category] = catTotals[tx.Category].Add(tx.Amount)
		}
	}

	// Savings ratio is unclamped and may be negative; with zero income it is
	// defined as zero regardless of expenses.
	ratio := decimal.Zero
	if income.IsPositive() {
		ratio = income.Sub(expense).Mul(hundred).Div(income)
	}

	categoryData := make([]CategorySlice, 0, len(catOrder))
	for _, name := range catOrder {
		categoryData = append(categoryData, CategorySlice{Name: name, Value: catTotals[name]})
	}
	// Stable sort keeps equal sums in first-seen order.
	sort.SliceStable(categoryData, func(i, j int) bool {
		return categoryData[i].Value.GreaterThan(categoryData[j].Value)
	})
	if len(categoryData) > MaxCategorySlices {
		categoryData = categoryData[:MaxCategorySlices]
	}

	keys := make([]monthKey, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	trendData := make([]TrendPoint, 0, len(keys))
	for _, k := range keys {
		mt := months[k]
		label := time.Date(k.year, k.month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
		trendData = append(trendData, TrendPoint{Month: label, Income: mt.income, Expense: mt.expense})
	}

	return Summary{
		TotalIncome:  income,
		TotalExpense: expense,
		SavingsRatio: ratio,
		BurnRate:     expense,
		CategoryData: categoryData,
		TrendData:    trendData,
	}
}
