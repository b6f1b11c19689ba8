// Package valuation turns holdings and prices into portfolio rows and a
// summary. Everything here is pure.
package valuation

import (
	"papertrader/src/model"

	"github.com/shopspring/decimal"
)

const (
	PriceDecimalPlaces = 2
	PnlDecimalPlaces   = 2
)

var hundred = decimal.NewFromInt(100)

// Position is a holding with whatever market data could be found for it.
type Position struct {
	Holding model.Holding
	// Price is nil when no live price is available; avg price is used.
	Price *decimal.Decimal
	// QuotePrevClose is the source's previous close, used when the holding
	// has no stored baseline.
	QuotePrevClose *decimal.Decimal
	Name           string
}

type Row struct {
	SecurityID     string          `json:"ticker"`
	CompanyName    string          `json:"company_name"`
	Quantity       int64           `json:"quantity"`
	ProductType    string          `json:"product_type"`
	AvgPrice       decimal.Decimal `json:"avg_price"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	PriceAvailable bool            `json:"price_available"`
	InvestedValue  decimal.Decimal `json:"invested_value"`
	CurrentValue   decimal.Decimal `json:"current_value"`
	Pnl            decimal.Decimal `json:"pnl"`
	PnlPercent     decimal.Decimal `json:"pnl_percent"`
	DayPnl         decimal.Decimal `json:"approx_day_pnl"`
	DayPnlPercent  decimal.Decimal `json:"approx_day_pnl_pct"`
	PrevClosePrice decimal.Decimal `json:"prev_close_price"`
}

type Summary struct {
	PortfolioValue     decimal.Decimal `json:"portfolio_value"`
	TotalInvested      decimal.Decimal `json:"total_invested"`
	TotalHoldingsValue decimal.Decimal `json:"total_holdings_value"`
	TotalPnl           decimal.Decimal `json:"total_pnl"`
	TotalPnlPercent    decimal.Decimal `json:"total_pnl_percent"`
	DayPnl             decimal.Decimal `json:"day_pnl"`
	DayPnlPercent      decimal.Decimal `json:"day_pnl_percent"`
}

type Portfolio struct {
	Cash     decimal.Decimal `json:"cash"`
	Holdings []Row           `json:"holdings"`
	Summary  Summary         `json:"summary"`
}

// Percent returns num/den*100, or 0 when den is 0.
func Percent(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den).Mul(hundred)
}

// prevCloseFor picks the day baseline: stored value, then the quote's
// previous close, then the current price.
func prevCloseFor(p Position, price decimal.Decimal) decimal.Decimal {
	if p.Holding.PrevClosePrice.IsPositive() {
		return p.Holding.PrevClosePrice
	}
	if p.QuotePrevClose != nil && p.QuotePrevClose.IsPositive() {
		return *p.QuotePrevClose
	}
	return price
}

// Value computes rows and summary. Row order follows positions.
func Value(cash decimal.Decimal, positions []Position) Portfolio {
	rows := make([]Row, 0, len(positions))

	var (
		totalInvested  = decimal.Zero
		totalCurrent   = decimal.Zero
		totalPnl       = decimal.Zero
		totalDayPnl    = decimal.Zero
		totalPrevValue = decimal.Zero
	)

	for _, p := range positions {
		h := p.Holding
		qty := decimal.NewFromInt(h.Quantity)

		price := h.AvgPrice
		priced := p.Price != nil
		if priced {
			price = *p.Price
		}

		invested := qty.Mul(h.AvgPrice)
		current := qty.Mul(price)
		pnl := current.Sub(invested)

		prevClose := prevCloseFor(p, price)
		dayPnl := price.Sub(prevClose).Mul(qty)
		prevValue := prevClose.Mul(qty)

		totalInvested = totalInvested.Add(invested)
		totalCurrent = totalCurrent.Add(current)
		totalPnl = totalPnl.Add(pnl)
		totalDayPnl = totalDayPnl.Add(dayPnl)
		totalPrevValue = totalPrevValue.Add(prevValue)

		name := p.Name
		if name == "" {
			name = h.SecurityID
		}

		rows = append(rows, Row{
			SecurityID:     h.SecurityID,
			CompanyName:    name,
			Quantity:       h.Quantity,
			ProductType:    h.ProductType,
			AvgPrice:       h.AvgPrice.Round(PriceDecimalPlaces),
			CurrentPrice:   price.Round(PriceDecimalPlaces),
			PriceAvailable: priced,
			InvestedValue:  invested.Round(PnlDecimalPlaces),
			CurrentValue:   current.Round(PnlDecimalPlaces),
			Pnl:            pnl.Round(PnlDecimalPlaces),
			PnlPercent:     Percent(pnl, invested).Round(2),
			DayPnl:         dayPnl.Round(PnlDecimalPlaces),
			DayPnlPercent:  Percent(dayPnl, prevValue).Round(2),
			PrevClosePrice: prevClose.Round(PriceDecimalPlaces),
		})
	}

	return Portfolio{
		Cash:     cash.Round(2),
		Holdings: rows,
		Summary: Summary{
			PortfolioValue:     cash.Add(totalCurrent).Round(PnlDecimalPlaces),
			TotalInvested:      totalInvested.Round(PnlDecimalPlaces),
			TotalHoldingsValue: totalCurrent.Round(PnlDecimalPlaces),
			TotalPnl:           totalPnl.Round(PnlDecimalPlaces),
			TotalPnlPercent:    Percent(totalPnl, totalInvested).Round(2),
			DayPnl:             totalDayPnl.Round(PnlDecimalPlaces),
			DayPnlPercent:      Percent(totalDayPnl, totalPrevValue).Round(2),
		},
	}
}

// TotalValue is cash plus holdings at the given prices, falling back to avg
// price for anything unpriced. Used for day baselines.
func TotalValue(cash decimal.Decimal, holdings []model.Holding, prices map[string]decimal.Decimal) decimal.Decimal {
	total := cash
	for _, h := range holdings {
		price, ok := prices[h.SecurityID]
		if !ok {
			price = h.AvgPrice
		}
		total = total.Add(price.Mul(decimal.NewFromInt(h.Quantity)))
	}
	return total
}
