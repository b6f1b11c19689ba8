package mapper

import (
	"sort"
	"strings"

	"papertrader/src/externalmodel"
	"papertrader/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// majorStocks are large caps whose BSE listing is mapped onto NSE, where
// the quote source has better coverage.
var majorStocks = map[string]struct{}{
	"RELIANCE": {}, "TCS": {}, "HDFCBANK": {}, "INFY": {}, "ITC": {},
	"SBIN": {}, "BHARTIARTL": {}, "HINDUNILVR": {}, "ICICIBANK": {}, "KOTAKBANK": {},
	"LT": {}, "AXISBANK": {}, "BAJFINANCE": {}, "MARUTI": {}, "ASIANPAINT": {},
	"TITAN": {}, "ULTRACEMCO": {}, "SUNPHARMA": {}, "WIPRO": {}, "TATAMOTORS": {},
	"ADANIENT": {}, "ADANIPORTS": {}, "POWERGRID": {}, "NTPC": {}, "ONGC": {},
}

// CanonicalSecurityID maps a brokerage (symbol, exchange) pair onto a
// security id.
func CanonicalSecurityID(symbol, exchange string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))

	switch strings.ToUpper(strings.TrimSpace(exchange)) {
	case "NSE":
		return s + SuffixNSE
	case "BSE":
		if _, major := majorStocks[s]; major {
			return s + SuffixNSE
		}
		return s + SuffixBSE
	}

	// Unknown exchanges, ETFs and index funds included, default to NSE.
	return s + SuffixNSE
}

// snapshotEntry accumulates one symbol across holdings and positions.
type snapshotEntry struct {
	symbol    string
	exchange  string
	quantity  int64
	avgPrice  decimal.Decimal
	prevClose decimal.Decimal
	product   string
}

// MapBrokerageSnapshot merges settled holdings and open positions into the
// holdings to write for userID. Intraday (MIS) and non-positive positions
// are dropped; a symbol appearing more than once, in either source, has its
// quantities summed.
// The average price of the first source seen is kept.
func MapBrokerageSnapshot(
	userID string,
	holdings []externalmodel.KiteHolding,
	positions []externalmodel.KitePosition,
) []model.Holding {

	merged := make(map[string]*snapshotEntry)
	order := make([]string, 0, len(holdings)+len(positions))

	for _, h := range holdings {
		total := h.TotalQuantity()
		if total <= 0 {
			continue
		}
		product := h.Product
		if product == "" {
			product = model.ProductTypeCNC
		}
		key := strings.ToUpper(h.TradingSymbol)
		if existing, ok := merged[key]; ok {
			existing.quantity += total
			continue
		}

		merged[key] = &snapshotEntry{
			symbol:    key,
			exchange:  h.Exchange,
			quantity:  total,
			avgPrice:  h.AveragePrice,
			prevClose: h.ClosePrice,
			product:   product,
		}
		order = append(order, key)
	}

	for _, p := range positions {
		if p.Quantity <= 0 {
			continue
		}
		product := strings.ToUpper(p.Product)
		switch product {
		case model.ProductTypeMTF, model.ProductTypeNRML, model.ProductTypeCNC:
		default:
			logger.WithFields(map[string]interface{}{
				"mapper":  "MapBrokerageSnapshot",
				"symbol":  p.TradingSymbol,
				"product": p.Product,
			}).Debug("Skipping non-delivery position")
			continue
		}

		key := strings.ToUpper(p.TradingSymbol)
		if existing, ok := merged[key]; ok {
			existing.quantity += p.Quantity
			if p.Exchange == "NSE" {
				existing.exchange = "NSE"
			}
			continue
		}

		merged[key] = &snapshotEntry{
			symbol:    key,
			exchange:  p.Exchange,
			quantity:  p.Quantity,
			avgPrice:  p.AveragePrice,
			prevClose: p.ClosePrice,
			product:   product,
		}
		order = append(order, key)
	}

	out := make([]model.Holding, 0, len(order))
	seen := make(map[string]int)
	for _, key := range order {
		e := merged[key]
		securityID := CanonicalSecurityID(e.symbol, e.exchange)

		// NSE and BSE rows of one symbol can collapse onto one id.
		if idx, dup := seen[securityID]; dup {
			out[idx].Quantity += e.quantity
			continue
		}
		seen[securityID] = len(out)

		out = append(out, model.Holding{
			UserID:         userID,
			SecurityID:     securityID,
			Quantity:       e.quantity,
			AvgPrice:       e.avgPrice,
			PrevClosePrice: e.prevClose,
			ProductType:    e.product,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].SecurityID < out[j].SecurityID })

	return out
}
