package mapper

import (
	"strings"
)

const (
	SuffixNSE = ".NS"
	SuffixBSE = ".BO"
)

// foreignSuffixes are passed through untouched by NormalizeTicker.
var foreignSuffixes = []string{".US", ".L", ".TO", ".AX"}

// companyNames is the display-name fallback used when the quote source has
// no short name.
var companyNames = map[string]string{
	"RELIANCE.NS":   "Reliance Industries",
	"TCS.NS":        "Tata Consultancy Services",
	"HDFCBANK.NS":   "HDFC Bank",
	"ICICIBANK.NS":  "ICICI Bank",
	"INFY.NS":       "Infosys",
	"HINDUNILVR.NS": "Hindustan Unilever",
	"BHARTIARTL.NS": "Bharti Airtel",
	"ITC.NS":        "ITC Limited",
	"SBIN.NS":       "State Bank of India",
	"LICI.NS":       "Life Insurance Corp",
	"HCLTECH.NS":    "HCL Technologies",
	"KOTAKBANK.NS":  "Kotak Mahindra Bank",
	"LT.NS":         "Larsen & Toubro",
	"BAJFINANCE.NS": "Bajaj Finance",
	"AXISBANK.NS":   "Axis Bank",
	"ASIANPAINT.NS": "Asian Paints",
	"MARUTI.NS":     "Maruti Suzuki",
	"SUNPHARMA.NS":  "Sun Pharma",
	"TITAN.NS":      "Titan Company",
	"WIPRO.NS":      "Wipro",
	"ULTRACEMCO.NS": "UltraTech Cement",
	"ADANIENT.NS":   "Adani Enterprises",
	"ONGC.NS":       "Oil & Natural Gas",
	"NTPC.NS":       "NTPC Limited",
	"JSWSTEEL.NS":   "JSW Steel",
	"TATAMOTORS.NS": "Tata Motors",
	"POWERGRID.NS":  "Power Grid Corp",
	"BAJAJFINSV.NS": "Bajaj Finserv",
	"TATASTEEL.NS":  "Tata Steel",
	"COALINDIA.NS":  "Coal India",
	"INDUSINDBK.NS": "IndusInd Bank",
	"HINDALCO.NS":   "Hindalco Industries",
	"TECHM.NS":      "Tech Mahindra",
	"GRASIM.NS":     "Grasim Industries",
	"ADANIPORTS.NS": "Adani Ports",
	"BRITANNIA.NS":  "Britannia Industries",
	"CIPLA.NS":      "Cipla",
	"EICHERMOT.NS":  "Eicher Motors",
	"DRREDDY.NS":    "Dr. Reddys Labs",
	"NESTLEIND.NS":  "Nestle India",
	"HEROMOTOCO.NS": "Hero MotoCorp",
	"BAJAJ-AUTO.NS": "Bajaj Auto",
	"BPCL.NS":       "Bharat Petroleum",
	"SHREECEM.NS":   "Shree Cement",
	"TATACONSUM.NS": "Tata Consumer",
	"UPL.NS":        "UPL Limited",
	"APOLLOHOSP.NS": "Apollo Hospitals",
	"DIVISLAB.NS":   "Divis Laboratories",
}

// nameToSymbol maps upper-cased company names to their symbol.
var nameToSymbol = func() map[string]string {
	m := make(map[string]string, len(companyNames))
	for symbol, name := range companyNames {
		m[strings.ToUpper(name)] = symbol
	}
	return m
}()

// NormalizeTicker turns user input into a canonical security id.
// Examples:
//
//	" infy "            -> INFY.NS
//	"TCS.BO"            -> TCS.BO
//	"Tata Motors"       -> TATAMOTORS.NS
//	"AAPL.US"           -> AAPL.US
//
// ok is false for empty input.
func NormalizeTicker(raw string) (string, bool) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if t == "" {
		return "", false
	}

	if strings.HasSuffix(t, SuffixNSE) || strings.HasSuffix(t, SuffixBSE) {
		return t, true
	}

	if symbol, found := nameToSymbol[t]; found {
		return symbol, true
	}

	for _, suffix := range foreignSuffixes {
		if strings.HasSuffix(t, suffix) {
			return t, true
		}
	}

	return t + SuffixNSE, true
}

// IsIndianListing reports whether the id is an NSE or BSE listing, the only
// ids the market-data source prices.
func IsIndianListing(securityID string) bool {
	return strings.HasSuffix(securityID, SuffixNSE) || strings.HasSuffix(securityID, SuffixBSE)
}

// CompanyName returns the static display name, or the id itself.
func CompanyName(securityID string) string {
	if name, ok := companyNames[securityID]; ok {
		return name
	}
	return securityID
}
