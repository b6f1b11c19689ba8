package externalmodel

// QuoteResponse is the payload of the market-data batch quote endpoint
// (GET /v7/finance/quote?symbols=A,B).
type QuoteResponse struct {
	QuoteResponse struct {
		Result []Quote          `json:"result"`
		Error  *MarketDataError `json:"error"`
	} `json:"quoteResponse"`
}

type Quote struct {
	Symbol                     string   `json:"symbol"`
	ShortName                  string   `json:"shortName"`
	LongName                   string   `json:"longName"`
	Currency                   string   `json:"currency"`
	RegularMarketPrice         *float64 `json:"regularMarketPrice"`
	RegularMarketPreviousClose *float64 `json:"regularMarketPreviousClose"`
}

// ChartResponse is the payload of GET /v8/finance/chart/{symbol}.
type ChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				Currency           string   `json:"currency"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				ChartPreviousClose *float64 `json:"chartPreviousClose"`
				PreviousClose      *float64 `json:"previousClose"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *MarketDataError `json:"error"`
	} `json:"chart"`
}

type MarketDataError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}
