package bitget

import "time"

const (
	tickerPath   = "/api/v2/spot/market/tickers"
	successCode  = "00000"
	exchangeName = "BITGET_S"

	maxRetries   = 10
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
)

// restResponse is the common envelope of Bitget V2 REST replies.
type restResponse struct {
	Code        string       `json:"code"`
	Msg         string       `json:"msg"`
	RequestTime int64        `json:"requestTime"`
	Data        []tickerData `json:"data"`
}

// subscribeRequest Structure
type subscribeRequest struct {
	Op   string         `json:"op"`
	Args []subscribeArg `json:"args"`
}

type subscribeArg struct {
	InstType string `json:"instType"`
	Channel  string `json:"channel"`
	InstId   string `json:"instId"`
}

// tickerResponse Structure
type tickerResponse struct {
	Action string       `json:"action"`
	Arg    subscribeArg `json:"arg"`
	Data   []tickerData `json:"data"`
	Ts     int64        `json:"ts"`
}

// tickerData is shared by the REST tickers endpoint and the WS ticker channel.
type tickerData struct {
	Symbol     string `json:"symbol"` // REST
	InstId     string `json:"instId"` // WS
	LastPr     string `json:"lastPr"`
	BaseVolume string `json:"baseVolume"`
	Ts         string `json:"ts"`
}
