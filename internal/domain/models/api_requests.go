package models

// HistoryRequest filters the history endpoint.
type HistoryRequest struct {
	Limit int `query:"limit" default:"120" validate:"gte=1,lte=1440"`
}

// AlertsRequest filters the alerts endpoint.
type AlertsRequest struct {
	Limit int `query:"limit" default:"50" validate:"gte=1,lte=200"`
}
