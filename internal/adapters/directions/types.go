package directions

type directionsResponse struct {
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message"`
	Routes       []route `json:"routes"`
}

type route struct {
	Summary          string   `json:"summary"`
	Legs             []leg    `json:"legs"`
	OverviewPolyline polyline `json:"overview_polyline"`
}

type leg struct {
	StartAddress string     `json:"start_address"`
	EndAddress   string     `json:"end_address"`
	Distance     valueField `json:"distance"`
	Duration     valueField `json:"duration"`
	Steps        []step     `json:"steps"`
}

type step struct {
	Polyline polyline `json:"polyline"`
}

type valueField struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

type polyline struct {
	Points string `json:"points"`
}
