package ebird

// observation is one record from the eBird recent-observations endpoints.
type observation struct {
	SpeciesCode     string  `json:"speciesCode"`
	ComName         string  `json:"comName"`
	SciName         string  `json:"sciName"`
	LocID           string  `json:"locId"`
	LocName         string  `json:"locName"`
	ObsDt           string  `json:"obsDt"` // "2006-01-02 15:04", no zone
	HowMany         *int    `json:"howMany"`
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	ObsValid        bool    `json:"obsValid"`
	ObsReviewed     bool    `json:"obsReviewed"`
	LocationPrivate bool    `json:"locationPrivate"`
	SubID           string  `json:"subId"`
}

// taxon is one record from the eBird taxonomy endpoint.
type taxon struct {
	SciName     string `json:"sciName"`
	ComName     string `json:"comName"`
	SpeciesCode string `json:"speciesCode"`
	Category    string `json:"category"`
}
