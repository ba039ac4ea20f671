package booking

// PendingRefreshPeriod is the polling hint, in seconds, returned with every booking
const PendingRefreshPeriod = 30

// Envelope is the response shape the retail front end expects from /booking
type Envelope struct {
	StatusCode int     `json:"StatusCode"`
	Error      *string `json:"Error"`
	Warning    *string `json:"Warning"`
	Content    Content `json:"Content"`
}

// Content carries the booked slip and its per-leg outcome
type Content struct {
	ID                   *string         `json:"ID"`
	RedeemCode           *string         `json:"RedeemCode"`
	ExpiredBets          []BetOutcome    `json:"ExpiredBets"`
	FailedBets           []BetOutcome    `json:"FailedBets"`
	ValidBets            []BetOutcome    `json:"ValidBets"`
	Multiples            []MultiOutcome  `json:"Multiples"`
	PendingRefreshPeriod int             `json:"PendingRefreshPeriod"`
	RegulationModel      RegulationModel `json:"RegulationModel"`
}

// BetOutcome is the validation outcome of one leg
type BetOutcome struct {
	ID              string `json:"ID"`
	HasErrorOccured bool   `json:"HasErrorOccured"`
	ErrorMessage    string `json:"ErrorMessage"`
}

// MultiOutcome is returned once per submitted multi group
type MultiOutcome struct {
	Level           int    `json:"Level"`
	HasErrorOccured bool   `json:"HasErrorOccured"`
	ErrorMessage    string `json:"ErrorMessage"`
}

// RegulationModel is static; no regulation checks run here
type RegulationModel struct {
	CustomMessage string `json:"CustomMessage"`
	RealityCheck  int    `json:"RealityCheck"`
	StopGamePlay  bool   `json:"StopGamePlay"`
}

// FailureEnvelope is the response for a booking that stored nothing
func FailureEnvelope(message string) *Envelope {
	return &Envelope{
		StatusCode: 1,
		Error:      &message,
		Content:    emptyContent(),
	}
}

func emptyContent() Content {
	return Content{
		ExpiredBets:          []BetOutcome{},
		FailedBets:           []BetOutcome{},
		ValidBets:            []BetOutcome{},
		Multiples:            []MultiOutcome{},
		PendingRefreshPeriod: PendingRefreshPeriod,
	}
}
