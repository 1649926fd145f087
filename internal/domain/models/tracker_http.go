package models

type LeaderboardRequest struct {
	Window int `query:"window" json:"window" default:"24" validate:"oneof=24 48 168"`
	Limit  int `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=100"`
}

type PnLRequest struct {
	Participant string `query:"participant" json:"participant" validate:"required"`
	Asset       string `query:"asset" json:"asset" validate:"required"`
}

type PerformanceRequest struct {
	Participant string `query:"participant" json:"participant" validate:"required"`
	Window      int    `query:"window" json:"window" default:"24" validate:"gte=1,lte=8760"`
}

type BalanceRequest struct {
	Participant string `query:"participant" json:"participant" validate:"required"`
	Asset       string `query:"asset" json:"asset" validate:"required"`
}

type ProfileRequest struct {
	Participant string `query:"participant" json:"participant" validate:"required"`
}
