package handler

import (
	"zoopr/internal/pass/models"
	"zoopr/internal/pass/service"
)

type TokenResponse struct {
	TokenID  uint64 `json:"tokenId"`
	Owner    string `json:"owner"`
	TokenURI string `json:"tokenURI"`
}

func toTokenResponse(tok *models.Token) TokenResponse {
	return TokenResponse{
		TokenID:  tok.ID,
		Owner:    tok.Owner.Hex(),
		TokenURI: tok.URI,
	}
}

type CollectionResponse struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Stage       string `json:"stage"`
	StageCap    uint64 `json:"stageCap"`
	Fees        string `json:"fees"`
	TotalCap    uint64 `json:"totalCap"`
	TotalMinted uint64 `json:"totalMinted"`
	StageMinted uint64 `json:"stageMinted"`
}

func toCollectionResponse(stage models.StageDetail, total, stageMinted uint64) CollectionResponse {
	return CollectionResponse{
		Name:        service.Name,
		Symbol:      service.Symbol,
		Stage:       stage.Label,
		StageCap:    stage.StageCap,
		Fees:        stage.Fee.String(),
		TotalCap:    service.TotalCap,
		TotalMinted: total,
		StageMinted: stageMinted,
	}
}

type BalanceResponse struct {
	Account string `json:"account"`
	Balance int    `json:"balance"`
}
