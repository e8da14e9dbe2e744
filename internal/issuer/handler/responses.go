package handler

import (
	"zoopr/internal/issuer/models"
	"zoopr/internal/issuer/service"
)

type TokenResponse struct {
	TokenID  uint64 `json:"tokenId"`
	Owner    string `json:"owner"`
	Username string `json:"username"`
	TokenURI string `json:"tokenURI"`
}

func toTokenResponse(tok *models.Token) TokenResponse {
	return TokenResponse{
		TokenID:  tok.ID,
		Owner:    tok.Owner.Hex(),
		Username: tok.Username,
		TokenURI: tok.URI,
	}
}

type CollectionResponse struct {
	Name        string `json:"name"`
	Stage       string `json:"stage"`
	StageCap    uint64 `json:"stageCap"`
	Fees        string `json:"fees"`
	Cap         uint64 `json:"cap"`
	TotalMinted uint64 `json:"totalMinted"`
	StageMinted uint64 `json:"stageMinted"`
}

func toCollectionResponse(stage models.StageDetail, cap, total, stageMinted uint64) CollectionResponse {
	return CollectionResponse{
		Name:        service.Name,
		Stage:       stage.Label,
		StageCap:    stage.StageCap,
		Fees:        stage.Fee.String(),
		Cap:         cap,
		TotalMinted: total,
		StageMinted: stageMinted,
	}
}

type NameResponse struct {
	Username string `json:"username"`
	Minted   bool   `json:"minted"`
}

type FreeMintStatusResponse struct {
	Account string `json:"account"`
	Used    bool   `json:"used"`
}
