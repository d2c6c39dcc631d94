package dto

import "github.com/talktojesus/api_server/internal/model"

// SongListRequest song catalog query
type SongListRequest struct {
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=10"`
	Search string `form:"search"`
}

// SongListResponse one page of songs plus the total match count
type SongListResponse struct {
	Data  []model.Song `json:"data"`
	Count int64        `json:"count"`
}
