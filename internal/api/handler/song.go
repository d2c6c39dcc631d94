package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/talktojesus/api_server/internal/model/dto"
	"github.com/talktojesus/api_server/internal/pkg/response"
	"github.com/talktojesus/api_server/internal/service"
)

type SongHandler struct {
	songService *service.SongService
}

func NewSongHandler(songService *service.SongService) *SongHandler {
	return &SongHandler{
		songService: songService,
	}
}

// List returns a page of the song catalog
// GET /api/v1/songs?page=1&limit=10&search=grace
func (h *SongHandler) List(c *gin.Context) {
	var req dto.SongListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ParamError(c, "invalid query parameters")
		return
	}

	resp, err := h.songService.ListSongs(c.Request.Context(), &req)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, resp)
}
