package server

import (
	"log"
	"net/http"

	"scoreboard/internal/web"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleHome(c *gin.Context) {
	game, found, err := s.games.FindAmbientGame(c.Request.Context())
	if err != nil {
		log.Printf("home view failed error=%v", err)
		c.String(http.StatusInternalServerError, "failed to load game")
		return
	}
	if !found {
		game = Game{Name: ambientGameName}
	}
	user, _ := currentUserFrom(c)
	templ.Handler(web.Scoreboard(web.ScoreboardData{
		GameName: game.Name,
		Score:    game.Score,
		UserID:   user.ID,
	})).ServeHTTP(c.Writer, c.Request)
}
