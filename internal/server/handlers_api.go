package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListGames(c *gin.Context) {
	games, err := s.games.ListGames(c.Request.Context())
	if err != nil {
		log.Printf("list games failed error=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list games"})
		return
	}
	c.JSON(http.StatusOK, games)
}

func (s *Server) handleMe(c *gin.Context) {
	user, ok := currentUserFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not resolved"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
