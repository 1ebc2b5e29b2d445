package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// currentUser resolves the request's user on every request, plain or
// websocket, so handlers share one notion of the current user.
func (s *Server) currentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.identity.Resolve(c.Writer, c.Request)
		if err != nil {
			log.Printf("resolve user failed remote=%s error=%v", c.Request.RemoteAddr, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve user"})
			return
		}
		c.Set(currentUserKey, user)
		c.Next()
	}
}

func currentUserFrom(c *gin.Context) (User, bool) {
	value, ok := c.Get(currentUserKey)
	if !ok {
		return User{}, false
	}
	user, ok := value.(User)
	return user, ok
}
