package server

import (
	"net/http"

	"scoreboard/internal/config"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const currentUserKey = "current_user"

type Server struct {
	db       *gorm.DB
	cfg      config.Config
	games    GameStore
	identity *identityResolver
	relay    *Relay
}

// New wires the server on conn, or on an in-memory Store when conn is nil.
func New(conn *gorm.DB, cfg config.Config) *Server {
	var (
		games  GameStore
		users  UserStore
		events EventLog
	)
	if conn != nil {
		store := newGormStore(conn)
		games, users, events = store, store, store
	} else {
		store := NewStore()
		games, users, events = store, store, store
	}
	return &Server{
		db:       conn,
		cfg:      cfg,
		games:    games,
		identity: newIdentityResolver(users, cfg.CookieSecret, cfg.CookieSecure),
		relay:    NewRelay(games, users, events),
	}
}

func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", s.handleHealth)

	app := router.Group("/", s.currentUser())
	app.GET("/", s.handleHome)
	app.GET("/games", s.handleListGames)
	app.GET("/me", s.handleMe)
	app.GET("/cable", s.handleWebsocket)
	return router
}
