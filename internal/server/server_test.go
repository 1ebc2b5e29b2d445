package server

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"testing"
)

func TestHealth(t *testing.T) {
	_, ts := startServer(t)

	resp := doRequest(t, nil, ts, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if cookies := resp.Cookies(); len(cookies) != 0 {
		t.Fatalf("expected no cookies from health check, got %v", cookies)
	}
}

func TestListGamesOmitsScore(t *testing.T) {
	srv, ts := startServer(t)

	resp := doRequest(t, nil, ts, http.MethodGet, "/games", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if games := decodeList(t, resp); len(games) != 0 {
		t.Fatalf("expected no games yet, got %v", games)
	}

	ctx := context.Background()
	game, err := srv.games.AmbientGame(ctx)
	if err != nil {
		t.Fatalf("ambient game: %v", err)
	}
	if _, err := srv.games.AddScore(ctx, game.ID, 7); err != nil {
		t.Fatalf("add score: %v", err)
	}

	resp = doRequest(t, nil, ts, http.MethodGet, "/games", nil)
	games := decodeList(t, resp)
	if len(games) != 1 {
		t.Fatalf("expected one game, got %v", games)
	}
	if games[0]["id"] != float64(game.ID) || games[0]["name"] != ambientGameName {
		t.Fatalf("unexpected game listing %v", games[0])
	}
	if _, ok := games[0]["score"]; ok {
		t.Fatalf("expected score to be absent from listing, got %v", games[0])
	}
}

func TestMeReplaysIssuedCookie(t *testing.T) {
	_, ts := startServer(t)
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{Jar: jar}

	first := doRequest(t, client, ts, http.MethodGet, "/me", nil)
	if first.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, first.StatusCode)
	}
	if !hasCookie(first, userCookieName) {
		t.Fatalf("expected %s cookie on first response", userCookieName)
	}
	firstUser := decodeBody(t, first)

	second := doRequest(t, client, ts, http.MethodGet, "/me", nil)
	if hasCookie(second, userCookieName) {
		t.Fatalf("expected cookie to be reused, got a new one")
	}
	secondUser := decodeBody(t, second)
	if firstUser["id"] != secondUser["id"] {
		t.Fatalf("expected same user, got %v and %v", firstUser["id"], secondUser["id"])
	}
}

func TestMeWithoutCookieCreatesDistinctUsers(t *testing.T) {
	_, ts := startServer(t)

	first := decodeBody(t, doRequest(t, nil, ts, http.MethodGet, "/me", nil))
	second := decodeBody(t, doRequest(t, nil, ts, http.MethodGet, "/me", nil))
	if first["id"] == second["id"] {
		t.Fatalf("expected distinct users without cookies, got %v twice", first["id"])
	}
}

func TestTamperedCookieCreatesNewUser(t *testing.T) {
	_, ts := startServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/me", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: userCookieName, Value: "1"})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if !hasCookie(resp, userCookieName) {
		t.Fatalf("expected a fresh %s cookie", userCookieName)
	}
}

func TestHomePage(t *testing.T) {
	_, ts := startServer(t)

	resp := doRequest(t, nil, ts, http.MethodGet, "/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "/cable") {
		t.Fatalf("expected page to connect to /cable")
	}
	if !strings.Contains(string(body), `<h1 id="score">0</h1>`) {
		t.Fatalf("expected score 0 before any game exists")
	}

	games := decodeList(t, doRequest(t, nil, ts, http.MethodGet, "/games", nil))
	if len(games) != 0 {
		t.Fatalf("expected home page not to create a game, got %v", games)
	}
}

func hasCookie(resp *http.Response, name string) bool {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name && cookie.Value != "" {
			return true
		}
	}
	return false
}
