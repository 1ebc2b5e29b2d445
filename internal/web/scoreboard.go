package web

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

type ScoreboardData struct {
	GameName string
	Score    int
	UserID   uint
}

func Scoreboard(data ScoreboardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		name := templ.EscapeString(data.GameName)
		if _, err := io.WriteString(w, `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Scoreboard</title>
  </head>
  <body>
    <main class="shell">
      <header class="hero">
        <span class="tag">`+name+`</span>
        <h1 id="score">`+strconv.Itoa(data.Score)+`</h1>
        <p>Signed in as player #`+strconv.FormatUint(uint64(data.UserID), 10)+`</p>
        <p id="status">Connecting...</p>
      </header>
      <section class="panel">
        <button data-delta="1" class="primary">+1</button>
        <button data-delta="5" class="primary">+5</button>
        <button data-delta="-1" class="secondary">-1</button>
      </section>
    </main>
    <script>
      const scoreEl = document.getElementById("score");
      const statusEl = document.getElementById("status");
      const scheme = location.protocol === "https:" ? "wss" : "ws";
      const socket = new WebSocket(scheme + "://" + location.host + "/cable");

      socket.addEventListener("open", () => {
        socket.send(JSON.stringify({ command: "subscribe" }));
      });
      socket.addEventListener("close", () => {
        statusEl.textContent = "Disconnected";
      });
      socket.addEventListener("message", (event) => {
        const data = JSON.parse(event.data);
        if (typeof data.score === "number") {
          scoreEl.textContent = data.score;
          return;
        }
        if (data.type === "confirm_subscription") {
          statusEl.textContent = "Live";
        } else if (data.type === "error") {
          statusEl.textContent = data.message;
        }
      });

      document.querySelectorAll("button[data-delta]").forEach((button) => {
        button.addEventListener("click", () => {
          const score = parseInt(button.dataset.delta, 10);
          socket.send(JSON.stringify({ command: "scoreUpdate", data: { score } }));
        });
      });
    </script>
  </body>
</html>
`); err != nil {
			return err
		}
		return nil
	})
}
