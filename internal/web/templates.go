package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/app"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/domain"
)

type templates struct {
	base  *template.Template
	game  *template.Template
	board *template.Template
	index *template.Template
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"cellSymbol": func(c domain.Cell) string {
			switch c {
			case domain.X:
				return "X"
			case domain.O:
				return "O"
			default:
				return ""
			}
		},
		"eq": func(a, b any) bool { return a == b },
	}
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Funcs(funcs()).Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>Tic-Tac-Toe</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
<style>
.grid{display:grid;grid-template-columns:repeat(3,4rem);gap:.25rem}
.cell{width:4rem;height:4rem;font-size:2rem}
.cell.hint{outline:2px dashed #888}
.again:hover span{display:none}
.again:hover::after{content:attr(data-hover)}
</style>
</head><body>{{template "content" .}}</body></html>`))
	// Define the board template within the same set so game can include it
	template.Must(base.New("board").Funcs(funcs()).Parse(boardTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(`<h1>Tic-Tac-Toe</h1><form action="/game" method="post"><button>New game</button></form>`))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<h1>Tic-Tac-Toe</h1>
<div hx-ext="sse" hx-sse="connect:/game/{{.ID}}/events">
  <div id="board-stream" hx-sse="swap:board">{{template "board" .Board}}</div>
</div>`))
	board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
	return &templates{base: base, game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

const boardTemplate = `<div id="board" data-phase="{{.Phase}}">
  {{if .Error}}<div class="alert">{{.Error}}</div>{{end}}
  {{if .Over}}
  <form hx-post="/game/{{.ID}}/reset" hx-target="#board" hx-swap="outerHTML" method="post">
    <button type="submit" id="status" class="again" data-hover="Play Again?"><span>{{.Status}}</span></button>
  </form>
  {{else}}
  <div id="status">{{.Status}}</div>
  {{end}}
  <div class="grid">
  {{range $i, $c := .Board}}
    <form hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post">
      <input type="hidden" name="cell" value="{{$i}}">
      <button type="submit" class="cell{{if eq $i $.Hint}} hint{{end}}"{{if or $.Over (ne (cellSymbol $c) "")}} disabled{{end}}>{{cellSymbol $c}}</button>
    </form>
  {{end}}
  </div>
  {{if not .Over}}
  <form hx-post="/game/{{.ID}}/hint" hx-target="#board" hx-swap="outerHTML" method="post"><button type="submit">Hint</button></form>
  {{end}}
</div>
`

// boardData feeds the board fragment.
type boardData struct {
	ID     string
	Board  domain.Board
	Phase  string
	Status string
	Over   bool
	Hint   int
	Error  string
}

func newBoardData(gs app.GameState, errMsg string) boardData {
	return boardData{
		ID:     gs.ID,
		Board:  gs.Game.Board,
		Phase:  gs.Game.Phase.String(),
		Status: app.StatusText(gs.Game),
		Over:   gs.Game.Over,
		Hint:   gs.Hint,
		Error:  errMsg,
	}
}

// Data models for templates
type pageData struct {
	ID    string
	Board boardData
}

// Helper to set cookie
func ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie("player_id"); err == nil && c.Value != "" {
		return c.Value
	}
	v := app.NewPlayerID()
	http.SetCookie(w, &http.Cookie{Name: "player_id", Value: v, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	return v
}
