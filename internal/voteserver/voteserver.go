// Package voteserver exposes the audience voting HTTP API described in
//, grounded on derat-nup/server/http.go's addHandler
// registration pattern, adapted from App Engine's per-request context
// and auth.Config to a plain net/http.ServeMux and no authorization (the
// vote endpoint is meant for anonymous audience members on a local
// network).
package voteserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/madmaxoft/skautan-go/internal/applog"
	"github.com/madmaxoft/skautan-go/internal/library"
	"github.com/madmaxoft/skautan-go/internal/playlist"
	"github.com/madmaxoft/skautan-go/internal/store"
)

// playlistStartHeader is the client-supplied header naming the absolute
// playlist index the playlist view starts at; absent or unparseable, the
// view starts defaultHistoryWindow items before the current one.
const playlistStartHeader = "x-skautan-playlist-start"

// defaultHistoryWindow bounds how many recently-played songs the playlist
// view exposes when the caller doesn't send playlistStartHeader.
const defaultHistoryWindow = 20

// handlerFunc is the shape every registered endpoint implements, mirroring
// derat-nup's handlerFunc but without the appengine-specific context/auth
// parameters this server doesn't need.
type handlerFunc func(w http.ResponseWriter, r *http.Request)

// Server serves the vote API and a minimal static playlist page.
type Server struct {
	mux *http.ServeMux
	st *store.Store
	pl *playlist.Playlist

	staticDir string
}

// New builds a Server backed by st (for casting votes) and pl (for the
// current playlist view). staticDir, if non-empty, is served under
// /static/.
func New(st *store.Store, pl *playlist.Playlist, staticDir string) *Server {
	s := &Server{mux: http.NewServeMux(), st: st, pl: pl, staticDir: staticDir}
	s.addHandler("/", http.MethodGet, s.handleIndex)
	s.addHandler("/api/playlist", http.MethodGet, s.handlePlaylist)
	s.addHandler("/api/vote", http.MethodPost, s.handleVote)
	if staticDir != "" {
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}
	return s
}

// ServeHTTP implements http.Handler, so a Server can be passed directly to
// http.ListenAndServe.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// addHandler registers fn for path, rejecting requests with the wrong
// method the way derat-nup/server/http.go's addHandler does, minus the
// auth-action branching this local-network server has no use for.
func (s *Server) addHandler(path, method string, fn handlerFunc) {
	s.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			applog.Warnf("voteserver: invalid %s request for %s (expected %s)", r.Method, r.URL.Path, method)
			w.Header().Set("Allow", method)
			http.Error(w, "invalid method", http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	w.Write([]byte(`<!DOCTYPE html><html><head><title>SkauTan voting</title></head>` +
		`<body><div id="app">Loading playlist…</div>` +
		`<script src="/static/vote.js"></script></body></html>`))
}

// playlistItemView is the JSON-visible shape of one playlist entry:
// hash/fileName identify the underlying song, index is its absolute
// position in the playlist (so a client can correlate a vote it casts back
// to the item it was shown), and ratingRC/ratingGT/ratingPop surface the
// song's current rhythm-clarity/genre-typicality/popularity aggregates.
type playlistItemView struct {
	Hash string `json:"hash"`
	FileName string `json:"fileName"`
	Index int `json:"index"`
	Author string `json:"author"`
	Title string `json:"title"`
	Genre string `json:"genre"`
	MPM float64 `json:"mpm"`
	RatingRC float64 `json:"ratingRC"`
	RatingGT float64 `json:"ratingGT"`
	RatingPop float64 `json:"ratingPop"`
}

// handlePlaylist serves the window of playlist items starting at the index
// named by playlistStartHeader, defaulting to defaultHistoryWindow items
// before the currently-playing one when the header is absent or
// unparseable.
func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	start := s.pl.CurrentIndex - defaultHistoryWindow
	if h := r.Header.Get(playlistStartHeader); h != "" {
		if v, err := strconv.Atoi(h); err == nil {
			start = v
		}
	}
	if start < 0 {
		start = 0
	}
	var out []playlistItemView
	for i := start; i < len(s.pl.Items); i++ {
		item := s.pl.Items[i]
		if item.Song == nil {
			continue
		}
		view := playlistItemView{
			FileName: item.Song.FileName,
			Index: i,
			Author: item.Song.PrimaryAuthor(),
			Title: item.Song.PrimaryTitle(),
			Genre: item.Song.PrimaryGenre(),
			MPM: item.Song.PrimaryMPM(),
		}
		if item.Song.HasHash() {
			view.Hash = item.Song.Hash.String()
		}
		if item.Song.SharedData != nil {
			rating := item.Song.SharedData.Data.Rating
			view.RatingRC, _ = rating.RhythmClarity.Get()
			view.RatingGT, _ = rating.GenreTypicality.Get()
			view.RatingPop, _ = rating.Popularity.Get()
		}
		out = append(out, view)
	}
	writeJSON(w, out)
}

// voteResponse is the POST /api/vote response body.
type voteResponse struct {
	Mean float64 `json:"mean"`
}

// handleVote reads the form-encoded songHash/voteType/voteValue fields
// audience clients post, grounded on original_source's VoteServerConnection
// handling the same wire shape. Any parse or validation failure (bad form,
// malformed hash, unknown voteType, non-numeric voteValue) responds 404
// rather than 400/500: the vote endpoint treats a malformed request the
// same as an unrecognized route, since there's no authenticated client to
// usefully report the distinction to.
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.NotFound(w, r)
		return
	}
	hash, err := parseHashParam(r.FormValue("songHash"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	kind, ok := parseVoteType(r.FormValue("voteType"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	value, err := strconv.Atoi(r.FormValue("voteValue"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	mean, err := s.st.CastVote(hash, kind, value, time.Now())
	if err != nil {
		applog.Errorf("voteserver: cast vote: %v", err)
		http.NotFound(w, r)
		return
	}
	writeJSON(w, voteResponse{Mean: mean})
}

// parseVoteType maps the wire-level voteType values to a store.RatingKind.
func parseVoteType(voteType string) (store.RatingKind, bool) {
	switch voteType {
	case "RC":
		return store.RatingRhythmClarity, true
	case "GT":
		return store.RatingGenreTypicality, true
	case "Pop":
		return store.RatingPopularity, true
	case "Local":
		return store.RatingLocal, true
	}
	return "", false
}

func parseHashParam(s string) (library.Hash, error) {
	var h library.Hash
	if len(s) != len(h)*2 {
		return h, errInvalidHash
	}
	for i := range h {
		b, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return h, errInvalidHash
		}
		h[i] = byte(b)
	}
	return h, nil
}

var errInvalidHash = errors.New("invalid hash parameter")
