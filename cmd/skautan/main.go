// Command skautan runs the SkauTan playback engine: it scans a music
// library, serves the audience voting API, and drives playback through
// templates and filters. Grounded on
// update_music_db/update_music_db.go's flag+log.Fatal startup style.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"time"

	"github.com/madmaxoft/skautan-go/internal/applog"
	"github.com/madmaxoft/skautan-go/internal/audio/format"
	"github.com/madmaxoft/skautan-go/internal/audio/output"
	"github.com/madmaxoft/skautan-go/internal/backup"
	"github.com/madmaxoft/skautan-go/internal/config"
	"github.com/madmaxoft/skautan-go/internal/dated"
	"github.com/madmaxoft/skautan-go/internal/filter"
	"github.com/madmaxoft/skautan-go/internal/hashcalc"
	"github.com/madmaxoft/skautan-go/internal/library"
	"github.com/madmaxoft/skautan-go/internal/metadata"
	"github.com/madmaxoft/skautan-go/internal/player"
	"github.com/madmaxoft/skautan-go/internal/playlist"
	"github.com/madmaxoft/skautan-go/internal/store"
	"github.com/madmaxoft/skautan-go/internal/taskpool"
	"github.com/madmaxoft/skautan-go/internal/tempo"
	"github.com/madmaxoft/skautan-go/internal/voteserver"
)

// pollInterval is how often the main loop checks for the current track
// finishing so it can auto-advance, "player advances
// automatically at end of track" behavior.
const pollInterval = 250 * time.Millisecond

func main() {
	configPath := flag.String("config", "", "path to JSON config file")
	libraryOverride := flag.String("library", "", "override the config file's libraryRoot")
	voteAddrOverride := flag.String("vote-addr", "", "override the config file's voteServerAddr")
	renderTo := flag.String("render-to", "", "if set, render the first playlist track's PCM to this file instead of opening a soundcard")
	flag.Parse()

	if *configPath == "" {
		applog.Fatalf("-config is required")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		applog.Fatalf("loading config: %v", err)
	}
	if *libraryOverride != "" {
		cfg.LibraryRoot = *libraryOverride
	}
	if *voteAddrOverride != "" {
		cfg.VoteServerAddr = *voteAddrOverride
	}

	st, err := store.Open(cfg.DatabasePath, cfg.BackupDir)
	if err != nil {
		applog.Fatalf("opening library database: %v", err)
	}
	defer st.Close()

	applog.Infof("scanning library root %s", cfg.LibraryRoot)
	pool := taskpool.New()
	if err := scanLibrary(cfg.LibraryRoot, st, pool); err != nil {
		applog.Fatalf("scanning library: %v", err)
	}
	pool.Shutdown()

	if cfg.BackupDir != "" {
		if err := backup.Daily(cfg.BackupDir, cfg.DatabasePath, time.Now()); err != nil {
			applog.Warnf("daily backup failed: %v", err)
		}
	}

	pl := playlist.New()
	if err := fillInitialPlaylist(st, pl, time.Now()); err != nil {
		applog.Warnf("filling initial playlist: %v", err)
	}

	if cfg.VoteServerAddr != "" {
		srv := voteserver.New(st, pl, cfg.VoteServerStaticDir)
		go func() {
			applog.Infof("vote server listening on %s", cfg.VoteServerAddr)
			if err := http.ListenAndServe(cfg.VoteServerAddr, srv); err != nil {
				applog.Errorf("vote server exited: %v", err)
			}
		}()
	}

	runPlayer(pl, *renderTo)
}

// fillInitialPlaylist loads the library index and every stored template,
// then auto-fills pl from the first template found (by position). A
// library with no templates yet leaves pl empty; that's not an error.
func fillInitialPlaylist(st *store.Store, pl *playlist.Playlist, now time.Time) error {
	idx, err := st.LoadLibraryIndex()
	if err != nil {
		return fmt.Errorf("loading library index: %w", err)
	}
	filters, err := st.LoadAllFilters()
	if err != nil {
		return fmt.Errorf("loading filters: %w", err)
	}
	filtersByID := make(map[int64]*filter.Filter, len(filters))
	for _, f := range filters {
		filtersByID[f.ID] = f
	}
	templates, err := st.LoadAllTemplates(filtersByID)
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}
	if len(templates) == 0 {
		applog.Infof("no templates stored yet; starting with an empty playlist")
		return nil
	}

	candidates := idx.Candidates()
	n := pl.AddFromTemplate(templates[0], candidates, now, pl.ReferenceWindow(0), nil)
	applog.Infof("seeded playlist with %d song(s) from template %q", n, templates[0].Name)
	return nil
}

// scanLibrary walks root for audio files. A file the store already knows
// about has its freshly-read tags merged into the stored record
// (dated.Optional.UpdateIfNewer, via library.MergeSong) rather than
// clobbering any manual edit made since the last scan. A file the store has
// never seen is staged in new_song_files and handed to pool for
// hashing, tag extraction, and tempo detection; once that completes it's
// promoted into songs and its SharedData is merged in the same way.
func scanLibrary(root string, st *store.Store, pool *taskpool.Pool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			applog.Warnf("walking %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			applog.Warnf("stat %s: %v", path, err)
			return nil
		}

		now := time.Now()
		scanned := &library.Song{FileName: path, FileSize: info.Size()}
		scanned.TagFileName = metadata.ParseFileName(path, now)
		if embedded, err := metadata.ReadEmbedded(path, now); err == nil {
			scanned.TagID3 = embedded
		}

		existing, known, err := st.SongFromFileName(path)
		if err != nil {
			applog.Warnf("looking up %s: %v", path, err)
			return nil
		}
		if known {
			library.MergeSong(existing, scanned)
			if err := st.UpsertSong(existing); err != nil {
				applog.Warnf("saving %s: %v", path, err)
			}
			return nil
		}

		if err := st.AddSongFile(path, info.Size(), now); err != nil {
			applog.Warnf("staging %s: %v", path, err)
			return nil
		}
		pool.Submit(taskpool.NewFuncTask(func() {
			hashAndPromote(st, scanned, path, now)
		}, nil))
		return nil
	})
}

// hashAndPromote computes song's content hash, detects its tempo, and
// promotes it out of the "new files" staging state. It runs on a taskpool
// worker, off the directory-walk goroutine.
func hashAndPromote(st *store.Store, song *library.Song, path string, now time.Time) {
	result, err := hashcalc.Compute(path, nil)
	if err != nil {
		applog.Warnf("hashing %s: %v", path, err)
		return
	}
	song.SetHash(result.Hash)

	tempoResult, err := detectTempoForFile(path, song.PrimaryGenre())
	if err != nil {
		applog.Warnf("detecting tempo for %s: %v", path, err)
	}

	if err := st.SongHashCalculated(song); err != nil {
		applog.Warnf("promoting %s: %v", path, err)
		return
	}

	fresh := library.NewSharedData(result.Hash)
	fresh.Length = dated.NewAt(result.LengthSeconds, now)
	if tempoResult.MeasuresPerMinute > 0 {
		fresh.DetectedTempo = dated.NewAt(tempoResult.MeasuresPerMinute, now)
	}

	sd := fresh
	if existing, ok, err := st.LoadSharedData(result.Hash); err != nil {
		applog.Warnf("loading shared data for %s: %v", path, err)
	} else if ok {
		// This content hash is already known, typically because another
		// file with identical audio was scanned earlier: merge rather than
		// overwrite so the earlier file's ratings/notes survive.
		library.MergeSharedData(existing, fresh)
		sd = existing
	}
	if err := st.UpsertSharedData(sd); err != nil {
		applog.Warnf("saving shared data for %s: %v", path, err)
	}
}

// detectTempoForFile decodes path a second time (hashAndPromote's
// hashcalc.Compute pass already consumed the PCM for hashing) and runs the
// beats-per-minute detector over it, genre-adjusted using whatever tag
// metadata is already available for the file.
func detectTempoForFile(path, genre string) (tempo.Result, error) {
	ctx, err := format.Open(path)
	if err != nil {
		return tempo.Result{}, err
	}
	defer ctx.Close()

	var pcm []byte
	var srcFormat format.PCMFormat
	if _, _, err := ctx.Decode(func(fr format.Frame) bool {
		srcFormat = fr.Format
		pcm = append(pcm, fr.PCM...)
		return true
	}, nil); err != nil {
		return tempo.Result{}, err
	}
	return tempo.DetectFromFormat(pcm, srcFormat, tempo.Options{Genre: genre}), nil
}

// runPlayer drives pl to completion through internal/player.Player. With
// renderTo set, playback is restricted to pl's current track and rendered
// to a PCM file instead of a soundcard (no concrete soundcard binding
// exists in this pipeline; see output.DiscardDevice); otherwise every
// device write is discarded and the loop polls, auto-advancing through
// the whole playlist, until the player stops after the last item.
func runPlayer(pl *playlist.Playlist, renderTo string) {
	signals := player.Signals{
		StartedPlayback: func(item playlist.Item) {
			applog.Infof("now playing %s", item.Song.FileName)
		},
		InvalidTrack: func(item playlist.Item, err error) {
			applog.Warnf("skipping invalid track %s: %v", item.Song.FileName, err)
		},
	}

	var newDevice player.DeviceFactory
	if renderTo != "" {
		newDevice = func(f format.PCMFormat) (output.Device, error) {
			return output.NewPCMFileDevice(renderTo, f)
		}
		if len(pl.Items) > 1 {
			pl = &playlist.Playlist{Items: pl.Items[:1], CurrentIndex: -1}
		}
	} else {
		newDevice = func(f format.PCMFormat) (output.Device, error) {
			return output.NewDiscardDevice(f)
		}
	}

	p := player.New(pl, newDevice, signals)
	if len(pl.Items) == 0 {
		applog.Infof("playlist is empty; nothing to play")
		return
	}
	if err := p.Play(time.Now()); err != nil {
		applog.Fatalf("starting playback: %v", err)
	}

	for p.State() != player.StateStopped {
		if err := p.PollAdvanceIfFinished(time.Now()); err != nil {
			applog.Warnf("advancing playback: %v", err)
		}
		time.Sleep(pollInterval)
	}
	if renderTo != "" {
		applog.Infof("rendered playlist to %s", renderTo)
	}
}
