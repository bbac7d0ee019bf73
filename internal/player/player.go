// Package player implements the playback state machine driving a
// Playlist through the audio pipeline.
package player

import (
	"sync"
	"time"

	"github.com/madmaxoft/skautan-go/internal/audio/decoder"
	"github.com/madmaxoft/skautan-go/internal/audio/format"
	"github.com/madmaxoft/skautan-go/internal/audio/output"
	"github.com/madmaxoft/skautan-go/internal/playlist"
)

// State is the player's coarse playback state.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

// DeviceFactory opens a fresh output.Device matching the given format,
// injected so Player doesn't depend on a concrete soundcard binding.
type DeviceFactory func(format.PCMFormat) (output.Device, error)

// Signals bundles the callbacks names: started_playback,
// invalid_track, tempo_coeff_changed, and volume_changed. Any may be nil.
type Signals struct {
	StartedPlayback func(item playlist.Item)
	InvalidTrack func(item playlist.Item, err error)
	TempoChanged func(coeff float64)
	VolumeChanged func(coeff float64)
}

// destFormat is the fixed format every song is resampled to before
// playback, matching a typical CD-quality soundcard configuration.
var destFormat = format.PCMFormat{Channels: 2, SampleRate: 44100, Sample: format.SampleInt16}

// Player drives pl through destFormat-format playback on newDevice-created
// devices, keeping per-track tempo/volume "keep across track" flags.
type Player struct {
	mu sync.Mutex
	pl *playlist.Playlist
	state State
	signals Signals

	newDevice DeviceFactory

	dec *decoder.Decoder
	out *output.Output

	tempoCoeff float64
	volumeCoeff float64
	keepTempo bool
	keepVolume bool
}

// New creates a Player over pl, using newDevice to open each track's
// output device.
func New(pl *playlist.Playlist, newDevice DeviceFactory, signals Signals) *Player {
	return &Player{
		pl: pl,
		newDevice: newDevice,
		signals: signals,
		tempoCoeff: 1.0,
		volumeCoeff: 1.0,
	}
}

// State returns the player's current coarse state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Play starts or resumes playback. If stopped, it advances to the next
// playlist item (or the current one, on first call) and begins decoding
// it; if paused, it resumes the existing device.
func (p *Player) Play(now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePaused {
		p.state = StatePlaying
		return nil
	}
	return p.startCurrentOrAdvanceLocked(now)
}

func (p *Player) startCurrentOrAdvanceLocked(now time.Time) error {
	item, ok := p.pl.Current()
	if !ok {
		item, ok = p.pl.Advance()
		if !ok {
			p.state = StateStopped
			return nil
		}
	}
	p.pl.UpdateTrackTimesFromCurrent(now)
	return p.startItemLocked(item)
}

func (p *Player) startItemLocked(item playlist.Item) error {
	dec := decoder.New(item.Song.FileName, destFormat, nil)
	dec.Start()

	device, err := p.newDevice(destFormat)
	if err != nil {
		if p.signals.InvalidTrack != nil {
			p.signals.InvalidTrack(item, err)
		}
		p.state = StateStopped
		return err
	}

	out := output.New(device, dec.Buffer(), nil)
	if !p.keepTempo {
		p.tempoCoeff = 1.0
	}
	if !p.keepVolume {
		p.volumeCoeff = 1.0
	}
	out.SetTempoCoeff(p.tempoCoeff)
	out.SetVolumeCoeff(p.volumeCoeff)
	out.Start()

	p.dec = dec
	p.out = out
	p.state = StatePlaying

	if p.signals.StartedPlayback != nil {
		p.signals.StartedPlayback(item)
	}
	return nil
}

// Pause suspends playback without tearing down the current device.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StatePlaying {
		p.state = StatePaused
	}
}

// Stop tears down the current track's decoder and output device and
// returns to StateStopped.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardownLocked()
	p.state = StateStopped
}

func (p *Player) teardownLocked() {
	if p.dec != nil {
		p.dec.Abort()
		p.dec = nil
	}
	if p.out != nil {
		p.out.Stop()
		p.out = nil
	}
}

// Next tears down the current track and advances to the one after it, per
// 's manual-skip operation.
func (p *Player) Next(now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardownLocked()
	_, ok := p.pl.Advance()
	if !ok {
		p.state = StateStopped
		return nil
	}
	return p.startCurrentOrAdvanceLocked(now)
}

// SetTempoCoeff adjusts the live playback rate. If keep is true, future
// tracks inherit this coefficient too ('s "keep tempo across
// track" flag); otherwise each new track resets to 1.0.
func (p *Player) SetTempoCoeff(coeff float64, keep bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tempoCoeff = coeff
	p.keepTempo = keep
	if p.out != nil {
		p.out.SetTempoCoeff(coeff)
	}
	if p.signals.TempoChanged != nil {
		p.signals.TempoChanged(coeff)
	}
}

// SetVolumeCoeff adjusts the live output gain, with the same keep-flag
// semantics as SetTempoCoeff.
func (p *Player) SetVolumeCoeff(coeff float64, keep bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volumeCoeff = coeff
	p.keepVolume = keep
	if p.out != nil {
		p.out.SetVolumeCoeff(coeff)
	}
	if p.signals.VolumeChanged != nil {
		p.signals.VolumeChanged(coeff)
	}
}

// PositionSeconds returns the current track's playback position, or 0 if
// nothing is playing.
func (p *Player) PositionSeconds() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out == nil {
		return 0
	}
	return p.out.PositionSeconds()
}

// PollAdvanceIfFinished is called periodically (e.g. by cmd/skautan's main
// loop) to detect that the current track's buffer has drained and
// auto-advance to the next one, "player advances
// automatically at end of track" behavior.
func (p *Player) PollAdvanceIfFinished(now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePlaying || p.dec == nil {
		return nil
	}
	select {
	case <-p.dec.Done():
		if p.dec.Buffer().AtEOF() {
			p.teardownLocked()
			_, ok := p.pl.Advance()
			if !ok {
				p.state = StateStopped
				return nil
			}
			return p.startCurrentOrAdvanceLocked(now)
		}
	default:
	}
	return nil
}
