package audio

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"

	"github.com/lixenwraith/warpfield/parameter"
)

// WaveType defines oscillator wave shapes
type WaveType int

const (
	WaveSine WaveType = iota
	WaveSaw
	WaveNoise
)

// sweep is an oscillator gliding exponentially from one frequency to another
type sweep struct {
	from, to float64
	phase    float64
	duration int
	position int
	wave     WaveType
	rate     beep.SampleRate
}

// NewSweep creates an oscillator whose pitch glides from..to over duration
// Equal frequencies give a steady tone
func NewSweep(from, to float64, duration time.Duration, wave WaveType, rate beep.SampleRate) beep.Streamer {
	return &sweep{
		from:     from,
		to:       to,
		duration: rate.N(duration),
		wave:     wave,
		rate:     rate,
	}
}

func (s *sweep) freq() float64 {
	if s.duration <= 1 || s.from <= 0 || s.to <= 0 {
		return s.from
	}
	t := float64(s.position) / float64(s.duration-1)
	return s.from * math.Pow(s.to/s.from, t)
}

func (s *sweep) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if s.position >= s.duration {
			return i, i > 0
		}

		var val float64
		switch s.wave {
		case WaveSine:
			val = math.Sin(2 * math.Pi * s.phase)
		case WaveSaw:
			val = 2.0 * (s.phase - 0.5)
		case WaveNoise:
			val = rand.Float64()*2 - 1
		}
		samples[i][0] = val
		samples[i][1] = val

		s.phase += s.freq() / float64(s.rate)
		s.phase -= math.Floor(s.phase)
		s.position++
	}
	return len(samples), true
}

func (s *sweep) Err() error { return nil }

// envelope applies a linear attack and release to a stream
type envelope struct {
	streamer     beep.Streamer
	position     int
	attack       int
	release      int
	releaseStart int
	total        int
}

// NewEnvelope shapes s with attack and release ramps inside duration
func NewEnvelope(s beep.Streamer, duration, attack, release time.Duration, rate beep.SampleRate) beep.Streamer {
	total := rate.N(duration)
	att := min(rate.N(attack), total)
	rel := min(rate.N(release), total-att)
	return &envelope{
		streamer:     s,
		attack:       att,
		release:      rel,
		releaseStart: total - rel,
		total:        total,
	}
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	if e.position >= e.total {
		return 0, false
	}
	if room := e.total - e.position; len(samples) > room {
		samples = samples[:room]
	}
	n, ok = e.streamer.Stream(samples)

	for i := 0; i < n; i++ {
		vol := 1.0
		if e.position < e.attack {
			vol = float64(e.position) / float64(e.attack)
		} else if e.position >= e.releaseStart && e.release > 0 {
			vol = float64(e.total-e.position) / float64(e.release)
		}
		samples[i][0] *= vol
		samples[i][1] *= vol
		e.position++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.streamer.Err() }

// newVolume scales s linearly, math.Log2(0) is -Inf so zero is mapped to silent
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol), Silent: false}
}

// BoostSound is a rising saw sweep over a short noise rush
func BoostSound(rate beep.SampleRate, volume float64) beep.Streamer {
	d := parameter.BoostSoundDuration
	tone := NewEnvelope(
		NewSweep(parameter.BoostSweepLow, parameter.BoostSweepHigh, d, WaveSaw, rate),
		d, parameter.BoostSoundAttack, parameter.BoostSoundRelease, rate)
	rush := NewEnvelope(
		NewSweep(0, 0, d, WaveNoise, rate),
		d, parameter.BoostSoundAttack, parameter.BoostSoundRelease, rate)

	return newVolume(beep.Mix(newVolume(tone, 0.6), newVolume(rush, 0.25)), volume)
}

// UnboostSound is a falling sine sweep
func UnboostSound(rate beep.SampleRate, volume float64) beep.Streamer {
	d := parameter.UnboostSoundDuration
	tone := NewEnvelope(
		NewSweep(parameter.BoostSweepHigh/2, parameter.BoostSweepLow/2, d, WaveSine, rate),
		d, parameter.UnboostSoundAttack, parameter.UnboostSoundRelease, rate)
	return newVolume(tone, volume)
}
