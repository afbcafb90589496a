package state

import (
	"math"
	"time"
)

// Speed limits in timesteps per second.
const (
	MinSpeed     = 0.25
	MaxSpeed     = 16
	DefaultSpeed = 2
)

// PlaybackState manages solution playback. Times are in timesteps and may be
// fractional between two configurations.
type PlaybackState struct {
	CurrentTime float64
	MaxTime     float64 // number of transitions in the solution
	Speed       float64 // timesteps per second
	Playing     bool
	lastUpdate  time.Time
}

// NewPlaybackState creates a paused playback at t=0.
func NewPlaybackState(maxTime float64) *PlaybackState {
	return &PlaybackState{
		MaxTime:    maxTime,
		Speed:      DefaultSpeed,
		lastUpdate: time.Now(),
	}
}

// TogglePlay toggles playback on/off, rewinding first when at the end.
func (p *PlaybackState) TogglePlay() {
	if p.Playing {
		p.Pause()
		return
	}
	if p.CurrentTime >= p.MaxTime {
		p.CurrentTime = 0
	}
	p.Play()
}

// Play starts playback.
func (p *PlaybackState) Play() {
	p.Playing = true
	p.lastUpdate = time.Now()
}

// Pause stops playback.
func (p *PlaybackState) Pause() {
	p.Playing = false
}

// Reset rewinds to t=0 and pauses.
func (p *PlaybackState) Reset() {
	p.CurrentTime = 0
	p.Playing = false
}

// Advance moves playback forward by the wall time elapsed since the last
// call.
func (p *PlaybackState) Advance() {
	now := time.Now()
	elapsed := now.Sub(p.lastUpdate)
	p.lastUpdate = now
	p.AdvanceBy(elapsed)
}

// AdvanceBy moves playback forward by d at the current speed. Playback stops
// at MaxTime.
func (p *PlaybackState) AdvanceBy(d time.Duration) {
	if !p.Playing {
		return
	}
	p.CurrentTime += d.Seconds() * p.Speed
	if p.CurrentTime >= p.MaxTime {
		p.CurrentTime = p.MaxTime
		p.Playing = false
	}
}

// SetTime seeks, clamped to [0, MaxTime].
func (p *PlaybackState) SetTime(t float64) {
	p.CurrentTime = math.Max(0, math.Min(t, p.MaxTime))
}

// StepForward pauses and jumps to the next whole timestep.
func (p *PlaybackState) StepForward() {
	p.Pause()
	p.SetTime(math.Floor(p.CurrentTime) + 1)
}

// StepBack pauses and jumps to the previous whole timestep.
func (p *PlaybackState) StepBack() {
	p.Pause()
	p.SetTime(math.Ceil(p.CurrentTime) - 1)
}

// SetSpeed sets the playback speed, clamped to [MinSpeed, MaxSpeed].
func (p *PlaybackState) SetSpeed(speed float64) {
	p.Speed = math.Max(MinSpeed, math.Min(speed, MaxSpeed))
}

// Faster doubles the speed.
func (p *PlaybackState) Faster() { p.SetSpeed(p.Speed * 2) }

// Slower halves the speed.
func (p *PlaybackState) Slower() { p.SetSpeed(p.Speed / 2) }

// Progress returns current progress as 0-1.
func (p *PlaybackState) Progress() float64 {
	if p.MaxTime <= 0 {
		return 0
	}
	return p.CurrentTime / p.MaxTime
}
