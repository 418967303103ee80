package mk1

import (
	"math"
	"time"

	"github.com/ingyamilmolinar/mk1/internal/audio"
)

const bounceBlock = 64

// BarDuration is the length of one 4/4 bar at bpm.
func BarDuration(bpm int) time.Duration {
	return 4 * time.Minute / time.Duration(bpm)
}

// Bounce plays the pattern from step 0 for play, lets it ring out for tail
// and returns the audio, rendered as fast as possible with the sequencer
// following the audio clock instead of the wall clock. The engine must not
// be attached to an output.
func (c *Controller) Bounce(play, tail time.Duration) []float32 {
	epoch := time.Unix(0, 0)
	c.seq.SetNowFunc(func() time.Time {
		return epoch.Add(time.Duration(c.audio.Now() * float64(time.Second)))
	})
	defer c.seq.SetNowFunc(time.Now)

	sr := float64(c.audio.SampleRate())
	playFrames := int(math.Round(play.Seconds() * sr))
	frames := playFrames + int(math.Round(max(tail, 0).Seconds()*sr))
	out := make([]float32, frames*audio.Channels)
	c.seq.Stop()
	c.seq.Start()
	for off := 0; off < frames; off += bounceBlock {
		n := min(bounceBlock, frames-off)
		if off >= playFrames {
			c.seq.Stop()
		}
		c.seq.Tick()
		c.audio.Render(out[off*audio.Channels : (off+n)*audio.Channels])
	}
	c.seq.Stop()
	c.log.Infof("bounced %v plus %v tail (%d frames)", play, tail, frames)
	return out
}
