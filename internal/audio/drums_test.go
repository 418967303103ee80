package audio

import (
	"math"
	"testing"
)

func TestDrumsFinishOnTheirOwn(t *testing.T) {
	insts := map[string]Instrument{
		"kick": Kick{}, "snare": Snare{}, "hihat": HiHat{}, "openhat": OpenHat{},
		"clap": Clap{}, "tom": Tom{}, "rim": Rim{}, "cowbell": Cowbell{},
	}
	for name, inst := range insts {
		v := inst.NewVoice(120, DefaultSampleRate)
		var peak float64
		n := 0
		for ; n < DefaultSampleRate*2; n++ {
			s, done := v.Sample()
			if done {
				break
			}
			peak = math.Max(peak, math.Abs(s))
		}
		if n == DefaultSampleRate*2 {
			t.Errorf("%s: did not finish within 2s", name)
		}
		if peak == 0 || peak > 1 {
			t.Errorf("%s: peak %f outside (0, 1]", name, peak)
		}
	}
}

func TestOpenHatFollowsTempo(t *testing.T) {
	length := func(bpm int) int {
		v := OpenHat{}.NewVoice(bpm, DefaultSampleRate)
		n := 0
		for {
			if _, done := v.Sample(); done {
				return n
			}
			n++
		}
	}
	if slow, fast := length(60), length(240); fast >= slow {
		t.Fatalf("open hat at 240bpm (%d) should be shorter than at 60bpm (%d)", fast, slow)
	}
}

func TestVelocityScalesOutput(t *testing.T) {
	peak := func(vel float64) float64 {
		e := dryEngine(t, Config{})
		_ = e.Play("kick", vel, 0)
		var p float64
		for _, s := range render(e, 0.1) {
			p = math.Max(p, math.Abs(float64(s)))
		}
		return p
	}
	if soft, loud := peak(0.2), peak(1); soft >= loud {
		t.Fatalf("velocity 0.2 peak %f not below velocity 1 peak %f", soft, loud)
	}
}
