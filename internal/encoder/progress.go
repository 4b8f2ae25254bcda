package encoder

import (
	"strconv"
	"strings"
)

// progressParser turns ffmpeg -progress key=value records into a monotonic
// completion fraction. Updates are emitted on each "progress=" record.
type progressParser struct {
	duration  float64
	outTimeUS int64
	last      float64
}

func newProgressParser(duration float64) *progressParser {
	return &progressParser{duration: duration}
}

// parseLine consumes one line of -progress output. It returns a fraction
// and true when a complete record has been seen.
func (p *progressParser) parseLine(line string) (float64, bool) {
	line = strings.TrimSpace(line)
	idx := strings.Index(line, "=")
	if idx == -1 {
		return 0, false
	}
	key, value := line[:idx], line[idx+1:]

	switch key {
	case "out_time_us":
		p.outTimeUS, _ = strconv.ParseInt(value, 10, 64)
	case "progress":
		if value == "end" {
			p.last = 1
			return 1, true
		}
		return p.fraction(), true
	}
	return 0, false
}

func (p *progressParser) fraction() float64 {
	if p.duration <= 0 {
		return p.last
	}
	frac := float64(p.outTimeUS) / 1_000_000 / p.duration
	if frac > 1 {
		frac = 1
	}
	if frac < p.last {
		return p.last
	}
	p.last = frac
	return frac
}
