package main

import "math"

const (
	gangCenter        = 0.5
	gangMoveThreshold = 0.001
)

// propagate recomputes follower values for every leader, in leader
// index order. Followers always sit above their leader, so index order
// guarantees a leader is final before its followers are rewritten.
func (e *Engine) propagate() {
	for i := 0; i < NumFaders; i++ {
		cfg := &e.configs[i]
		if cfg.GangSpan <= 0 {
			continue
		}
		leader := &e.faders[i]
		followers := e.gangRange(i, cfg.GangSpan)

		// Leader movement accumulates against the value at the last
		// propagation, so a slow continuous sweep still fires once it
		// adds up past the threshold.
		if math.Abs(leader.Value-leader.lastGangValue) <= gangMoveThreshold {
			if cfg.GangMode == GangRelative {
				// A parked relative leader re-anchors its followers to
				// wherever they currently sit, preserving manual edits.
				for _, j := range followers {
					e.faders[j].Reference = e.faders[j].Value
				}
			}
			continue
		}
		leader.lastGangValue = leader.Value

		switch cfg.GangMode {
		case GangRelative:
			for _, j := range followers {
				e.faders[j].Value = clamp01(relativeFollow(leader.Value, e.faders[j].Reference))
			}
		default:
			offset := e.absoluteOffset(leader.Value, followers)
			for _, j := range followers {
				e.faders[j].Value = clamp01(e.faders[j].Reference + offset)
			}
		}
	}
}

// gangRange returns the follower indices for a leader: the span above
// it, clipped at the last channel and truncated before any nested
// leader. Groups never overlap.
func (e *Engine) gangRange(leader, span int) []int {
	end := leader + span
	if end > NumFaders-1 {
		end = NumFaders - 1
	}
	var out []int
	for j := leader + 1; j <= end; j++ {
		if e.configs[j].GangSpan > 0 {
			break
		}
		out = append(out, j)
	}
	return out
}

// relativeFollow scales a follower from its own reference: a leader
// below center compresses the follower linearly toward 0, above center
// stretches it toward 1, and at center reproduces the reference.
func relativeFollow(leader, ref float64) float64 {
	switch {
	case leader < gangCenter:
		return ref * (leader / gangCenter)
	case leader > gangCenter:
		return ref + (1-ref)*((leader-gangCenter)/(1-gangCenter))
	default:
		return ref
	}
}

// absoluteOffset derives the common signed offset for absolute mode
// from the group's reference band: the leader's full excursion from
// center to an endpoint carries the most-constrained follower exactly
// to 0 or 1.
func (e *Engine) absoluteOffset(leader float64, followers []int) float64 {
	if len(followers) == 0 {
		return 0
	}
	refMin, refMax := 1.0, 0.0
	for _, j := range followers {
		r := e.faders[j].Reference
		if r < refMin {
			refMin = r
		}
		if r > refMax {
			refMax = r
		}
	}
	excursion := (leader - gangCenter) / gangCenter
	if leader >= gangCenter {
		return excursion * (1 - refMax)
	}
	return excursion * refMin
}
