package stealth

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// DelayProfile names a jitter range applied before each outgoing request.
type DelayProfile string

const (
	ProfileCautious   DelayProfile = "cautious"
	ProfileNormal     DelayProfile = "normal"
	ProfileAggressive DelayProfile = "aggressive"
	ProfileOff        DelayProfile = "off"
)

// ParseDelayProfile validates a profile name. Empty means normal.
func ParseDelayProfile(s string) (DelayProfile, error) {
	switch p := DelayProfile(s); p {
	case "":
		return ProfileNormal, nil
	case ProfileCautious, ProfileNormal, ProfileAggressive, ProfileOff:
		return p, nil
	default:
		return "", fmt.Errorf("unknown delay profile %q", s)
	}
}

// HumanDelay sleeps a random duration in [Min, Max) so request timing does
// not look scripted.
type HumanDelay struct {
	Min time.Duration
	Max time.Duration
}

func NewHumanDelay(profile DelayProfile) *HumanDelay {
	switch profile {
	case ProfileCautious:
		return &HumanDelay{Min: 2 * time.Second, Max: 5 * time.Second}
	case ProfileAggressive:
		return &HumanDelay{Min: 200 * time.Millisecond, Max: 800 * time.Millisecond}
	case ProfileOff:
		return &HumanDelay{}
	default:
		return &HumanDelay{Min: 500 * time.Millisecond, Max: 2 * time.Second}
	}
}

func (h *HumanDelay) Wait(ctx context.Context) error {
	d := h.Next()
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *HumanDelay) Next() time.Duration {
	if h.Min >= h.Max {
		return h.Min
	}
	return h.Min + time.Duration(rand.Int64N(int64(h.Max-h.Min)))
}
