package progress

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tier is the subscription level attached to a user.
type Tier int

const (
	TierUnknown Tier = iota
	TierBasic
	TierPro
	TierElite
)

func (t Tier) String() string {
	switch t {
	case TierBasic:
		return "basic"
	case TierPro:
		return "pro"
	case TierElite:
		return "elite"
	default:
		return "unknown"
	}
}

// DisplayName is the tier name as shown to users ("Pro").
func (t Tier) DisplayName() string {
	return cases.Title(language.English).String(t.String())
}

// ParseTier maps a tier name to a Tier, ignoring case and surrounding space.
func ParseTier(s string) (Tier, bool) {
	switch cases.Fold().String(strings.TrimSpace(s)) {
	case "basic":
		return TierBasic, true
	case "pro":
		return TierPro, true
	case "elite":
		return TierElite, true
	default:
		return TierUnknown, false
	}
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	parsed, ok := ParseTier(string(b))
	if !ok {
		return fmt.Errorf("unknown tier %q", string(b))
	}
	*t = parsed
	return nil
}

// TrackCategory is the gating category of a track.
type TrackCategory int

const (
	CategoryStandard TrackCategory = iota
	CategoryBeginner
	CategoryAdvanced
)

const (
	beginnerTrackID = "beginner"
	advancedTrackID = "advanced"
)

// CategoryOf classifies a track id.
func CategoryOf(trackID string) TrackCategory {
	switch trackID {
	case beginnerTrackID:
		return CategoryBeginner
	case advancedTrackID:
		return CategoryAdvanced
	default:
		return CategoryStandard
	}
}
