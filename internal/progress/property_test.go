package progress_test

import (
	"fmt"
	"testing"

	"github.com/p-n-ai/tsea/internal/curriculum"
	"github.com/p-n-ai/tsea/internal/progress"
	"pgregory.net/rapid"
)

var allTiers = []progress.Tier{progress.TierUnknown, progress.TierBasic, progress.TierPro, progress.TierElite}

// genCurriculum draws a small curriculum over a fixed set of track ids.
func genCurriculum(rt *rapid.T) *curriculum.Curriculum {
	tracks := []curriculum.Track{
		{ID: "beginner", Name: "Beginner"},
		{ID: "intermediate", Name: "Intermediate"},
		{ID: "advanced", Name: "Advanced"},
	}
	numModules := rapid.IntRange(0, 5).Draw(rt, "numModules")
	modules := make([]curriculum.Module, 0, numModules)
	for i := 0; i < numModules; i++ {
		m := curriculum.Module{
			ID:      fmt.Sprintf("m%d", i),
			TrackID: rapid.SampledFrom([]string{"beginner", "intermediate", "advanced"}).Draw(rt, "track"),
		}
		numLessons := rapid.IntRange(0, 4).Draw(rt, "numLessons")
		for j := 0; j < numLessons; j++ {
			m.Lessons = append(m.Lessons, curriculum.Lesson{ID: fmt.Sprintf("l%d", j)})
		}
		modules = append(modules, m)
	}
	c, err := curriculum.New(tracks, modules)
	if err != nil {
		rt.Fatalf("curriculum.New() error = %v", err)
	}
	return c
}

// allKeys lists every completable item in declaration order.
func allKeys(c *curriculum.Curriculum) []progress.Key {
	var keys []progress.Key
	for _, m := range c.Modules() {
		for _, l := range m.Lessons {
			keys = append(keys, progress.LessonKey(m.ID, l.ID))
		}
		keys = append(keys, progress.QuizKey(m.ID))
	}
	return keys
}

func TestProperty_ModulePctMonotonicAndBounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		c := genCurriculum(rt)
		keys := allKeys(c)
		if len(keys) == 0 {
			return
		}
		order := rapid.Permutation(keys).Draw(rt, "order")

		p := progress.New()
		prev := make(map[string]float64)
		for _, k := range order {
			p[k] = true
			for _, m := range c.Modules() {
				pct := progress.ModuleCompletionPct(p, m)
				if pct < 0 || pct > 100 {
					rt.Fatalf("module %s pct = %v out of [0,100]", m.ID, pct)
				}
				if pct < prev[m.ID] {
					rt.Fatalf("module %s pct decreased %v -> %v", m.ID, prev[m.ID], pct)
				}
				prev[m.ID] = pct
			}
		}
	})
}

func TestProperty_TrackPctFullIffAllModulesFull(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		c := genCurriculum(rt)
		p := progress.New()
		for _, k := range allKeys(c) {
			if rapid.Bool().Draw(rt, "done") {
				p[k] = true
			}
		}

		for _, track := range c.Tracks() {
			modules := c.ModulesForTrack(track.ID)
			allFull := len(modules) > 0
			for _, m := range modules {
				if progress.ModuleCompletionPct(p, m) != 100 {
					allFull = false
				}
			}
			full := progress.TrackCompletionPct(p, c, track) == 100
			if full != allFull {
				rt.Fatalf("track %s: pct==100 is %v but all modules full is %v", track.ID, full, allFull)
			}
		}
	})
}

func TestProperty_NextActivityNoneIffVisibleComplete(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		c := genCurriculum(rt)
		tier := rapid.SampledFrom(allTiers).Draw(rt, "tier")
		p := progress.New()
		for _, k := range allKeys(c) {
			if rapid.Bool().Draw(rt, "done") {
				p[k] = true
			}
		}

		visibleComplete := true
		for _, m := range c.Modules() {
			track, _ := c.Track(m.TrackID)
			if !progress.IsTrackVisible(tier, track) {
				continue
			}
			if progress.ModuleCompletionPct(p, m) != 100 {
				visibleComplete = false
			}
		}

		act, ok := progress.NextActivity(p, c, tier)
		if ok == visibleComplete {
			rt.Fatalf("NextActivity ok=%v (%+v) but visible complete=%v", ok, act, visibleComplete)
		}
		if ok {
			track, _ := c.Track(mustModule(rt, c, act.ModuleID).TrackID)
			if !progress.IsTrackVisible(tier, track) {
				rt.Fatalf("NextActivity returned module %s on hidden track %s", act.ModuleID, track.ID)
			}
		}
	})
}

func TestProperty_RecordIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		moduleID := rapid.StringMatching(`[a-z]{1,8}`).Draw(rt, "module")
		lessonID := rapid.StringMatching(`[a-z]{1,8}`).Draw(rt, "lesson")
		times := rapid.IntRange(1, 5).Draw(rt, "times")

		once := progress.New()
		progress.RecordLessonComplete(once, moduleID, lessonID)

		many := progress.New()
		for i := 0; i < times; i++ {
			progress.RecordLessonComplete(many, moduleID, lessonID)
		}

		if len(once) != len(many) {
			rt.Fatalf("len once=%d many=%d", len(once), len(many))
		}
		for k := range once {
			if !many[k] {
				rt.Fatalf("key %v missing after repeated record", k)
			}
		}
	})
}

func TestProperty_VisibilityIgnoresProgress(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tier := rapid.SampledFrom(allTiers).Draw(rt, "tier")
		trackID := rapid.SampledFrom([]string{"beginner", "intermediate", "advanced", "other"}).Draw(rt, "track")
		name := rapid.String().Draw(rt, "name")

		a := progress.IsTrackVisible(tier, curriculum.Track{ID: trackID})
		b := progress.IsTrackVisible(tier, curriculum.Track{ID: trackID, Name: name})
		if a != b {
			rt.Fatalf("visibility depends on more than (tier, id)")
		}
	})
}

func mustModule(rt *rapid.T, c *curriculum.Curriculum, id string) curriculum.Module {
	m, ok := c.Module(id)
	if !ok {
		rt.Fatalf("module %s not found", id)
	}
	return m
}
