// Package animation implements the scene-at-time lookup the dispatcher
// uses to drive shader uniforms from an animation timeline (spec.md §4.9).
// The binary search and loop semantics themselves live on *pngb.Module
// (the data they operate over); this package adds the per-scene time
// math frames need for interpolation uniforms.
package animation

import "github.com/gogpu/pngine/pngb"

// SceneTime is what a frame's shader uniforms need to interpolate within
// the active scene.
type SceneTime struct {
	SceneTimeS float64
	DurationS  float64
	Normalized float64
}

// GetSceneTime resolves nowMs against m's animation table and returns the
// active scene's index plus its normalized playback position. ok is false
// if there is no animation table, or nowMs falls outside a non-looping
// timeline.
func GetSceneTime(m *pngb.Module, nowMs uint32) (idx int, t SceneTime, ok bool) {
	sceneIdx, found := m.FindSceneAtTime(nowMs)
	if !found {
		return 0, SceneTime{}, false
	}
	scene := m.Animation.Scenes[sceneIdx]

	effective := nowMs
	if m.Animation.Loop && m.Animation.DurationMs > 0 {
		effective = nowMs % m.Animation.DurationMs
	}

	duration := scene.EndMs - scene.StartMs
	elapsed := effective - scene.StartMs

	t = SceneTime{
		SceneTimeS: float64(elapsed) / 1000.0,
		DurationS:  float64(duration) / 1000.0,
	}
	if duration > 0 {
		t.Normalized = float64(elapsed) / float64(duration)
	}
	return sceneIdx, t, true
}

// ActiveFrameStringID returns the string_id of the frame that should be
// executing at nowMs, so the dispatcher can select which frame body to
// run for an animated module.
func ActiveFrameStringID(m *pngb.Module, nowMs uint32) (uint16, bool) {
	idx, _, ok := GetSceneTime(m, nowMs)
	if !ok {
		return 0, false
	}
	return m.Animation.Scenes[idx].FrameStringID, true
}
