package animation

import (
	"testing"

	"github.com/gogpu/pngine/pngb"
)

func testModule() *pngb.Module {
	buf := pngb.Serialize(nil, nil, nil, &pngb.AnimationTable{
		DurationMs: 1000,
		Loop:       true,
		Scenes: []pngb.Scene{
			{FrameStringID: 0, StartMs: 0, EndMs: 500},
			{FrameStringID: 1, StartMs: 500, EndMs: 1000},
		},
	}, nil)
	m, err := pngb.Deserialize(buf)
	if err != nil {
		panic(err)
	}
	return m
}

func TestGetSceneTimeMidScene(t *testing.T) {
	m := testModule()
	idx, st, ok := GetSceneTime(m, 750)
	if !ok {
		t.Fatal("expected a scene")
	}
	if idx != 1 {
		t.Fatalf("idx = %d, want 1", idx)
	}
	if st.Normalized != 0.5 {
		t.Errorf("normalized = %v, want 0.5", st.Normalized)
	}
	if st.DurationS != 0.5 {
		t.Errorf("durationS = %v, want 0.5", st.DurationS)
	}
}

func TestGetSceneTimeWrapsWithLoop(t *testing.T) {
	m := testModule()
	idx, _, ok := GetSceneTime(m, 1750) // 1750 mod 1000 = 750 -> scene 1
	if !ok || idx != 1 {
		t.Fatalf("idx=%d ok=%v, want 1,true", idx, ok)
	}
}

func TestActiveFrameStringID(t *testing.T) {
	m := testModule()
	id, ok := ActiveFrameStringID(m, 100)
	if !ok || id != 0 {
		t.Fatalf("id=%d ok=%v, want 0,true", id, ok)
	}
}
