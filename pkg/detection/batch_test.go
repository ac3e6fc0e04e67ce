package detection

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

const textractResponse = `[
  {
    "Blocks": [
      {"BlockType": "PAGE", "Geometry": {"BoundingBox": {"Left": 0, "Top": 0, "Width": 1, "Height": 1}}},
      {"BlockType": "LINE", "Text": "Hello world"},
      {
        "BlockType": "WORD",
        "Text": "Hello",
        "Confidence": 99.5,
        "Geometry": {
          "BoundingBox": {"Width": 0.2, "Height": 0.05, "Left": 0.1, "Top": 0.1},
          "Polygon": [{"X": 0.1, "Y": 0.1}, {"X": 0.3, "Y": 0.1}, {"X": 0.3, "Y": 0.15}, {"X": 0.1, "Y": 0.15}]
        }
      }
    ]
  },
  {"Blocks": []},
  {
    "Blocks": [
      {"BlockType": "WORD", "Text": "again", "Geometry": {"BoundingBox": {"Width": 0.1, "Height": 0.02, "Left": 0.5, "Top": 0.5}}}
    ]
  }
]`

func TestLoad(t *testing.T) {
	batches, err := Load(strings.NewReader(textractResponse))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(batches) != 3 {
		t.Fatalf("Load() returned %d batches, want 3", len(batches))
	}
	if len(batches[0].Blocks) != 3 {
		t.Errorf("first batch has %d blocks, want 3", len(batches[0].Blocks))
	}

	word := batches[0].Blocks[2]
	if !word.IsWord() || word.Text != "Hello" {
		t.Errorf("unexpected word block: %+v", word)
	}
	if word.Geometry.BoundingBox.Left != 0.1 || word.Geometry.BoundingBox.Width != 0.2 {
		t.Errorf("unexpected bounding box: %+v", word.Geometry.BoundingBox)
	}
	if len(word.Geometry.Polygon) != 4 {
		t.Errorf("polygon has %d points, want 4", len(word.Geometry.Polygon))
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	_, err := Load(strings.NewReader(`{"Blocks": [}`))
	if err == nil {
		t.Fatal("Load() expected error for malformed JSON")
	}
	if !strings.Contains(err.Error(), "failed to decode OCR response") {
		t.Errorf("unexpected error: %v", err)
	}
}

const partialResponse = `[
  {
    "Blocks": [
      {"BlockType": "WORD", "Text": 7, "Geometry": {"BoundingBox": {"Left": 0.1, "Top": 0.1, "Width": 0.2, "Height": 0.05}}},
      {"BlockType": "WORD", "Text": "kept", "Geometry": {"BoundingBox": {"Left": 0.5, "Top": 0.5, "Width": 0.2, "Height": 0.05}}},
      {"BlockType": ["LINE"], "Text": "unreadable type"},
      {"BlockType": "WORD", "Text": "noleft", "Geometry": {"BoundingBox": {"Top": 0.2, "Width": 0.2, "Height": 0.05}}},
      {
        "BlockType": "WORD",
        "Text": "nopolyxy",
        "Geometry": {
          "BoundingBox": {"Left": 0.1, "Top": 0.3, "Width": 0.2, "Height": 0.05},
          "Polygon": [{}, {"X": 0.3, "Y": 0.3}, {"X": 0.3, "Y": 0.35}, {"X": 0.1}]
        }
      }
    ]
  }
]`

func TestLoadIsolatesMalformedBlocks(t *testing.T) {
	batches, err := Load(strings.NewReader(partialResponse))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	blocks := batches[0].Blocks
	if len(blocks) != 5 {
		t.Fatalf("got %d blocks, want 5", len(blocks))
	}

	tests := []struct {
		name           string
		block          Detection
		isWord         bool
		requirePolygon bool
		want           error
	}{
		{"wrongly typed text", blocks[0], true, false, ErrMalformed},
		{"readable neighbour", blocks[1], true, false, nil},
		{"unreadable block type", blocks[2], false, false, ErrMalformed},
		{"missing left", blocks[3], true, false, ErrIncompleteBox},
		{"polygon points without coordinates", blocks[4], true, true, ErrIncompletePolygon},
		{"polygon ignored when not rotation aware", blocks[4], true, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.block.IsWord() != tt.isWord {
				t.Errorf("IsWord() = %v, want %v", tt.block.IsWord(), tt.isWord)
			}
			err := tt.block.Validate(tt.requirePolygon)
			if tt.want == nil && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}

	if got := CountWords(batches); got != 4 {
		t.Errorf("CountWords() = %d, want 4", got)
	}
}

func TestLoadedBoxIsComplete(t *testing.T) {
	batches, err := Load(strings.NewReader(textractResponse))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	word := batches[0].Blocks[2]
	if !word.Geometry.BoundingBox.Complete() {
		t.Errorf("bounding box should be complete: %+v", word.Geometry.BoundingBox)
	}
	for i, pt := range word.Geometry.Polygon {
		if !pt.Complete() {
			t.Errorf("polygon point %d should be complete", i)
		}
	}
	if err := word.Validate(true); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestSaveThenLoadKeepsFailures(t *testing.T) {
	in := []Batch{
		{Blocks: []Detection{{BlockType: BlockWord, Text: "one"}}},
		{Error: "throttled"},
	}

	var buf bytes.Buffer
	if err := Save(&buf, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d batches, want 2", len(out))
	}
	if out[1].Error != "throttled" {
		t.Errorf("failure not preserved, got %q", out[1].Error)
	}
	if out[0].Blocks[0].Text != "one" {
		t.Errorf("word not preserved, got %+v", out[0].Blocks)
	}
}

func TestSaveNil(t *testing.T) {
	var buf bytes.Buffer
	if err := Save(&buf, nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("Save(nil) = %q, want []", buf.String())
	}
}

func TestGroupIsPositional(t *testing.T) {
	batches := []Batch{
		{Blocks: []Detection{{BlockType: BlockWord, Text: "a"}}},
		{},
		{Blocks: []Detection{{BlockType: BlockWord, Text: "c"}, {BlockType: BlockLine, Text: "c"}}},
	}

	pages := Group(batches)

	if len(pages) != 3 {
		t.Fatalf("Group() returned %d pages, want 3", len(pages))
	}
	if pages[0][0].Text != "a" {
		t.Errorf("page 0 = %+v", pages[0])
	}
	if len(pages[1]) != 0 {
		t.Errorf("page 1 should be empty, got %d detections", len(pages[1]))
	}
	if len(pages[2]) != 2 {
		t.Errorf("page 2 has %d detections, want 2", len(pages[2]))
	}
}

func TestCountWords(t *testing.T) {
	batches, err := Load(strings.NewReader(textractResponse))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := CountWords(batches); got != 2 {
		t.Errorf("CountWords() = %d, want 2", got)
	}
}

func TestBatchText(t *testing.T) {
	batches, err := Load(strings.NewReader(textractResponse))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []string{"Hello", "", "again"}
	for i, b := range batches {
		if got := b.Text(); got != want[i] {
			t.Errorf("page %d Text() = %q, want %q", i, got, want[i])
		}
	}
}

func TestValidate(t *testing.T) {
	box := &NormalizedBox{Left: 0.1, Top: 0.1, Width: 0.2, Height: 0.05}
	polygon := Polygon{{X: 0.1, Y: 0.1}, {X: 0.3, Y: 0.1}, {X: 0.3, Y: 0.15}, {X: 0.1, Y: 0.15}}

	tests := []struct {
		name           string
		detection      Detection
		requirePolygon bool
		want           error
	}{
		{
			name:      "well formed",
			detection: Detection{BlockType: BlockWord, Text: "ok", Geometry: &Geometry{BoundingBox: box, Polygon: polygon}},
			want:      nil,
		},
		{
			name:      "missing text",
			detection: Detection{BlockType: BlockWord, Geometry: &Geometry{BoundingBox: box, Polygon: polygon}},
			want:      ErrEmptyText,
		},
		{
			name:      "missing geometry",
			detection: Detection{BlockType: BlockWord, Text: "ok"},
			want:      ErrMissingGeometry,
		},
		{
			name:      "missing bounding box",
			detection: Detection{BlockType: BlockWord, Text: "ok", Geometry: &Geometry{Polygon: polygon}},
			want:      ErrMissingBoundingBox,
		},
		{
			name:      "zero width",
			detection: Detection{BlockType: BlockWord, Text: "ok", Geometry: &Geometry{BoundingBox: &NormalizedBox{Height: 0.1}}},
			want:      ErrDegenerateBox,
		},
		{
			name:           "short polygon when rotation aware",
			detection:      Detection{BlockType: BlockWord, Text: "ok", Geometry: &Geometry{BoundingBox: box, Polygon: polygon[:2]}},
			requirePolygon: true,
			want:           ErrShortPolygon,
		},
		{
			name:      "short polygon ignored otherwise",
			detection: Detection{BlockType: BlockWord, Text: "ok", Geometry: &Geometry{BoundingBox: box}},
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.detection.Validate(tt.requirePolygon)
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPolygonQuad(t *testing.T) {
	p := Polygon{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6}, {X: 7, Y: 8}, {X: 9, Y: 10}}
	q, err := p.Quad()
	if err != nil {
		t.Fatalf("Quad() error = %v", err)
	}
	if q.TopLeft != (Point{X: 1, Y: 2}) || q.TopRight != (Point{X: 3, Y: 4}) || q.BottomRight != (Point{X: 5, Y: 6}) || q.BottomLeft != (Point{X: 7, Y: 8}) {
		t.Errorf("Quad() = %+v", q)
	}

	if _, err := p[:3].Quad(); !errors.Is(err, ErrShortPolygon) {
		t.Errorf("Quad() on 3 points = %v, want ErrShortPolygon", err)
	}
}
