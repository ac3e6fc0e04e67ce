package detection

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Group builds the page index from a per-page batch list. The page index is
// the batch's position in the slice, never anything read from its content.
func Group(batches []Batch) PageDetections {
	pages := make(PageDetections, len(batches))
	for i, batch := range batches {
		pages[i] = batch.Blocks
	}
	return pages
}

// UnmarshalJSON decodes each block on its own. A block that cannot be read
// is kept as a malformed detection so only that word is lost.
func (b *Batch) UnmarshalJSON(data []byte) error {
	var raw struct {
		Blocks []json.RawMessage `json:"Blocks"`
		Error  string            `json:"Error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	b.Error = raw.Error
	b.Blocks = make([]Detection, 0, len(raw.Blocks))
	for _, msg := range raw.Blocks {
		var d Detection
		if err := json.Unmarshal(msg, &d); err != nil {
			d = malformed(msg, err)
		}
		b.Blocks = append(b.Blocks, d)
	}
	return nil
}

// malformed keeps the block type when it is readable so a broken WORD is
// still counted as a word
func malformed(msg json.RawMessage, err error) Detection {
	var head struct {
		BlockType json.RawMessage `json:"BlockType"`
	}
	d := Detection{decodeErr: err}
	if json.Unmarshal(msg, &head) == nil {
		var blockType string
		if json.Unmarshal(head.BlockType, &blockType) == nil {
			d.BlockType = BlockType(blockType)
		}
	}
	return d
}

// Load decodes a JSON array of page responses, each with a "Blocks" key
func Load(r io.Reader) ([]Batch, error) {
	var batches []Batch
	if err := json.NewDecoder(r).Decode(&batches); err != nil {
		return nil, fmt.Errorf("failed to decode OCR response: %w", err)
	}
	return batches, nil
}

// Save encodes page responses in the same layout Load reads
func Save(w io.Writer, batches []Batch) error {
	if batches == nil {
		batches = []Batch{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(batches); err != nil {
		return fmt.Errorf("failed to encode OCR response: %w", err)
	}
	return nil
}

// CountWords returns the number of WORD detections across all pages
func CountWords(batches []Batch) int {
	count := 0
	for _, batch := range batches {
		for _, block := range batch.Blocks {
			if block.IsWord() {
				count++
			}
		}
	}
	return count
}

// Text joins the text of the page's WORD detections in reading order as
// returned by the provider
func (b Batch) Text() string {
	var words []string
	for _, block := range b.Blocks {
		if block.IsWord() && block.Text != "" {
			words = append(words, block.Text)
		}
	}
	return strings.Join(words, " ")
}
