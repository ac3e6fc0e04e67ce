package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"codeberg.org/go-pdf/fpdf"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/ocrpdf/pkg/detection"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/pdfdoc"
)

func newOptionsCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addOptionFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	return cmd
}

func TestLoadOptions(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ocrpdf.yaml")
	if err := os.WriteFile(configPath, []byte("render_dpi: 200\nprovider: azure\nconcurrency: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, cmd *cobra.Command)
		wantErr bool
	}{
		{
			name: "defaults",
			args: nil,
			check: func(t *testing.T, cmd *cobra.Command) {
				opts, err := loadOptions(cmd)
				if err != nil {
					t.Fatal(err)
				}
				if opts.RenderDPI != 100 || opts.Provider != "textract" || !opts.RotationAware {
					t.Errorf("options = %+v", opts)
				}
			},
		},
		{
			name: "config file",
			args: []string{"--config", configPath},
			check: func(t *testing.T, cmd *cobra.Command) {
				opts, err := loadOptions(cmd)
				if err != nil {
					t.Fatal(err)
				}
				if opts.RenderDPI != 200 || opts.Provider != "azure" || opts.Concurrency != 2 {
					t.Errorf("options = %+v", opts)
				}
			},
		},
		{
			name: "flags override the config file",
			args: []string{
				"--config", configPath,
				"--render-dpi", "300",
				"--rotation-aware=false",
				"--show-debug-boxes",
				"--timeout", "30s",
				"--features=",
				"--languages", "en,fr",
			},
			check: func(t *testing.T, cmd *cobra.Command) {
				opts, err := loadOptions(cmd)
				if err != nil {
					t.Fatal(err)
				}
				if opts.RenderDPI != 300 || opts.RotationAware || !opts.ShowDebugBoxes {
					t.Errorf("options = %+v", opts)
				}
				if opts.Provider != "azure" || opts.Timeout != 30*time.Second {
					t.Errorf("options = %+v", opts)
				}
				if len(opts.Features) != 0 || !reflect.DeepEqual(opts.Languages, []string{"en", "fr"}) {
					t.Errorf("features = %v, languages = %v", opts.Features, opts.Languages)
				}
			},
		},
		{
			name:    "invalid flag value",
			args:    []string{"--image-quality", "0"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newOptionsCommand(t, tt.args...)
			if tt.wantErr {
				if _, err := loadOptions(cmd); err == nil {
					t.Fatal("expected error")
				}
				return
			}
			tt.check(t, cmd)
		})
	}
}

func TestRegistry(t *testing.T) {
	got := newRegistry().List()
	want := []string{"azure", "tesseract", "textract", "vision"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("providers = %v, want %v", got, want)
	}
}

func TestComparePages(t *testing.T) {
	batches := []detection.Batch{
		{Blocks: []detection.Detection{{BlockType: detection.BlockWord, Text: "hello"}, {BlockType: detection.BlockWord, Text: "world"}}},
		{Error: "throttled"},
	}

	checks, err := comparePages(batches, []string{"helloworld", ""})
	if err != nil {
		t.Fatalf("comparePages() error = %v", err)
	}
	if len(checks) != 1 || checks[0].Page != 0 {
		t.Fatalf("checks = %+v", checks)
	}
	if checks[0].Metrics.CharacterSimilarity != 1 {
		t.Errorf("character similarity = %v", checks[0].Metrics.CharacterSimilarity)
	}

	if _, err := comparePages(batches, []string{"one page"}); err == nil {
		t.Errorf("expected page count mismatch")
	}
}

func writeScan(t *testing.T, dir string) string {
	t.Helper()
	doc := fpdf.New("P", "pt", "Letter", "")
	doc.AddPageFormat("P", fpdf.SizeType{Wd: 612, Ht: 792})
	doc.Rect(40, 40, 200, 20, "D")
	path := filepath.Join(dir, "scan.pdf")
	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatalf("write scan: %v", err)
	}
	return path
}

func writeResponse(t *testing.T, dir string) string {
	t.Helper()
	box := detection.NormalizedBox{Left: 0.1, Top: 0.1, Width: 0.3, Height: 0.04}
	batches := []detection.Batch{{Blocks: []detection.Detection{
		{BlockType: detection.BlockPage},
		{
			BlockType:  detection.BlockWord,
			Text:       "Searchable",
			Confidence: 98,
			Geometry: &detection.Geometry{
				BoundingBox: &box,
				Polygon:     detection.Polygon{{X: 0.1, Y: 0.1}, {X: 0.4, Y: 0.1}, {X: 0.4, Y: 0.14}, {X: 0.1, Y: 0.14}},
			},
		},
	}}}
	var buf bytes.Buffer
	if err := detection.Save(&buf, batches); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "response.json")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCreateAndVerify(t *testing.T) {
	dir := t.TempDir()
	scan := writeScan(t, dir)
	response := writeResponse(t, dir)
	output := filepath.Join(dir, "out", "searchable.pdf")
	hocrPath := filepath.Join(dir, "out", "searchable.hocr")
	report := filepath.Join(dir, "out", "report.yaml")

	var stdout bytes.Buffer
	RootCmd.SetOut(&stdout)
	RootCmd.SetArgs([]string{
		"create",
		"--pdf", scan,
		"--response", response,
		"-o", output,
		"--preserve-vector-background",
		"--hocr", hocrPath,
		"--report", report,
		"--log-level", "ERROR",
	})
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("create error = %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	src, err := pdfdoc.Open(data)
	if err != nil {
		t.Fatalf("output is not a pdf: %v", err)
	}
	if src.PageCount() != 1 {
		t.Errorf("output has %d pages, want 1", src.PageCount())
	}
	if !strings.Contains(stdout.String(), "Words placed:   1") {
		t.Errorf("summary missing from output:\n%s", stdout.String())
	}

	hocrData, err := os.ReadFile(hocrPath)
	if err != nil || !strings.Contains(string(hocrData), ">Searchable</span>") {
		t.Errorf("hocr = %s, err = %v", hocrData, err)
	}
	reportData, err := os.ReadFile(report)
	if err != nil || !strings.Contains(string(reportData), "provider: response") {
		t.Errorf("report = %s, err = %v", reportData, err)
	}

	stdout.Reset()
	verifyReport := filepath.Join(dir, "out", "verify.yaml")
	RootCmd.SetArgs([]string{"verify", "--pdf", output, "--response", response, "--report", verifyReport, "--log-level", "ERROR"})
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("verify error = %v", err)
	}
	if !strings.Contains(stdout.String(), "=== Page 0 ===") {
		t.Errorf("verify output = %s", stdout.String())
	}
	if _, err := os.Stat(verifyReport); err != nil {
		t.Errorf("verify report not written: %v", err)
	}
}
