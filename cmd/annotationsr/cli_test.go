package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"annotationsr/pkg/errs"
	"annotationsr/pkg/metadata"
)

const manifestJSON = `{
	"study_instance_uid": "1.2.840.1",
	"study_id": "STUDY-7",
	"patient_name": "Doe^Jane",
	"patient_id": "P001",
	"patient_birth_date": "19800101",
	"patient_sex": "F",
	"annotations": [
		{
			"shape": "Line",
			"measurement_name": "length",
			"measurement_value": 12.5,
			"sop_class_uid": "1.2.840.10008.5.1.4.1.1.1.3",
			"series_instance_uid": "1.2.840.1.2",
			"sop_instance_uid": "1.2.840.1.2.3",
			"coordinates": [0, 0, 10, 0]
		}
	]
}`

const sessionJSON = `{
  "version": "5.0.1",
  "datasets": [{"id": "ds-1", "dataSourceId": 1}],
  "dataSources": [
    {"id": 1, "type": "collection", "sources": [2]},
    {"id": 2, "type": "file", "fileId": 3, "fileType": "application/dicom"}
  ],
  "datasetFilePath": {"3": "data/3/image.dcm"},
  "tools": {
    "rulers": {
      "tools": [
        {"id": "r1", "imageID": "ds-1", "frameOfReference": {"planeNormal": [0,0,1], "planeOrigin": [0,0,0]},
         "slice": 0, "placing": false, "firstPoint": [1,2,0], "secondPoint": [3,4,0], "label": "default"}
      ],
      "labels": {"default": {"labelName": "default", "color": "red", "strokeWidth": 1}}
    }
  }
}`

const brokenSessionJSON = `{
  "datasets": [{"id": "ds-1", "dataSourceId": 1}, {"id": "ds-2", "dataSourceId": 9}],
  "dataSources": [
    {"id": 1, "type": "collection", "sources": [2]},
    {"id": 2, "type": "file", "fileId": 3}
  ],
  "datasetFilePath": {"3": "data/3/image.dcm"}
}`

const responseJSON = `{
  "yolo_results": {
    "yolov8_contents": [
      {"class_id": 0, "points": [0, 4, 0, 0, 1, 1]},
      {"class_id": 1, "points": [0, 4, 1, 1, 2, 2]},
      {"points": [1, 2, 0, 0, 1, 1]}
    ]
  }
}`

const measurementsJSON = `{
  "measurements": [
    {"pair_measurements": [{"stage": "II", "CEJ": [10, 20], "ALC": [13, 24], "APEX": [10, 60]}]}
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// runCLI executes the root command against a missing config file so the
// defaults apply
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	base := []string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "--log-format", "json"}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n%s", needle, haystack)
	}
}

func TestReportCommand(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, "manifest.json", manifestJSON)
	dcm := filepath.Join(dir, "out", "report.dcm")
	js := filepath.Join(dir, "out", "report.json")

	out, err := runCLI(t, "report", "--manifest", manifest, "--dicom", dcm, "--json", js)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	requireContains(t, out, "Imaging Measurement Report")
	requireContains(t, out, "12.5 mm")
	requireContains(t, out, "report.dcm")

	for _, p := range []string{dcm, js} {
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Fatalf("expected non-empty %s", p)
		}
	}

	out, err = runCLI(t, "inspect", "--dicom", dcm)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "1.2.840.10008.5.1.4.1.1.88.22")
	requireContains(t, out, "Doe^Jane")
	requireContains(t, out, "none")
}

func TestReportCommandStoresSessionMetadata(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, "manifest.json", manifestJSON)
	sess := writeFile(t, dir, "session.json", sessionJSON)
	dcm := filepath.Join(dir, "report.dcm")

	if _, err := runCLI(t, "report", "-m", manifest, "--dicom", dcm, "--session", sess); err != nil {
		t.Fatalf("report: %v", err)
	}

	out, err := runCLI(t, "inspect", "--dicom", dcm)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "Metadata datasets")
	requireContains(t, out, "[ds-1]")
}

func TestReportCommandRequiresManifest(t *testing.T) {
	if _, err := runCLI(t, "report"); err == nil {
		t.Fatal("expected error without --manifest")
	}
}

func TestReportCommandRejectsIncompleteManifest(t *testing.T) {
	for _, key := range []string{"patient_birth_date", "patient_sex", "study_id"} {
		t.Run(key, func(t *testing.T) {
			dir := t.TempDir()
			var doc map[string]any
			if err := sonic.UnmarshalString(manifestJSON, &doc); err != nil {
				t.Fatal(err)
			}
			delete(doc, key)
			data, err := sonic.Marshal(doc)
			if err != nil {
				t.Fatal(err)
			}
			manifest := writeFile(t, dir, "manifest.json", string(data))
			dcm := filepath.Join(dir, "report.dcm")

			_, err = runCLI(t, "report", "--manifest", manifest, "--dicom", dcm)
			if !errors.Is(err, errs.ErrSchema) {
				t.Fatalf("expected schema error, got %v", err)
			}
			var schemaErr *errs.SchemaError
			if !errors.As(err, &schemaErr) || schemaErr.Path != key {
				t.Fatalf("expected schema error at %s, got %v", key, err)
			}
			if _, statErr := os.Stat(dcm); !os.IsNotExist(statErr) {
				t.Fatalf("expected no report written")
			}
		})
	}
}

func TestSegmentAndInspect(t *testing.T) {
	dir := t.TempDir()
	response := writeFile(t, dir, "response.json", responseJSON)
	volume := filepath.Join(dir, "seg.vti")
	preview := filepath.Join(dir, "seg.png")

	out, err := runCLI(t, "segment", "--response", response, "--rows", "3", "--cols", "3",
		"--out", volume, "--preview", preview, "--encoding", "raw")
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	requireContains(t, out, "missing class_id")
	requireContains(t, out, "seg.vti")
	if _, err := os.Stat(preview); err != nil {
		t.Fatalf("expected preview: %v", err)
	}

	out, err = runCLI(t, "inspect", "--vti", volume)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "3 x 3 x 1")
	requireContains(t, out, "raw")
	requireContains(t, out, "Scalars_")
}

func TestSegmentRejectsBadCanvas(t *testing.T) {
	dir := t.TempDir()
	response := writeFile(t, dir, "response.json", responseJSON)
	if _, err := runCLI(t, "segment", "--response", response, "--rows", "0", "--cols", "3"); err == nil {
		t.Fatal("expected error for zero rows")
	}
	if _, err := runCLI(t, "segment", "--response", response, "--rows", "3", "--cols", "3", "--spacing", "1"); err == nil {
		t.Fatal("expected error for a single spacing value")
	}
}

func TestResolveCommand(t *testing.T) {
	dir := t.TempDir()
	sess := writeFile(t, dir, "session.json", sessionJSON)

	out, err := runCLI(t, "resolve", "--session", sess, "--dataset", "ds-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if strings.TrimSpace(out) != "data/3/image.dcm" {
		t.Fatalf("expected data/3/image.dcm, got %q", out)
	}

	broken := writeFile(t, dir, "broken.json", brokenSessionJSON)
	out, err = runCLI(t, "resolve", "--session", broken)
	if err == nil {
		t.Fatal("expected error for an unresolvable dataset")
	}
	requireContains(t, out, "data/3/image.dcm")
	requireContains(t, out, "ds-2")
}

func TestMetadataCommand(t *testing.T) {
	dir := t.TempDir()
	sess := writeFile(t, dir, "session.json", sessionJSON)
	measurements := writeFile(t, dir, "measurements.json", measurementsJSON)

	out, err := runCLI(t, "metadata", "--session", sess, "--measurements", measurements)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	payload, err := metadata.Unmarshal([]byte(strings.TrimSpace(out)))
	if err != nil {
		t.Fatalf("payload does not validate: %v", err)
	}
	if len(payload.DatasetIDs) != 1 || payload.DatasetIDs[0] != "ds-1" {
		t.Fatalf("unexpected dataset ids %v", payload.DatasetIDs)
	}
	// one session ruler plus two measured rulers
	if len(payload.Rulers.Tools) != 3 {
		t.Fatalf("expected 3 rulers, got %d", len(payload.Rulers.Tools))
	}
	if payload.Rulers.Tools[1].ImageID != "ds-1" || payload.Rulers.Tools[1].ID == "" {
		t.Fatalf("unexpected measured ruler %+v", payload.Rulers.Tools[1])
	}

	if _, err := runCLI(t, "metadata", "--session", sess, "--dataset", "nope"); err == nil {
		t.Fatal("expected error for unknown dataset")
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "annotationsr.yaml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote default configuration")

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when the file exists")
	}

	out, err = runCLI(t, "config", "validate", "--path", target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}
