package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"annotationsr/pkg/artifact"
	"annotationsr/pkg/errs"
	"annotationsr/pkg/sr"
)

func readInput(flag, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("--%s is required", flag)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", flag, err)
	}
	return data, nil
}

// writeOutput stores data at path atomically and returns its record
func writeOutput(path, mediaType string, data []byte) (artifact.Record, error) {
	return artifact.Write(filepath.Dir(path), artifact.Artifact{
		Name:      filepath.Base(path),
		MediaType: mediaType,
		Data:      data,
	})
}

func printRecords(out io.Writer, records []artifact.Record) {
	if len(records) == 0 {
		return
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Path, r.MediaType, strconv.Itoa(r.Size), r.BLAKE3})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Output", "Type", "Bytes", "BLAKE3"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
}

// parseFloats reads exactly n comma separated numbers
func parseFloats(flag, s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, errs.NewValidation(flag, fmt.Sprintf("want %d comma separated values, got %q", n, s))
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errs.NewValidation(flag, fmt.Sprintf("%q is not a number", p))
		}
		out[i] = v
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// describeValue renders a content item's value for the tree table
func describeValue(item *sr.ContentItem) string {
	switch v := item.Value.(type) {
	case sr.ContainerValue:
		return v.Continuity
	case sr.TextValue:
		return v.Text
	case sr.CodeValue:
		return fmt.Sprintf("%s (%s, %s)", v.Code.Meaning, v.Code.Value, v.Code.Scheme)
	case sr.NumValue:
		if v.Value == nil {
			return "(no value) " + v.Unit.Value
		}
		return formatFloat(*v.Value) + " " + v.Unit.Value
	case sr.PersonNameValue:
		return v.Name
	case sr.UIDRefValue:
		return v.UID
	case sr.SCoordValue:
		return fmt.Sprintf("%s %d points", v.GraphicType, len(v.GraphicData)/2)
	case sr.ImageValue:
		return v.Ref.InstanceUID
	}
	return ""
}
