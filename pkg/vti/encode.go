// Package vti reads and writes single-slice label volumes as VTK XML
// ImageData documents with appended scalar data.
package vti

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"annotationsr/internal/models"
	"annotationsr/pkg/errs"
)

// Encoding selects how the appended scalar block is stored
type Encoding string

const (
	EncodingBase64 Encoding = "base64"
	EncodingRaw    Encoding = "raw"
)

// DefaultScalarName is the point-data array name written when none is given
const DefaultScalarName = "Scalars_"

// headerSize is the length of the UInt64 byte count before the scalars
const headerSize = 8

// encodedHeaderSize is the base64 length of the header run
var encodedHeaderSize = base64.StdEncoding.EncodedLen(headerSize)

// identityDirection is the row-major 3x3 direction matrix of an axis-aligned volume
const identityDirection = "1 0 0 0 1 0 0 0 1"

// Options controls the document layout
type Options struct {
	Encoding   Encoding
	ScalarName string
}

// DefaultOptions returns base64 encoding with the default scalar name
func DefaultOptions() Options {
	return Options{Encoding: EncodingBase64, ScalarName: DefaultScalarName}
}

// ParseEncoding validates an encoding name
func ParseEncoding(s string) (Encoding, error) {
	switch e := Encoding(strings.ToLower(strings.TrimSpace(s))); e {
	case EncodingBase64, EncodingRaw:
		return e, nil
	default:
		return "", errs.NewValidation("encoding", fmt.Sprintf("unknown encoding %q", s))
	}
}

// Encode writes the canvas as a W x H x 1 image. The in-plane spacing is
// written swapped: the Spacing attribute reads "geometry.Y geometry.X z",
// so the first value is the spacing between columns. Origin is written as given.
// The scalar block is the canvas in row-major order, one byte per cell.
func Encode(canvas *models.MaskCanvas, geometry models.VolumeGeometry, opts Options) ([]byte, error) {
	if canvas == nil || canvas.Width <= 0 || canvas.Height <= 0 {
		return nil, errs.NewEncode("canvas must have positive width and height")
	}
	if len(canvas.Data) != canvas.Width*canvas.Height {
		return nil, errs.NewEncode(fmt.Sprintf("canvas buffer holds %d bytes, want %d",
			len(canvas.Data), canvas.Width*canvas.Height))
	}
	if opts.Encoding == "" {
		opts.Encoding = EncodingBase64
	}
	if opts.Encoding != EncodingBase64 && opts.Encoding != EncodingRaw {
		return nil, errs.NewEncode(fmt.Sprintf("unknown encoding %q", opts.Encoding))
	}
	if opts.ScalarName == "" {
		opts.ScalarName = DefaultScalarName
	}

	extent := fmt.Sprintf("0 %d 0 %d 0 0", canvas.Width-1, canvas.Height-1)
	spacing := joinFloats(geometry.Spacing.Y, geometry.Spacing.X, geometry.Spacing.Z)
	origin := joinFloats(geometry.Origin.X, geometry.Origin.Y, geometry.Origin.Z)
	rangeMin, rangeMax := valueRange(canvas.Data)

	var buf bytes.Buffer
	buf.WriteString("<?xml version=\"1.0\"?>\n")
	buf.WriteString("<VTKFile type=\"ImageData\" version=\"1.0\" byte_order=\"LittleEndian\" header_type=\"UInt64\">\n")
	fmt.Fprintf(&buf, "  <ImageData WholeExtent=\"%s\" Origin=\"%s\" Spacing=\"%s\" Direction=\"%s\">\n",
		extent, origin, spacing, identityDirection)
	fmt.Fprintf(&buf, "  <Piece Extent=\"%s\">\n", extent)
	fmt.Fprintf(&buf, "    <PointData Scalars=\"%s\">\n", escapeAttr(opts.ScalarName))
	fmt.Fprintf(&buf, "      <DataArray type=\"UInt8\" Name=\"%s\" format=\"appended\" RangeMin=\"%d\" RangeMax=\"%d\" offset=\"0\" />\n",
		escapeAttr(opts.ScalarName), rangeMin, rangeMax)
	buf.WriteString("    </PointData>\n")
	buf.WriteString("    <CellData>\n")
	buf.WriteString("    </CellData>\n")
	buf.WriteString("  </Piece>\n")
	buf.WriteString("  </ImageData>\n")
	fmt.Fprintf(&buf, "  <AppendedData encoding=\"%s\">\n", opts.Encoding)
	buf.WriteString("   _")

	var header [headerSize]byte
	binary.LittleEndian.PutUint64(header[:], uint64(len(canvas.Data)))

	// base64 readers decode the header and the scalars as separate runs
	switch opts.Encoding {
	case EncodingRaw:
		buf.Write(header[:])
		buf.Write(canvas.Data)
	case EncodingBase64:
		buf.WriteString(base64.StdEncoding.EncodeToString(header[:]))
		buf.WriteString(base64.StdEncoding.EncodeToString(canvas.Data))
	}

	buf.WriteString("\n  </AppendedData>\n")
	buf.WriteString("</VTKFile>\n")
	return buf.Bytes(), nil
}

func joinFloats(vs ...float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

func valueRange(data []uint8) (lo, hi uint8) {
	if len(data) == 0 {
		return 0, 0
	}
	lo, hi = data[0], data[0]
	for _, v := range data[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `>`, "&gt;", `"`, "&quot;")

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}
