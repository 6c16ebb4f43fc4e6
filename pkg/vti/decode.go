package vti

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"annotationsr/internal/models"
	"annotationsr/pkg/errs"
)

// Document is a decoded image document
type Document struct {
	Encoding  Encoding
	ByteOrder string
	Direction [9]float64

	// Volume holds the scalars with Spacing and Origin as written in the file
	Volume models.LabelVolume

	RangeMin float64
	RangeMax float64
}

// Geometry undoes the in-plane spacing swap applied by Encode
func (d *Document) Geometry() models.VolumeGeometry {
	s := d.Volume.Spacing
	return models.VolumeGeometry{
		Spacing: models.Vec3{X: s.Y, Y: s.X, Z: s.Z},
		Origin:  d.Volume.Origin,
	}
}

// Canvas returns the first slice as a mask canvas
func (d *Document) Canvas() *models.MaskCanvas {
	v := d.Volume
	n := v.Width * v.Height
	data := make([]uint8, n)
	copy(data, v.Data)
	return &models.MaskCanvas{Width: v.Width, Height: v.Height, Data: data}
}

const appendedOpen = "<AppendedData"
const appendedClose = "</AppendedData>"

// Decode parses a document produced by Encode. Only UInt8 point scalars in
// appended format with a UInt64 header are understood.
func Decode(data []byte) (*Document, error) {
	open := bytes.Index(data, []byte(appendedOpen))
	if open < 0 {
		return nil, schemaErr("AppendedData", "element missing")
	}
	tagEnd := bytes.IndexByte(data[open:], '>')
	if tagEnd < 0 {
		return nil, schemaErr("AppendedData", "unterminated start tag")
	}
	tagEnd += open

	// parse the markup before the binary block on its own
	head := make([]byte, 0, tagEnd+32)
	head = append(head, data[:tagEnd+1]...)
	head = append(head, appendedClose+"</VTKFile>"...)
	root, err := xmlquery.Parse(bytes.NewReader(head))
	if err != nil {
		return nil, &errs.SchemaError{Document: "vti", Message: "invalid XML header", Err: err}
	}

	doc := &Document{}
	if err := doc.readHeader(root); err != nil {
		return nil, err
	}

	marker := bytes.IndexByte(data[tagEnd:], '_')
	if marker < 0 {
		return nil, schemaErr("AppendedData", "missing '_' marker")
	}
	payload := data[tagEnd+marker+1:]

	block, err := doc.readBlock(payload)
	if err != nil {
		return nil, err
	}

	want := doc.Volume.Width * doc.Volume.Height * doc.Volume.Depth
	if len(block) != want {
		return nil, schemaErr("AppendedData", fmt.Sprintf("holds %d scalars, extent needs %d", len(block), want))
	}
	doc.Volume.Data = block
	return doc, nil
}

func (d *Document) readHeader(root *xmlquery.Node) error {
	file := xmlquery.FindOne(root, "//VTKFile")
	if file == nil {
		return schemaErr("VTKFile", "element missing")
	}
	if t := file.SelectAttr("type"); t != "ImageData" {
		return schemaErr("VTKFile@type", fmt.Sprintf("unsupported type %q", t))
	}
	if h := file.SelectAttr("header_type"); h != "UInt64" {
		return schemaErr("VTKFile@header_type", fmt.Sprintf("unsupported header type %q", h))
	}
	d.ByteOrder = file.SelectAttr("byte_order")
	if d.ByteOrder != "LittleEndian" {
		return schemaErr("VTKFile@byte_order", fmt.Sprintf("unsupported byte order %q", d.ByteOrder))
	}

	image := xmlquery.FindOne(file, "ImageData")
	if image == nil {
		return schemaErr("ImageData", "element missing")
	}
	extent, err := parseInts(image.SelectAttr("WholeExtent"), 6)
	if err != nil {
		return schemaErr("ImageData@WholeExtent", err.Error())
	}
	origin, err := parseFloats(image.SelectAttr("Origin"), 3)
	if err != nil {
		return schemaErr("ImageData@Origin", err.Error())
	}
	spacing, err := parseFloats(image.SelectAttr("Spacing"), 3)
	if err != nil {
		return schemaErr("ImageData@Spacing", err.Error())
	}
	if dir := image.SelectAttr("Direction"); dir != "" {
		values, err := parseFloats(dir, 9)
		if err != nil {
			return schemaErr("ImageData@Direction", err.Error())
		}
		copy(d.Direction[:], values)
	} else {
		d.Direction = [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	}

	array := xmlquery.FindOne(image, "Piece/PointData/DataArray")
	if array == nil {
		return schemaErr("DataArray", "element missing")
	}
	if t := array.SelectAttr("type"); t != "UInt8" {
		return schemaErr("DataArray@type", fmt.Sprintf("unsupported scalar type %q", t))
	}
	if f := array.SelectAttr("format"); f != "appended" {
		return schemaErr("DataArray@format", fmt.Sprintf("unsupported format %q", f))
	}
	d.RangeMin, _ = strconv.ParseFloat(array.SelectAttr("RangeMin"), 64)
	d.RangeMax, _ = strconv.ParseFloat(array.SelectAttr("RangeMax"), 64)

	appended := xmlquery.FindOne(file, "AppendedData")
	if appended == nil {
		return schemaErr("AppendedData", "element missing")
	}
	d.Encoding = Encoding(appended.SelectAttr("encoding"))

	d.Volume = models.LabelVolume{
		Width:      extent[1] - extent[0] + 1,
		Height:     extent[3] - extent[2] + 1,
		Depth:      extent[5] - extent[4] + 1,
		Spacing:    models.Vec3{X: spacing[0], Y: spacing[1], Z: spacing[2]},
		Origin:     models.Vec3{X: origin[0], Y: origin[1], Z: origin[2]},
		ScalarName: array.SelectAttr("Name"),
	}
	if d.Volume.Width <= 0 || d.Volume.Height <= 0 || d.Volume.Depth <= 0 {
		return schemaErr("ImageData@WholeExtent", "empty extent")
	}
	return nil
}

// readBlock returns the scalars following the UInt64 byte count. In base64
// mode the header and the scalars are two independently padded runs.
func (d *Document) readBlock(payload []byte) ([]byte, error) {
	var header, data []byte
	switch d.Encoding {
	case EncodingRaw:
		if len(payload) < headerSize {
			return nil, schemaErr("AppendedData", "block shorter than its header")
		}
		header, data = payload[:headerSize], payload[headerSize:]
	case EncodingBase64:
		end := bytes.Index(payload, []byte(appendedClose))
		if end < 0 {
			return nil, schemaErr("AppendedData", "missing end tag")
		}
		text := strings.TrimSpace(string(payload[:end]))
		if len(text) < encodedHeaderSize {
			return nil, schemaErr("AppendedData", "block shorter than its header")
		}
		var err error
		header, err = base64.StdEncoding.DecodeString(text[:encodedHeaderSize])
		if err != nil {
			return nil, &errs.SchemaError{Document: "vti", Path: "AppendedData", Message: "invalid base64 header", Err: err}
		}
		data, err = base64.StdEncoding.DecodeString(text[encodedHeaderSize:])
		if err != nil {
			return nil, &errs.SchemaError{Document: "vti", Path: "AppendedData", Message: "invalid base64 scalars", Err: err}
		}
	default:
		return nil, schemaErr("AppendedData@encoding", fmt.Sprintf("unsupported encoding %q", d.Encoding))
	}

	if len(header) != headerSize {
		return nil, schemaErr("AppendedData", "block shorter than its header")
	}
	n := binary.LittleEndian.Uint64(header)
	if n > uint64(len(data)) {
		return nil, schemaErr("AppendedData", fmt.Sprintf("header declares %d bytes, %d present", n, len(data)))
	}
	out := make([]byte, n)
	copy(out, data[:n])
	return out, nil
}

func schemaErr(path, message string) error {
	return errs.NewSchema("vti", path, message)
}

func parseFloats(s string, n int) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) != n {
		return nil, fmt.Errorf("want %d values, got %d", n, len(fields))
	}
	out := make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseInts(s string, n int) ([]int, error) {
	fields := strings.Fields(s)
	if len(fields) != n {
		return nil, fmt.Errorf("want %d values, got %d", n, len(fields))
	}
	out := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
