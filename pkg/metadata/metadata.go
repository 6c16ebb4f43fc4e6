// Package metadata defines the private-tag metadata channel stored alongside
// measurement reports: which viewer datasets a report belongs to and the
// ruler tool state needed to restore the session.
package metadata

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"annotationsr/internal/models"
	"annotationsr/pkg/errs"
)

// Private data element layout
const (
	DefaultCreator = "SST_VOLVIEW_METADATA"

	DefaultGroup uint16 = 0x7777

	ElementCreator    = 0x0010
	ElementDatasetIDs = 0x0011
	ElementPayload    = 0x0012
)

// CurrentVersion is the payload version written by Marshal
const CurrentVersion = 1

const schemaURL = "https://annotationsr.local/metadata/payload.schema.json"

//go:embed payload.schema.json
var schemaSource []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func payloadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaSource)); err != nil {
			schemaErr = fmt.Errorf("metadata schema load failed: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("metadata schema compile failed: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// Payload is the canonical metadata document
type Payload struct {
	Version    int           `json:"version"`
	DatasetIDs []string      `json:"datasetIds"`
	Rulers     models.Rulers `json:"rulers"`
}

// New creates a current-version payload. Nil slices and maps are replaced
// with empty ones so the encoded form always carries every key.
func New(datasetIDs []string, rulers models.Rulers) *Payload {
	return &Payload{
		Version:    CurrentVersion,
		DatasetIDs: append([]string{}, datasetIDs...),
		Rulers:     rulers.Clone(),
	}
}

// Marshal validates and encodes the payload
func (p *Payload) Marshal() ([]byte, error) {
	data, err := sonic.ConfigStd.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode metadata payload: %w", err)
	}
	if err := validate(data); err != nil {
		return nil, err
	}
	return data, nil
}

// Unmarshal validates and decodes a payload. Documents without a version,
// such as a bare tools/labels object, are rejected.
func Unmarshal(data []byte) (*Payload, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	var p Payload
	if err := sonic.Unmarshal(data, &p); err != nil {
		return nil, &errs.SchemaError{Document: "metadata", Message: "invalid JSON", Err: err}
	}
	if p.Rulers.Labels == nil {
		p.Rulers.Labels = map[string]models.ToolLabel{}
	}
	return &p, nil
}

// MarshalDatasetIDs encodes the dataset id list stored in its own element
func MarshalDatasetIDs(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	return sonic.Marshal(ids)
}

// UnmarshalDatasetIDs decodes the dataset id element
func UnmarshalDatasetIDs(data []byte) ([]string, error) {
	var ids []string
	if err := sonic.Unmarshal(data, &ids); err != nil {
		return nil, &errs.SchemaError{Document: "metadata", Path: "datasetIds", Message: "want a JSON array of strings", Err: err}
	}
	return ids, nil
}

func validate(data []byte) error {
	schema, err := payloadSchema()
	if err != nil {
		return err
	}
	var doc any
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return &errs.SchemaError{Document: "metadata", Message: "invalid JSON", Err: err}
	}
	if err := schema.Validate(doc); err != nil {
		path := ""
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			path = ve.InstanceLocation
		}
		return &errs.SchemaError{Document: "metadata", Path: path, Message: "schema validation failed", Err: err}
	}
	return nil
}

// Aggregate combines payloads read from several reports in order: dataset ids
// and tools are concatenated, labels are merged with later payloads replacing
// earlier entries of the same key.
func Aggregate(payloads []*Payload) *Payload {
	out := &Payload{
		Version:    CurrentVersion,
		DatasetIDs: []string{},
		Rulers: models.Rulers{
			Tools:  []models.Ruler{},
			Labels: map[string]models.ToolLabel{},
		},
	}
	for _, p := range payloads {
		if p == nil {
			continue
		}
		out.DatasetIDs = append(out.DatasetIDs, p.DatasetIDs...)
		out.Rulers.Tools = append(out.Rulers.Tools, p.Rulers.Tools...)
		for k, v := range p.Rulers.Labels {
			out.Rulers.Labels[k] = v
		}
	}
	return out
}
