package models

// FrameOfReference is the plane a ruler was drawn on
type FrameOfReference struct {
	PlaneNormal [3]float64 `json:"planeNormal"`
	PlaneOrigin [3]float64 `json:"planeOrigin"`
}

// AxialFrame is the frame used for rulers placed on a single 2D image
var AxialFrame = FrameOfReference{
	PlaneNormal: [3]float64{0, 0, 1},
	PlaneOrigin: [3]float64{0, 0, 0},
}

// Ruler is one viewer ruler tool
type Ruler struct {
	ID               string           `json:"id,omitempty"`
	ImageID          string           `json:"imageID"`
	FrameOfReference FrameOfReference `json:"frameOfReference"`
	Slice            int              `json:"slice"`
	Placing          bool             `json:"placing"`
	Color            string           `json:"color,omitempty"`
	StrokeWidth      int              `json:"strokeWidth,omitempty"`
	Name             string           `json:"name,omitempty"`
	FirstPoint       [3]float64       `json:"firstPoint"`
	SecondPoint      [3]float64       `json:"secondPoint"`
	Label            string           `json:"label,omitempty"`
	LabelName        string           `json:"labelName,omitempty"`

	// Stage is set on rulers derived from inference measurements
	Stage string `json:"stage,omitempty"`
}

// ToolLabel is a named style for tools
type ToolLabel struct {
	LabelName   string `json:"labelName"`
	Color       string `json:"color"`
	StrokeWidth int    `json:"strokeWidth"`
	FillColor   string `json:"fillColor,omitempty"`
}

// Rulers is the ruler tool state: the tools plus their label styles
type Rulers struct {
	Tools  []Ruler              `json:"tools"`
	Labels map[string]ToolLabel `json:"labels"`
}

// Clone returns a deep copy
func (r Rulers) Clone() Rulers {
	out := Rulers{
		Tools:  append([]Ruler{}, r.Tools...),
		Labels: make(map[string]ToolLabel, len(r.Labels)),
	}
	for k, v := range r.Labels {
		out.Labels[k] = v
	}
	return out
}
