package safety

// Prediction is one candidate produced by an external entity-recognition
// model. Offsets are byte offsets into the text passed to the model.
type Prediction struct {
	Label      string  `json:"type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
	Origin     string  `json:"origin,omitempty"`
}
