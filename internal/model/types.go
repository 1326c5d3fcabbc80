package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord describes one driver run.
type RunRecord struct {
	VersionedRecord
	ID           string  `json:"id"`
	CreatedAtUTC string  `json:"created_at_utc"`
	Seed         int64   `json:"seed"`
	Steps        int     `json:"steps"`
	Cells        int     `json:"cells"`
	Adhesions    int     `json:"adhesions"`
	Accepted     int     `json:"accepted"`
	Attempted    int     `json:"attempted"`
	Annihilated  int     `json:"annihilated"`
	MeanSize     float64 `json:"mean_size"`
	MeanTension  float64 `json:"mean_tension"`
	ConfigDigest string  `json:"config_digest,omitempty"`
}

// AdhesionSample is the observable state of one adhesion at a sampling step.
type AdhesionSample struct {
	ID       ParticleID `json:"id"`
	Step     int        `json:"step"`
	Position Position   `json:"position"`
	Size     float64    `json:"size"`
	Tension  float64    `json:"tension"`
	Myosin   float64    `json:"myosin"`
}

// InteractionLog is one flushed interaction diff as it was handed to the
// matrix owner.
type InteractionLog struct {
	VersionedRecord
	RunID    string                  `json:"run_id"`
	Step     int                     `json:"step"`
	Moves    map[ParticleID]Position `json:"moves"`
	Removals []ParticleID            `json:"removals"`
}
