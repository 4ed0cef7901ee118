// Package artifact persists the outcome of a training run (scaler, chosen
// model, ranked feature names, metrics) and serves it back to prediction.
//
// A run is written between Begin and Commit. Commit writes a manifest with
// the SHA-256 of every saved key; Load verifies each file against it, so a
// reader never silently mixes files from two runs.
package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/imrcast/core/model"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

// Key names one persisted artifact.
type Key string

const (
	KeyScaler       Key = "scaler"
	KeyModel        Key = "model"
	KeyFeatureNames Key = "feature_names"
	KeyMetrics      Key = "metrics"
)

// Keys lists every artifact key in write order.
var Keys = []Key{KeyScaler, KeyModel, KeyFeatureNames, KeyMetrics}

// ManifestFile is the file name of the manifest in a FileStore.
const ManifestFile = "manifest.json"

// Store is durable key-value persistence for one training run at a time.
// Each run fully replaces the previous one.
type Store interface {
	// Begin starts a run, discarding whatever the previous run left.
	Begin(runID string) error
	// Save encodes value under key with the key's codec.
	Save(key Key, value any) error
	// Commit records the manifest and ends the run.
	Commit(m Manifest) error
	// Abort ends the run without a manifest; Load then reports MissingArtifact.
	Abort() error
	// Load decodes key into value, which must be a pointer.
	Load(key Key, value any) error
	// Manifest returns the manifest of the last committed run.
	Manifest() (Manifest, error)
}

// NamedModel is the value stored under KeyModel.
type NamedModel struct {
	Name      string
	Regressor model.Regressor
}

// Manifest describes a completed run.
type Manifest struct {
	RunID       string            `json:"run_id"`
	Model       string            `json:"model"`
	CompletedAt time.Time         `json:"completed_at"`
	Files       map[Key]FileEntry `json:"files"`
}

// FileEntry is the manifest record of one key.
type FileEntry struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Size   int    `json:"size"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// codec encodes and decodes the value of one key.
type codec struct {
	file   string
	encode func(w io.Writer, value any) error
	decode func(r io.Reader, value any) error
}

var codecs = map[Key]codec{
	KeyScaler:       {file: "scaler.gob", encode: encodeGob, decode: decodeGob},
	KeyModel:        {file: "best_model.gob", encode: encodeModel, decode: decodeModel},
	KeyFeatureNames: {file: "feature_names.json", encode: encodeJSON, decode: decodeJSON},
	KeyMetrics:      {file: "model_metrics.json", encode: encodeJSON, decode: decodeJSON},
}

// FileName returns the file a FileStore uses for key.
func FileName(key Key) string {
	return codecs[key].file
}

func lookupCodec(key Key) (codec, error) {
	c, ok := codecs[key]
	if !ok {
		return codec{}, errors.NewValueError("artifact", "unknown artifact key "+string(key))
	}
	return c, nil
}

func encodeGob(w io.Writer, value any) error {
	return model.SaveModelToWriter(value, w)
}

func decodeGob(r io.Reader, value any) error {
	return model.LoadModelFromReader(value, r)
}

func encodeModel(w io.Writer, value any) error {
	var nm NamedModel
	switch v := value.(type) {
	case NamedModel:
		nm = v
	case *NamedModel:
		nm = *v
	default:
		return errors.NewValueError("artifact.Save", "model artifact must be a NamedModel")
	}
	return model.SaveRegressor(nm.Name, nm.Regressor, w)
}

func decodeModel(r io.Reader, value any) error {
	dst, ok := value.(*NamedModel)
	if !ok {
		return errors.NewValueError("artifact.Load", "model artifact decodes into *NamedModel")
	}
	name, reg, err := model.LoadRegressor(r)
	if err != nil {
		return err
	}
	*dst = NamedModel{Name: name, Regressor: reg}
	return nil
}

func encodeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func decodeJSON(r io.Reader, value any) error {
	return json.NewDecoder(r).Decode(value)
}

// encodeKey runs the codec for key and returns the bytes and their digest.
func encodeKey(key Key, value any) ([]byte, FileEntry, error) {
	c, err := lookupCodec(key)
	if err != nil {
		return nil, FileEntry{}, err
	}
	var buf bytes.Buffer
	if err := c.encode(&buf, value); err != nil {
		return nil, FileEntry{}, errors.Wrapf(err, "encode artifact %s", key)
	}
	data := buf.Bytes()
	return data, FileEntry{Name: c.file, SHA256: digest(data), Size: len(data)}, nil
}

// decodeKey verifies data against entry and decodes it into value.
func decodeKey(key Key, data []byte, entry FileEntry, value any) error {
	c, err := lookupCodec(key)
	if err != nil {
		return err
	}
	if got := digest(data); got != entry.SHA256 {
		return errors.NewArtifactError(errors.CorruptArtifact, string(key),
			"content does not match manifest (sha256 "+got[:12]+" != "+short(entry.SHA256)+")")
	}
	if err := c.decode(bytes.NewReader(data), value); err != nil {
		return errors.NewArtifactError(errors.CorruptArtifact, string(key), err.Error())
	}
	return nil
}

func digest(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func short(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
