// Package store persists crop documents as YAML. A document bundles the
// source video reference, its crop timeline and the export settings, so a
// session can be saved and re-exported later.
package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cropaway/cropengine/internal/filtergraph"
	"github.com/cropaway/cropengine/internal/timeline"
)

const documentVersion = "1.0"

// Document is the on-disk session format.
type Document struct {
	Version  string               `yaml:"version"`
	Video    Video                `yaml:"video"`
	Timeline timeline.Timeline    `yaml:"timeline"`
	Settings filtergraph.Settings `yaml:"settings"`
}

// Video identifies the source material a document belongs to.
type Video struct {
	Path     string  `yaml:"path"`
	Width    int     `yaml:"width,omitempty"`
	Height   int     `yaml:"height,omitempty"`
	Duration float64 `yaml:"duration,omitempty"`
}

// New creates an empty document for the given video.
func New(videoPath string, tl *timeline.Timeline) *Document {
	return &Document{
		Version:  documentVersion,
		Video:    Video{Path: videoPath},
		Timeline: *tl,
	}
}

// Write writes a document to a YAML file.
func Write(doc *Document, path string) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Read reads a document from a YAML file and validates its keyframes.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	for i, kf := range doc.Timeline.Keyframes {
		if kf.Geometry.Mode != doc.Timeline.Mode {
			return nil, fmt.Errorf("keyframe %d: mode %q does not match timeline mode %q", i, kf.Geometry.Mode, doc.Timeline.Mode)
		}
		if err := kf.Geometry.Validate(); err != nil {
			return nil, fmt.Errorf("keyframe %d: %w", i, err)
		}
	}

	return &doc, nil
}
