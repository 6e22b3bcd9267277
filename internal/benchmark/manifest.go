package benchmark

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"ocrbench/internal/logger"
)

// ErrInvalidManifest is returned for manifests that cannot be used.
var ErrInvalidManifest = errors.New("invalid benchmark manifest")

// Manifest describes a benchmark in TOML:
//
//	engines = ["tesseract", "ocrmypdf"]
//	scorer  = "ratio"
//
//	[[sample]]
//	id           = "invoice-1"
//	image        = "images/invoice-1.png"
//	ground_truth = "truth/invoice-1.txt"
//
// Relative paths are resolved against the manifest's directory.
type Manifest struct {
	Engines []string         `toml:"engines"`
	Scorer  string           `toml:"scorer"`
	Workers int              `toml:"workers"`
	Samples []ManifestSample `toml:"sample"`
}

// ManifestSample is one [[sample]] table.
type ManifestSample struct {
	ID          string `toml:"id"`
	Image       string `toml:"image"`
	GroundTruth string `toml:"ground_truth"`
}

// LoadManifest decodes the manifest at path and resolves its sample paths.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	md, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		log := logger.WithComponent("benchmark")
		log.Warn().
			Str("manifest", path).
			Str("keys", fmt.Sprint(undecoded)).
			Msg("Ignoring unknown manifest keys")
	}

	if len(m.Samples) == 0 {
		return nil, fmt.Errorf("%w: %s has no [[sample]] entries", ErrInvalidManifest, path)
	}

	dir := filepath.Dir(path)
	for i, s := range m.Samples {
		if s.Image == "" || s.GroundTruth == "" {
			return nil, fmt.Errorf("%w: sample %d needs both image and ground_truth", ErrInvalidManifest, i+1)
		}
		m.Samples[i].Image = resolve(dir, s.Image)
		m.Samples[i].GroundTruth = resolve(dir, s.GroundTruth)
	}
	return &m, nil
}

// SampleInputs converts the manifest entries in file order.
func (m *Manifest) SampleInputs() []SampleInput {
	out := make([]SampleInput, len(m.Samples))
	for i, s := range m.Samples {
		out[i] = SampleInput{ID: s.ID, ImagePath: s.Image, GroundTruthPath: s.GroundTruth}
	}
	return out
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// imageExtensions are the raster formats the preprocessing and OCR paths decode.
var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true,
	".bmp": true, ".gif": true, ".webp": true,
}

// DiscoverSamples pairs every image in dir with the .txt file of the same
// base name. Images without ground truth are skipped. Samples are sorted by
// file name.
func DiscoverSamples(dir string) ([]SampleInput, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("discover samples: %w", err)
	}

	log := logger.WithComponent("benchmark")
	var samples []SampleInput
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if !imageExtensions[strings.ToLower(ext)] {
			continue
		}
		base := strings.TrimSuffix(name, ext)
		truth := filepath.Join(dir, base+".txt")
		if _, err := os.Stat(truth); err != nil {
			log.Warn().Str("image", name).Msg("No ground truth next to image, skipping")
			continue
		}
		samples = append(samples, SampleInput{
			ID:              base,
			ImagePath:       filepath.Join(dir, name),
			GroundTruthPath: truth,
		})
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].ImagePath < samples[j].ImagePath })
	return samples, nil
}

// PairSamples zips parallel image and ground-truth lists.
func PairSamples(images, truths []string) ([]SampleInput, error) {
	if len(images) != len(truths) {
		return nil, fmt.Errorf("%d images but %d ground-truth files", len(images), len(truths))
	}
	out := make([]SampleInput, len(images))
	for i := range images {
		out[i] = SampleInput{ImagePath: images[i], GroundTruthPath: truths[i]}
	}
	return out, nil
}
