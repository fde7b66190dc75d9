package whisper

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultModel is the smallest variant so the first start stays fast on CPU.
const DefaultModel = "tiny"

const modelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// Model is a downloadable ggml variant with its pinned digest.
type Model struct {
	Name     string
	FileName string
	URL      string
	SHA256   string
}

// ResolvedModel is where a model lives on disk and whether it still has to
// be fetched.
type ResolvedModel struct {
	Name          string
	Path          string
	URL           string
	SHA256        string
	NeedsDownload bool
	IsCustomPath  bool
}

// variants are ordered by size. Larger models are too slow for an
// interactive CPU-only session and can still be used as a custom path.
var variants = []Model{
	newModel("tiny", "be07e048e1e599ad46341c8d2a135645097a538221678b7acdd1b1919c6e1b21"),
	newModel("base", "60ed5bc3dd14eea856493d334349b405782ddcaf0028d4b5df4088345fba2efe"),
	newModel("small", "1be3a9b2063867b937e64e2ec7483364a79917e157fa98c5d94b5c1fffea987b"),
}

func newModel(name, sha256 string) Model {
	file := "ggml-" + name + ".bin"
	return Model{Name: name, FileName: file, URL: modelBaseURL + file, SHA256: sha256}
}

// ModelNames lists the known variants, smallest first.
func ModelNames() []string {
	names := make([]string, len(variants))
	for i, model := range variants {
		names[i] = model.Name
	}
	return names
}

func LookupModel(name string) (Model, bool) {
	for _, model := range variants {
		if model.Name == name {
			return model, true
		}
	}
	return Model{}, false
}

// ResolveModel maps a variant name or a path to a model file. An empty
// reference selects DefaultModel.
func ResolveModel(ref, modelDir string) (ResolvedModel, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = DefaultModel
	}

	if model, ok := LookupModel(ref); ok {
		return resolveNamed(model, modelDir)
	}
	if isModelPath(ref) {
		return resolveCustom(ref)
	}
	return ResolvedModel{}, fmt.Errorf("unknown model %q (known models: %s)", ref, strings.Join(ModelNames(), ", "))
}

func resolveNamed(model Model, modelDir string) (ResolvedModel, error) {
	if strings.TrimSpace(modelDir) == "" {
		return ResolvedModel{}, errors.New("model directory must not be empty for named model")
	}

	resolved := ResolvedModel{
		Name:   model.Name,
		Path:   filepath.Join(modelDir, model.FileName),
		URL:    model.URL,
		SHA256: model.SHA256,
	}

	switch _, err := os.Stat(resolved.Path); {
	case errors.Is(err, fs.ErrNotExist):
		resolved.NeedsDownload = true
	case err != nil:
		return ResolvedModel{}, fmt.Errorf("stat model path: %w", err)
	}
	return resolved, nil
}

func resolveCustom(ref string) (ResolvedModel, error) {
	path := filepath.Clean(ref)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ResolvedModel{}, fmt.Errorf("custom model path does not exist: %s", path)
		}
		return ResolvedModel{}, fmt.Errorf("stat custom model path: %w", err)
	}
	return ResolvedModel{Name: filepath.Base(path), Path: path, IsCustomPath: true}, nil
}

func isModelPath(ref string) bool {
	return strings.ContainsRune(ref, os.PathSeparator) || strings.EqualFold(filepath.Ext(ref), ".bin")
}
