// Package pipeline orchestrates the cleaning, merge, persistence, and
// artifact publishing stages over the configured sources.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"swatch/internal/blob"
	"swatch/internal/csvio"
	"swatch/internal/geo"
	"swatch/internal/merge"
	"swatch/internal/metrics"
	"swatch/internal/schema"
	"swatch/internal/source"
	"swatch/internal/validate"
	"swatch/pkg/canonical"
)

// ErrNoSources is returned when no selected source has raw input files.
var ErrNoSources = errors.New("no source input found")

// SourceSummary reports one source's cleaning stage.
type SourceSummary struct {
	Name       string `json:"name"`
	Skipped    bool   `json:"skipped,omitempty"`
	RawSites   int    `json:"raw_sites"`
	RawSamples int    `json:"raw_samples"`
	Sites      int    `json:"sites"`
	Samples    int    `json:"samples"`
	Methods    int    `json:"methods"`
}

// Summary reports a full pipeline run.
type Summary struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Sources    []SourceSummary `json:"sources"`

	Sites      int `json:"sites"`
	Samples    int `json:"samples"`
	Methods    int `json:"methods"`
	Violations int `json:"violations"`
	Rejected   int `json:"rejected"`
	Outliers   int `json:"outliers"`
	Duplicates int `json:"duplicates"`

	Metrics   map[string]float64 `json:"metrics"`
	Artifacts []string           `json:"artifacts,omitempty"`
}

// Pipeline wires the stages together.
type Pipeline struct {
	cfg Config
	log *zap.Logger
	rec *metrics.Recorder
}

// New returns a pipeline for cfg. A nil logger is replaced with a
// no-op logger.
func New(cfg Config, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, log: log, rec: metrics.New()}
}

// selected resolves cfg.Sources against the registered sources. An
// unknown name is an error; an empty selection means all sources.
func (p *Pipeline) selected() ([]source.Source, error) {
	if len(p.cfg.Sources) == 0 {
		return source.All(), nil
	}
	srcs := make([]source.Source, 0, len(p.cfg.Sources))
	for _, name := range p.cfg.Sources {
		src, ok := source.ByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown source %q", name)
		}
		srcs = append(srcs, src)
	}
	return srcs, nil
}

// Clean standardizes every selected source whose raw files are present
// in the input directory. Sources with no raw input are skipped, not
// failed: the archive downloads arrive independently.
func (p *Pipeline) Clean(ctx context.Context) ([]SourceSummary, error) {
	start := time.Now()
	defer func() { p.rec.ObserveStage("clean", time.Since(start)) }()

	srcs, err := p.selected()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.cfg.WorkDir, 0o755); err != nil {
		return nil, err
	}

	var summaries []SourceSummary
	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}
		if !p.hasInput(src) {
			p.log.Warn("source input missing, skipping", zap.String("source", src.Name))
			summaries = append(summaries, SourceSummary{Name: src.Name, Skipped: true})
			continue
		}
		if err := p.applyMappingOverrides(&src); err != nil {
			return summaries, fmt.Errorf("source %s: %w", src.Name, err)
		}
		res, err := source.NewCleaner(src, p.log.With(zap.String("source", src.Name))).Clean(ctx, p.cfg.InputDir, p.cfg.WorkDir)
		if err != nil {
			return summaries, fmt.Errorf("source %s: %w", src.Name, err)
		}
		p.rec.AddRead(src.Name, "sites", res.RawSites)
		p.rec.AddRead(src.Name, "samples", res.RawSamples)
		p.rec.AddCleaned(src.Name, "sites", len(res.Sites))
		p.rec.AddCleaned(src.Name, "samples", len(res.Samples))
		summaries = append(summaries, SourceSummary{
			Name:       src.Name,
			RawSites:   res.RawSites,
			RawSamples: res.RawSamples,
			Sites:      len(res.Sites),
			Samples:    len(res.Samples),
			Methods:    len(res.Methods),
		})
	}
	return summaries, nil
}

// applyMappingOverrides loads <name>_sites.yaml / <name>_samples.yaml
// from the mapping directory, when present, in place of the built-in
// column mappings.
func (p *Pipeline) applyMappingOverrides(src *source.Source) error {
	if p.cfg.MappingDir == "" {
		return nil
	}
	for _, ov := range []struct {
		suffix  string
		mapping *schema.Mapping
	}{
		{"_sites.yaml", &src.SiteMapping},
		{"_samples.yaml", &src.SampleMapping},
	} {
		path := filepath.Join(p.cfg.MappingDir, src.Name+ov.suffix)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		m, err := schema.LoadMapping(path)
		if err != nil {
			return err
		}
		if err := m.Validate(); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		*ov.mapping = m
		p.log.Info("mapping override applied", zap.String("source", src.Name), zap.String("path", path))
	}
	return nil
}

func (p *Pipeline) hasInput(src source.Source) bool {
	for _, f := range []string{src.SiteFile, src.SampleFile} {
		if _, err := os.Stat(filepath.Join(p.cfg.InputDir, f)); errors.Is(err, fs.ErrNotExist) {
			return false
		}
	}
	return true
}

// Merge combines the cleaned tables found in the work directory. A
// selected source with no cleaned output is skipped so merge can run
// over whatever clean produced.
func (p *Pipeline) Merge(ctx context.Context) (merge.Result, error) {
	start := time.Now()
	defer func() { p.rec.ObserveStage("merge", time.Since(start)) }()

	srcs, err := p.selected()
	if err != nil {
		return merge.Result{}, err
	}
	var inputs []merge.Input
	for _, src := range srcs {
		sitePath := filepath.Join(p.cfg.WorkDir, source.SiteOutput(src.Name))
		if _, err := os.Stat(sitePath); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		sites, err := csvio.ReadSites(sitePath)
		if err != nil {
			return merge.Result{}, fmt.Errorf("read %s sites: %w", src.Name, err)
		}
		samples, err := csvio.ReadSamples(filepath.Join(p.cfg.WorkDir, source.SampleOutput(src.Name)))
		if err != nil {
			return merge.Result{}, fmt.Errorf("read %s samples: %w", src.Name, err)
		}
		methods, err := csvio.ReadMethods(filepath.Join(p.cfg.WorkDir, source.MethodOutput(src.Name)))
		if err != nil {
			return merge.Result{}, fmt.Errorf("read %s methods: %w", src.Name, err)
		}
		inputs = append(inputs, merge.Input{Source: src.Name, Sites: sites, Samples: samples, Methods: methods})
	}
	if len(inputs) == 0 {
		return merge.Result{}, ErrNoSources
	}

	res, err := merge.New(p.log).Merge(ctx, inputs)
	if err != nil {
		return res, err
	}
	p.rec.AddViolations(len(res.Violations))
	rejected := make(map[string]int)
	for _, s := range res.Samples {
		if s.Status == canonical.StatusRejected {
			rejected[s.Dataset]++
		}
	}
	for dataset, n := range rejected {
		p.rec.AddRejected(dataset, n)
	}
	return res, nil
}

// Run executes the full pipeline: clean, merge, validate, persist, and
// publish. It returns the run summary; the summary is also published as
// the final artifact.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString(), StartedAt: time.Now().UTC()}
	p.log.Info("run started", zap.String("run_id", summary.RunID))

	srcSummaries, err := p.Clean(ctx)
	summary.Sources = srcSummaries
	if err != nil {
		return summary, err
	}

	res, err := p.Merge(ctx)
	if err != nil {
		return summary, err
	}
	summary.Sites = len(res.Sites)
	summary.Samples = len(res.Samples)
	summary.Methods = len(res.Methods)
	summary.Violations = len(res.Violations)
	summary.Rejected = res.Rejected
	summary.Outliers = res.Outliers
	summary.Duplicates = res.Duplicates

	start := time.Now()
	rep := validate.Tables(res, p.cfg.ValidationBudget)
	p.rec.ObserveStage("validate", time.Since(start))
	if err := rep.Err(); err != nil {
		return summary, err
	}

	start = time.Now()
	db, err := OpenDatabase(ctx, p.cfg)
	if err != nil {
		return summary, fmt.Errorf("open database: %w", err)
	}
	if err := db.Save(ctx, res); err != nil {
		_ = db.Close()
		return summary, fmt.Errorf("persist: %w", err)
	}
	if err := db.Close(); err != nil {
		return summary, fmt.Errorf("close database: %w", err)
	}
	p.rec.ObserveStage("persist", time.Since(start))

	start = time.Now()
	store, err := blob.Open(ctx, blob.Options{
		Driver:      blob.Driver(p.cfg.BlobDriver),
		FSRoot:      p.cfg.BlobFSRoot,
		S3Bucket:    p.cfg.BlobS3Bucket,
		S3Region:    p.cfg.BlobS3Region,
		S3Endpoint:  p.cfg.BlobS3Endpoint,
		S3PathStyle: p.cfg.BlobS3PathStyle,
	})
	if err != nil {
		return summary, fmt.Errorf("open blob store: %w", err)
	}
	summary.FinishedAt = time.Now().UTC()
	summary.Metrics = p.rec.Summary()
	keys, err := p.publish(ctx, store, res, &summary)
	summary.Artifacts = keys
	if err != nil {
		return summary, fmt.Errorf("publish: %w", err)
	}
	p.rec.ObserveStage("publish", time.Since(start))

	p.log.Info("run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("sites", summary.Sites),
		zap.Int("samples", summary.Samples),
		zap.Int("methods", summary.Methods),
		zap.Int("violations", summary.Violations),
		zap.Strings("artifacts", keys))
	return summary, nil
}

// publish writes the unified tables, the GeoJSON site layer, and the
// run summary under the run's key prefix.
func (p *Pipeline) publish(ctx context.Context, store blob.Store, res merge.Result, summary *Summary) ([]string, error) {
	prefix := "runs/" + summary.RunID + "/"

	tmp, err := os.MkdirTemp("", "swatch-publish-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	tables := []struct {
		name  string
		write func(string) error
	}{
		{"sites.csv", func(path string) error { return csvio.WriteSites(path, res.Sites) }},
		{"samples.csv", func(path string) error { return csvio.WriteSamples(path, res.Samples) }},
		{"methods.csv", func(path string) error { return csvio.WriteMethods(path, res.Methods) }},
	}
	var keys []string
	for _, tbl := range tables {
		path := filepath.Join(tmp, tbl.name)
		if err := tbl.write(path); err != nil {
			return keys, err
		}
		f, err := os.Open(path)
		if err != nil {
			return keys, err
		}
		_, err = store.Put(ctx, prefix+tbl.name, f, blob.PutOptions{
			ContentType: "text/csv",
			Metadata:    map[string]string{"run_id": summary.RunID},
		})
		_ = f.Close()
		if err != nil {
			return keys, err
		}
		keys = append(keys, prefix+tbl.name)
	}

	layer, err := geo.SiteLayer(res.Sites)
	if err != nil {
		return keys, err
	}
	if _, err := store.Put(ctx, prefix+"sites.geojson", bytes.NewReader(layer), blob.PutOptions{
		ContentType: "application/geo+json",
		Metadata:    map[string]string{"run_id": summary.RunID},
	}); err != nil {
		return keys, err
	}
	keys = append(keys, prefix+"sites.geojson")

	// The summary goes last so its artifact list covers everything else.
	summary.Artifacts = append(keys, prefix+"summary.json")
	body, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return keys, err
	}
	if _, err := store.Put(ctx, prefix+"summary.json", bytes.NewReader(body), blob.PutOptions{
		ContentType: "application/json",
	}); err != nil {
		return keys, err
	}
	keys = append(keys, prefix+"summary.json")
	return keys, nil
}
