// Package tailor rewrites a resume section by section for a job posting.
//
// Every section is tailored with its own generation call. A failed or empty
// call keeps that section's original content, and a defect anywhere in the
// run returns the untouched input, so the result is never less complete
// than the resume it started from. Education is never rewritten.
package tailor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-shah256/resume-tailor/internal/cleaner"
	"github.com/p-shah256/resume-tailor/internal/llm"
	"github.com/p-shah256/resume-tailor/pkg/types"
)

var clean = cleaner.NewCleaner()

// ContentFieldPriority is the ordered list of keys searched for the text of
// an object inside an open-ended section. The first listed key holding a
// non-empty list of strings is tailored; the object's other keys are kept.
var ContentFieldPriority = []string{"description", "responsibilities", "achievements", "details", "bullets"}

type Tailor struct {
	gen         llm.Generator
	callTimeout time.Duration
}

type Option func(*Tailor)

// WithCallTimeout bounds every generation call. Zero leaves calls bounded
// only by the caller's context.
func WithCallTimeout(d time.Duration) Option {
	return func(t *Tailor) {
		t.callTimeout = d
	}
}

func New(gen llm.Generator, opts ...Option) *Tailor {
	t := &Tailor{gen: gen}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Stats counts the generation calls of one run.
type Stats struct {
	Calls    int
	Applied  int
	Failures int
}

type run struct {
	gen         llm.Generator
	callTimeout time.Duration
	job         string
	logger      *slog.Logger
	stats       Stats
}

// Tailor returns a tailored copy of resume. It never fails: sections whose
// call fails keep their original content.
func (t *Tailor) Tailor(ctx context.Context, resume types.ResumeData, jobDetails string) (tailored types.ResumeData) {
	r := &run{
		gen:         t.gen,
		callTimeout: t.callTimeout,
		job:         jobDetails,
		logger:      slog.With("component", "tailor", "operation", "Tailor"),
	}
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Tailoring aborted, returning original resume", "panic", p)
			tailored = resume
		}
	}()

	out := resume.Clone()

	r.summary(ctx, &out)
	r.experience(ctx, &out)
	r.skills(ctx, &out)
	r.projects(ctx, &out)
	r.workExperience(ctx, &out)
	r.additionalSections(ctx, &out)
	r.dynamicSections(ctx, &out)

	r.logger.Info("Resume tailored",
		"calls", r.stats.Calls,
		"applied", r.stats.Applied,
		"failures", r.stats.Failures,
		"duration_ms", time.Since(start).Milliseconds())

	return out
}

func (r *run) generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}
	r.stats.Calls++
	out, err := r.gen.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		r.stats.Failures++
		return "", err
	}
	return out, nil
}

// bullets runs prompt and parses the answer as a bullet list. ok is false
// when the call failed or produced no items.
func (r *run) bullets(ctx context.Context, section, prompt string) ([]string, bool) {
	out, err := r.generate(ctx, prompt)
	if err != nil {
		r.logger.Warn("Generation failed, keeping original", "section", section, "error", err)
		return nil, false
	}
	items := clean.ParseBullets(out)
	if len(items) == 0 {
		r.logger.Warn("Empty generation, keeping original", "section", section)
		return nil, false
	}
	r.stats.Applied++
	return items, true
}

func (r *run) summary(ctx context.Context, res *types.ResumeData) {
	out, err := r.generate(ctx, summaryPrompt(res.Summary, r.job))
	if err != nil {
		r.logger.Warn("Generation failed, keeping original", "section", types.KeySummary, "error", err)
		return
	}
	if text := clean.CleanLlmResponse(out); text != "" {
		res.Summary = text
		r.stats.Applied++
	}
}

func (r *run) experience(ctx context.Context, res *types.ResumeData) {
	for i := range res.Experience {
		e := &res.Experience[i]
		if items, ok := r.bullets(ctx, types.KeyExperience, experiencePrompt(*e, r.job)); ok {
			e.Responsibilities = items
		}
	}
}

func (r *run) projects(ctx context.Context, res *types.ResumeData) {
	for i := range res.Projects {
		p := &res.Projects[i]
		if items, ok := r.bullets(ctx, types.KeyProjects, projectPrompt(*p, r.job)); ok {
			p.Description = items
		}
	}
}

func (r *run) workExperience(ctx context.Context, res *types.ResumeData) {
	for i := range res.WorkExperience {
		w := &res.WorkExperience[i]
		if items, ok := r.bullets(ctx, types.KeyWorkExperience, workExperiencePrompt(*w, r.job)); ok {
			w.Responsibilities = items
		}
	}
}

// skills asks for all four categories in one call. A category is replaced
// only by a non-empty list of strings; anything else keeps the original.
func (r *run) skills(ctx context.Context, res *types.ResumeData) {
	out, err := r.generate(ctx, skillsPrompt(res.Skills, r.job))
	if err != nil {
		r.logger.Warn("Generation failed, keeping original", "section", types.KeySkills, "error", err)
		return
	}

	obj, ok := clean.ExtractJSONObject(out)
	if !ok {
		r.logger.Warn("No JSON object in skills response, keeping original")
		return
	}
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		r.logger.Warn("Malformed skills response, keeping original", "error", err)
		return
	}

	targets := map[string]*[]string{
		"languages":  &res.Skills.Languages,
		"frameworks": &res.Skills.Frameworks,
		"tools":      &res.Skills.Tools,
		"concepts":   &res.Skills.Concepts,
	}
	applied := false
	for key, target := range targets {
		var list []string
		if err := json.Unmarshal(parsed[key], &list); err != nil || len(list) == 0 {
			continue
		}
		*target = list
		applied = true
	}
	if applied {
		r.stats.Applied++
	}
}

func (r *run) additionalSections(ctx context.Context, res *types.ResumeData) {
	for i, f := range res.AdditionalSections {
		items, ok := stringList(f.Value)
		if !ok || len(items) == 0 {
			continue
		}
		tailored, ok := r.bullets(ctx, types.KeyAdditionalSections+"."+f.Key, sectionPrompt(f.Key, items, r.job))
		if !ok {
			continue
		}
		res.AdditionalSections[i].Value = mustMarshal(tailored)
	}
}

// dynamicSections tailors top-level sections the resume has no dedicated
// field for: lists of strings as bullets, and lists of objects through the
// first matching ContentFieldPriority key of each object.
func (r *run) dynamicSections(ctx context.Context, res *types.ResumeData) {
	for i, f := range res.Extra {
		var elems []json.RawMessage
		if err := json.Unmarshal(f.Value, &elems); err != nil || len(elems) == 0 {
			continue
		}

		switch firstByte(elems[0]) {
		case '"':
			items, ok := stringList(f.Value)
			if !ok {
				continue
			}
			if tailored, ok := r.bullets(ctx, f.Key, sectionPrompt(displayName(f.Key), items, r.job)); ok {
				res.Extra[i].Value = mustMarshal(tailored)
			}
		case '{':
			changed := false
			for j, elem := range elems {
				if out, ok := r.item(ctx, f.Key, elem); ok {
					elems[j] = out
					changed = true
				}
			}
			if changed {
				res.Extra[i].Value = mustMarshal(elems)
			}
		}
	}
}

func (r *run) item(ctx context.Context, section string, raw json.RawMessage) (json.RawMessage, bool) {
	fields, err := types.DecodeFields(raw)
	if err != nil {
		return nil, false
	}
	field, items, ok := contentField(fields)
	if !ok {
		return nil, false
	}

	var details []string
	for _, f := range fields {
		if f.Key == field {
			continue
		}
		var s string
		if json.Unmarshal(f.Value, &s) == nil && s != "" {
			details = append(details, fmt.Sprintf("%s: %s", titleCase(f.Key), s))
		}
	}

	tailored, ok := r.bullets(ctx, section, itemPrompt(displayName(section), field, details, items, r.job))
	if !ok {
		return nil, false
	}
	fields.Set(field, mustMarshal(tailored))
	return mustMarshal(fields), true
}

// contentField picks the first ContentFieldPriority key of fields that
// holds a non-empty list of strings.
func contentField(fields types.Fields) (string, []string, bool) {
	for _, key := range ContentFieldPriority {
		raw, ok := fields.Get(key)
		if !ok {
			continue
		}
		if items, ok := stringList(raw); ok && len(items) > 0 {
			return key, items, true
		}
	}
	return "", nil, false
}

func stringList(raw json.RawMessage) ([]string, bool) {
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

func firstByte(raw json.RawMessage) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}

// mustMarshal encodes values built from already valid JSON, so a failure
// is a defect and is left to the run's recover.
func mustMarshal(v any) json.RawMessage {
	out, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal tailored section: %v", err))
	}
	return out
}
